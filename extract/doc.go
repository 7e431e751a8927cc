// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package extract reads source documents into text or tabular rows ready for
// ingestion.
//
// Text kinds (PDF, DOCX, HTML, plain text and Markdown) produce a single
// Content string with file metadata. Tabular kinds (CSV, XLSX) produce one Row
// per data record; each row is ingested on its own with its cells as metadata.
package extract
