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

// Package ingestion turns raw content into stored rows: it chunks the text,
// embeds every chunk at the target dimension and inserts one row per chunk.
//
// Chunks of a single Ingest call are processed strictly in order. A chunk
// that fails to embed or insert is recorded in the returned core.Run and the
// run moves on; rows already written are never rolled back.
package ingestion
