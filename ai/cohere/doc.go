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

// Package cohere provides an ai.Embedder backed by the Cohere embed API.
//
// Requests go through the official cohere-go SDK as search_document
// embeddings with server-side truncation at the end of over-long input. The
// SDK client is wrapped in a langchaingo embeddings.Embedder so newline
// handling and batching behave the same as the OpenAI backend.
package cohere
