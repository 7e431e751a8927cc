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

// Package ai provides the embedding provider abstraction used by filevec.
//
// The ingestion pipeline depends only on the Embedder interface defined here.
// Concrete backends live in sub-packages and are selected through the closed
// Provider enumeration.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and OpenAI-compatible embedding APIs
//   - ai/cohere: Cohere embed API
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEmbedder, cohere.NewEmbedder) return the
// ai.Embedder INTERFACE to prevent accidental coupling to concrete
// implementations.
//
//	embedder, err := openai.NewEmbedder(config)  // returns ai.Embedder
//
// Test utility constructors (mock.NewMockEmbedder) return CONCRETE types to
// enable test assertions and behavior injection.
//
//	mockEmbed := mock.NewMockEmbedder()
//	mockEmbed.EmbedTextFunc = ...
//	count := mockEmbed.CallCount()
//
// # Dimension Reconciliation
//
// Backends return vectors of their native length. The target table declares a
// fixed length; DimensionedEmbedder truncates or zero-pads every vector to it
// and rejects blank input before any network call.
//
//	dimensioned, err := ai.NewDimensionedEmbedder(embedder, 1024)
//	vec, err := dimensioned.Embed(ctx, "Hello world") // len(vec) == 1024
//
// # Retries
//
// Embedders never retry. Callers that want retries wrap an embedder with
// WithRetry, which retries provider failures with exponential backoff.
package ai
