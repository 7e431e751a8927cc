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

// Package chunking splits extracted text into sentence-respecting chunks of
// bounded size.
//
// A Splitter turns text into an ordered sequence of sentences. The Chunker
// walks that sequence and greedily packs consecutive sentences into chunks no
// longer than a configured number of characters. A sentence that is longer
// than the limit on its own is kept intact as an oversized chunk.
//
// Basic usage:
//
//	chunker := chunking.NewChunker(chunking.NewPunktSplitter(logger))
//	chunks, err := chunker.Chunk(text, 500)
package chunking
