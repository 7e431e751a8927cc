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

package chunking

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/filevec/core"
)

// Chunker groups sentences into chunks of bounded length.
// Lengths are measured in characters (runes). A chunker holds no state
// between calls and is safe for concurrent use if its Splitter is.
type Chunker struct {
	splitter Splitter
}

// NewChunker creates a Chunker on top of splitter. A nil splitter selects
// RegexSplitter.
func NewChunker(splitter Splitter) *Chunker {
	if splitter == nil {
		splitter = RegexSplitter{}
	}
	return &Chunker{splitter: splitter}
}

// Chunk splits text into ordered chunks of at most maxChunkSize characters.
//
// Sentences are appended to an accumulator, joined by a single space, while
// the result still fits. Otherwise the accumulator is flushed and a new one
// starts from the sentence. A single sentence longer than maxChunkSize becomes
// its own chunk. Blank input yields no chunks.
func (c *Chunker) Chunk(text string, maxChunkSize int) ([]core.Chunk, error) {
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: %w: %d", core.ErrConfiguration, core.ErrInvalidChunkSize, maxChunkSize)
	}

	var (
		chunks   []core.Chunk
		acc      strings.Builder
		accLen   int
		accBytes int
	)

	flush := func() {
		s := strings.TrimSpace(acc.String())
		if s != "" {
			chunks = append(chunks, core.Chunk{
				Index:       len(chunks),
				Text:        s,
				SourceBytes: accBytes,
			})
		}
		acc.Reset()
		accLen = 0
		accBytes = 0
	}

	for _, sentence := range c.splitter.Split(text) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		n := utf8.RuneCountInString(sentence)

		sep := 0
		if accLen > 0 {
			sep = 1
		}
		if accLen > 0 && accLen+sep+n > maxChunkSize {
			flush()
			sep = 0
		}
		if sep == 1 {
			acc.WriteByte(' ')
		}
		acc.WriteString(sentence)
		accLen += sep + n
		accBytes += len(sentence)
	}
	flush()

	return chunks, nil
}

// Split is Chunk returning only the chunk texts.
func (c *Chunker) Split(text string, maxChunkSize int) ([]string, error) {
	chunks, err := c.Chunk(text, maxChunkSize)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Text
	}
	return out, nil
}
