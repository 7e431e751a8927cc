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
	"log/slog"
	"strings"
	"unicode"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Splitter breaks text into ordered sentences.
// Implementations never fail: blank input yields an empty slice and any
// tokenizer problem degrades to a single sentence holding the trimmed input.
type Splitter interface {
	Split(text string) []string
}

// PunktSplitter splits sentences with the punkt boundary detection algorithm
// trained on English text.
type PunktSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
	fallback  Splitter
	logger    *slog.Logger
}

// NewPunktSplitter loads the English punkt model. When the model cannot be
// loaded the splitter falls back to RegexSplitter.
func NewPunktSplitter(logger *slog.Logger) *PunktSplitter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "punkt-splitter")

	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		logger.Warn("punkt model unavailable, using punctuation splitter", "err", err)
		tokenizer = nil
	}
	return &PunktSplitter{
		tokenizer: tokenizer,
		fallback:  RegexSplitter{},
		logger:    logger,
	}
}

// Split implements Splitter.
func (p *PunktSplitter) Split(text string) (out []string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{}
	}
	if p.tokenizer == nil {
		return p.fallback.Split(trimmed)
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("sentence tokenizer panicked, treating input as one sentence", "panic", r)
			out = []string{trimmed}
		}
	}()

	tokens := p.tokenizer.Tokenize(trimmed)
	out = make([]string, 0, len(tokens))
	for _, tok := range tokens {
		s := strings.TrimSpace(tok.Text)
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{trimmed}
	}
	return out
}

// RegexSplitter splits on terminal punctuation (. ! ?) followed by whitespace
// or end of input. Closing quotes and brackets stay with their sentence.
type RegexSplitter struct{}

// Split implements Splitter.
func (RegexSplitter) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	out := []string{}
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && (isTerminal(runes[end]) || isCloser(runes[end])) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			i = end - 1
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’':
		return true
	}
	return false
}
