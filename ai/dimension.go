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

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/filevec/core"
)

// FitDimension returns a vector of exactly dim elements: raw truncated when
// longer, raw followed by zeros when shorter, a copy of raw otherwise.
// The raw slice is never modified.
func FitDimension(raw []float32, dim int) []float32 {
	if dim < 0 {
		dim = 0
	}
	out := make([]float32, dim)
	copy(out, raw)
	return out
}

// DimensionedEmbedder adapts an Embedder to a fixed target dimension.
type DimensionedEmbedder struct {
	embedder  Embedder
	dimension int
}

// NewDimensionedEmbedder wraps e so that every vector has length dim.
func NewDimensionedEmbedder(e Embedder, dim int) (*DimensionedEmbedder, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: embedder is required", core.ErrConfiguration)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %w: %d", core.ErrConfiguration, core.ErrInvalidDimension, dim)
	}
	return &DimensionedEmbedder{embedder: e, dimension: dim}, nil
}

// Dimension returns the target vector length.
func (d *DimensionedEmbedder) Dimension() int {
	return d.dimension
}

// Embed produces a vector of length Dimension for text.
//
// Blank text fails with core.ErrInvalidInput before the backend is called.
// An empty backend vector fails with core.ErrProvider. Backend errors are
// returned wrapped in core.ErrProvider unless they already carry a taxonomy
// sentinel.
func (d *DimensionedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text for embedding is empty", core.ErrInvalidInput)
	}

	raw, err := d.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, classify(err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: backend returned an empty vector", core.ErrProvider)
	}
	return FitDimension(raw, d.dimension), nil
}

// classify makes sure err carries either ErrInvalidInput or ErrProvider.
func classify(err error) error {
	if isInvalidInput(err) || isProvider(err) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrProvider, err)
}
