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

	"golang.org/x/time/rate"

	"github.com/poiesic/filevec/core"
)

// RateLimitedEmbedder throttles calls to the wrapped Embedder with a token
// bucket. A batch call consumes one token per text.
type RateLimitedEmbedder struct {
	embedder Embedder
	bucket   *rate.Limiter
}

// WithRateLimit wraps e so that at most perSecond texts are submitted per
// second, with bursts of up to burst texts.
func WithRateLimit(e Embedder, perSecond float64, burst int) (*RateLimitedEmbedder, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: embedder is required", core.ErrConfiguration)
	}
	if perSecond <= 0 {
		return nil, fmt.Errorf("%w: rate must be positive, got %v", core.ErrConfiguration, perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedEmbedder{
		embedder: e,
		bucket:   rate.NewLimiter(rate.Limit(perSecond), burst),
	}, nil
}

// EmbedText implements Embedder.
func (r *RateLimitedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := r.bucket.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", core.ErrProvider, err)
	}
	return r.embedder.EmbedText(ctx, text)
}
