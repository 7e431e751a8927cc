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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/filevec/core"
)

// ErrInvalidMaxAttempts indicates a retry policy with no attempts.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be positive")

// RetryWithBackoff executes an operation with exponential backoff retry logic.
// The delay between attempts is baseDelay * 2^(attempt-1).
// Returns the last error if all attempts fail, or ctx.Err() if the context is
// canceled while waiting.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	return retry(ctx, operation, maxAttempts, baseDelay, func(error) bool { return true })
}

func retry(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration, retryable func(error) bool) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		if attempt == maxAttempts {
			break
		}

		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// RetryingEmbedder retries provider failures of the wrapped Embedder.
// Invalid input and context errors are returned immediately.
type RetryingEmbedder struct {
	embedder    Embedder
	maxAttempts int
	baseDelay   time.Duration
}

// WithRetry wraps e with a retry policy. maxAttempts counts the first call.
func WithRetry(e Embedder, maxAttempts int, baseDelay time.Duration) (*RetryingEmbedder, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: embedder is required", core.ErrConfiguration)
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, ErrInvalidMaxAttempts)
	}
	return &RetryingEmbedder{embedder: e, maxAttempts: maxAttempts, baseDelay: baseDelay}, nil
}

// EmbedText implements Embedder.
func (r *RetryingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := retry(ctx, func() error {
		var err error
		out, err = r.embedder.EmbedText(ctx, text)
		return err
	}, r.maxAttempts, r.baseDelay, retryable)
	return out, err
}

func retryable(err error) bool {
	if isInvalidInput(err) || errors.Is(err, core.ErrConfiguration) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

func isInvalidInput(err error) bool {
	return errors.Is(err, core.ErrInvalidInput)
}

func isProvider(err error) bool {
	return errors.Is(err, core.ErrProvider)
}
