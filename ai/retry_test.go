package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/filevec/core"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return nil
	}

	err := RetryWithBackoff(context.Background(), operation, 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := RetryWithBackoff(context.Background(), operation, 5, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	operation := func() error {
		attempts++
		return expectedErr
	}

	err := RetryWithBackoff(context.Background(), operation, 3, 10*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "should return the original error")
	assert.Equal(t, 3, attempts, "should attempt exactly maxAttempts times")
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	operation := func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	err := RetryWithBackoff(ctx, operation, 10, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled, "should return context.Canceled")
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryWithBackoff_ExponentialDelay(t *testing.T) {
	var timestamps []time.Time
	operation := func() error {
		timestamps = append(timestamps, time.Now())
		return errors.New("error")
	}

	baseDelay := 20 * time.Millisecond
	_ = RetryWithBackoff(context.Background(), operation, 3, baseDelay)

	require.Len(t, timestamps, 3)
	assert.GreaterOrEqual(t, timestamps[1].Sub(timestamps[0]), baseDelay)
	assert.GreaterOrEqual(t, timestamps[2].Sub(timestamps[1]), 2*baseDelay)
}

// flakyEmbedder fails a fixed number of times before succeeding.
type flakyEmbedder struct {
	failures int
	err      error
	calls    int
}

func (f *flakyEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []float32{1, 2, 3}, nil
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("provider errors are retried", func(t *testing.T) {
		backend := &flakyEmbedder{failures: 2, err: fmt.Errorf("%w: 503", core.ErrProvider)}
		e, err := WithRetry(backend, 3, time.Millisecond)
		require.NoError(t, err)

		vec, err := e.EmbedText(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3}, vec)
		assert.Equal(t, 3, backend.calls)
	})

	t.Run("invalid input is not retried", func(t *testing.T) {
		backend := &flakyEmbedder{failures: 5, err: core.ErrInvalidInput}
		e, err := WithRetry(backend, 3, time.Millisecond)
		require.NoError(t, err)

		_, err = e.EmbedText(ctx, "hello")
		assert.ErrorIs(t, err, core.ErrInvalidInput)
		assert.Equal(t, 1, backend.calls)
	})

	t.Run("exhausted attempts return last error", func(t *testing.T) {
		backend := &flakyEmbedder{failures: 5, err: core.ErrProvider}
		e, err := WithRetry(backend, 2, time.Millisecond)
		require.NoError(t, err)

		_, err = e.EmbedText(ctx, "a")
		assert.ErrorIs(t, err, core.ErrProvider)
		assert.Equal(t, 2, backend.calls)
	})

	t.Run("invalid policy", func(t *testing.T) {
		_, err := WithRetry(&flakyEmbedder{}, 0, time.Millisecond)
		assert.ErrorIs(t, err, core.ErrConfiguration)

		_, err = WithRetry(nil, 1, time.Millisecond)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})
}
