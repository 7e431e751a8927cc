package ai

import "context"

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
//
// Failures are reported wrapped in core.ErrProvider (network, auth, timeout,
// malformed response) or core.ErrInvalidInput (text the backend rejects).
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector has the backend's native length.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
