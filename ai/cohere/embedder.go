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

package cohere

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/poiesic/filevec/ai"
	"github.com/poiesic/filevec/core"
)

// MaxBatchSize is the largest number of texts accepted per request.
const MaxBatchSize = 96

// client adapts the Cohere SDK to embeddings.EmbedderClient.
type client struct {
	sdk   *cohereclient.Client
	model string
}

func (c *client) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.sdk.Embed(ctx, &cohere.EmbedRequest{
		Texts:     texts,
		Model:     cohere.String(c.model),
		InputType: cohere.EmbedInputTypeSearchDocument.Ptr(),
		Truncate:  cohere.EmbedRequestTruncateEnd.Ptr(),
	})
	if err != nil {
		return nil, err
	}

	var raw [][]float64
	switch {
	case resp.EmbeddingsFloats != nil:
		raw = resp.EmbeddingsFloats.Embeddings
	case resp.EmbeddingsByType != nil && resp.EmbeddingsByType.Embeddings != nil:
		raw = resp.EmbeddingsByType.Embeddings.Float
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(raw), len(texts))
	}

	out := make([][]float32, len(raw))
	for i, vec := range raw {
		out[i] = make([]float32, len(vec))
		for j, v := range vec {
			out[i][j] = float32(v)
		}
	}
	return out, nil
}

// Embedder implements ai.Embedder using the Cohere embed API.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Provider != ai.ProviderCohere {
		return nil, fmt.Errorf("%w: cohere embedder cannot serve provider %s", core.ErrConfiguration, config.Provider)
	}

	sdk := cohereclient.NewClient(
		option.WithToken(config.APIKey),
		option.WithBaseURL(config.Host),
		option.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
		option.WithMaxAttempts(1),
	)

	embedder, err := embeddings.NewEmbedder(&client{sdk: sdk, model: config.Model},
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(MaxBatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "cohere-embedder", "model", config.Model),
	}, nil
}

// NewEmbedder creates a Cohere embedder from config.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, fmt.Errorf("%w: cohere: %w", core.ErrProvider, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: cohere: empty embedding", core.ErrProvider)
	}
	return vectors[0], nil
}
