package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/filevec/ai"
	"github.com/poiesic/filevec/core"
)

// embedPayload mirrors the request body of POST /v1/embed.
type embedPayload struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
	Truncate  string   `json:"truncate"`
}

func writeFloats(w http.ResponseWriter, embs [][]float64) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"response_type": "embeddings_floats",
		"id":            "abc",
		"embeddings":    embs,
	})
}

func newServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestEmbedder_EmbedText(t *testing.T) {
	var got embedPayload
	var path, auth string

	url := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		embs := make([][]float64, len(got.Texts))
		for i := range embs {
			embs[i] = make([]float64, 1024)
			embs[i][0] = 0.5
		}
		writeFloats(w, embs)
	})

	e, err := NewEmbedder(ai.NewConfig(
		ai.WithProvider(ai.ProviderCohere),
		ai.WithHost(url),
		ai.WithAPIKey("co-key"),
	))
	require.NoError(t, err)

	vec, err := e.EmbedText(context.Background(), "line one\nline two")
	require.NoError(t, err)
	assert.Len(t, vec, 1024)
	assert.Equal(t, float32(0.5), vec[0])

	assert.Equal(t, "/v1/embed", path)
	assert.Equal(t, "Bearer co-key", auth)
	assert.Equal(t, []string{"line one line two"}, got.Texts)
	assert.Equal(t, ai.DefaultCohereModel, got.Model)
	assert.Equal(t, "search_document", got.InputType)
	assert.Equal(t, "END", got.Truncate)
}

func TestEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"invalid api token"}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
		},
		{
			name: "no embeddings",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeFloats(w, [][]float64{})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEmbedder(ai.NewConfig(
				ai.WithProvider(ai.ProviderCohere),
				ai.WithHost(newServer(t, tt.handler)),
				ai.WithAPIKey("co-key"),
			))
			require.NoError(t, err)

			_, err = e.EmbedText(context.Background(), "hello")
			assert.ErrorIs(t, err, core.ErrProvider)
		})
	}
}

func TestEmbedder_NoInternalRetry(t *testing.T) {
	var requests atomic.Int32
	url := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"overloaded"}`))
	})

	e, err := NewEmbedder(ai.NewConfig(ai.WithProvider(ai.ProviderCohere), ai.WithHost(url), ai.WithAPIKey("k")))
	require.NoError(t, err)

	_, err = e.EmbedText(context.Background(), "text")
	assert.ErrorIs(t, err, core.ErrProvider)
	assert.Equal(t, int32(1), requests.Load())
}

func TestNewEmbedder_Configuration(t *testing.T) {
	_, err := NewEmbedder(ai.NewConfig(ai.WithProvider(ai.ProviderCohere)))
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewEmbedder(ai.NewConfig(ai.WithAPIKey("k")))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
