package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)

		embeddings := make([][]float64, len(req.Input))
		for i, text := range req.Input {
			embeddings[i] = []float64{float64(len(text)), 1}
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: embeddings})
	}))
	defer srv.Close()

	provider, err := NewOllamaProvider(OllamaConfig{
		BaseURL:   srv.URL,
		Model:     "all-minilm",
		BatchSize: 2,
	})
	require.NoError(t, err)

	vecs, err := provider.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.EqualValues(t, 2, requests.Load())
	assert.EqualValues(t, 1, vecs[0][0])
	assert.EqualValues(t, 2, vecs[1][0])
	assert.EqualValues(t, 3, vecs[2][0])
}

func TestOllamaProvider_RetriesServerError(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float64{{1, 0}}})
	}))
	defer srv.Close()

	provider, err := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL, Model: "all-minilm"})
	require.NoError(t, err)

	vecs, err := provider.EmbedBatch(context.Background(), []string{"x"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.EqualValues(t, 2, requests.Load())
}

func TestOllamaProvider_PermanentError(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	provider, err := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL, Model: "nope"})
	require.NoError(t, err)

	_, err = provider.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProvider))
	assert.EqualValues(t, 1, requests.Load())
}

func TestOllamaProvider_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float64{{1}}})
	}))
	defer srv.Close()

	provider, err := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL, Model: "all-minilm"})
	require.NoError(t, err)

	_, err = provider.EmbedBatch(context.Background(), []string{"x", "y"})
	assert.True(t, errors.Is(err, ErrProvider))
}

func TestNewOllamaProvider_MissingModel(t *testing.T) {
	_, err := NewOllamaProvider(OllamaConfig{})
	assert.True(t, errors.Is(err, ErrProvider))
}
