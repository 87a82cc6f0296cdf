// Package embedding maps batches of text to fixed-dimension float vectors.
// Two providers share one contract: a remote OpenAI-compatible API and a
// local Ollama model server.
package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrProvider marks a non-retryable embedding failure (bad request,
// authentication, exhausted retries).
var ErrProvider = errors.New("embedding provider error")

// Default tuning shared by both providers.
const (
	// DefaultBatchSize balances request count against per-request payload
	// size for remote embedding APIs.
	DefaultBatchSize = 64

	// normEpsilon guards Normalize against zero-norm vectors.
	normEpsilon = 1e-12
)

// Provider turns text into embedding vectors. Implementations must return
// exactly one vector per input, in input order, all with identical
// dimensionality.
type Provider interface {
	// EmbedBatch embeds texts, batching internally as needed.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the embedding model, recorded at ingestion time so
	// queries can be checked against the same model.
	Model() string
}

// Normalize scales vec to unit L2 norm in place. Vectors with norm below
// epsilon are left unchanged rather than amplified into noise. On
// normalized vectors the dot product equals cosine similarity.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm < normEpsilon {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

// toFloat32 converts an API float64 vector to the float32 storage type.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
