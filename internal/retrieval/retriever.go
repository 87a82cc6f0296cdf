// Package retrieval answers natural-language queries against an indexed
// corpus: embed the query, rank stored chunks by similarity and return
// citable results.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/refrag/internal/chunker"
	"github.com/bull/refrag/internal/embedding"
	"github.com/bull/refrag/internal/vectorstore"
)

// ErrEmptyQuery is returned for a blank or whitespace-only query.
var ErrEmptyQuery = errors.New("empty query")

// DefaultTopK is the number of results returned when the caller does not
// ask for a specific count.
const DefaultTopK = 5

// previewRunes bounds the excerpt included with each result.
const previewRunes = 200

// Result is one retrieved chunk with enough context to cite it.
type Result struct {
	ID      string        `json:"id"`
	Score   float64       `json:"score"`
	Source  string        `json:"source"`
	Page    int           `json:"page"`
	Preview string        `json:"preview"`
	Meta    chunker.Chunk `json:"-"`
}

// Citation renders a human-readable reference for the result.
func (r Result) Citation() string {
	return fmt.Sprintf("%s (page %d)", r.Source, r.Page)
}

// Retriever embeds queries with the same provider that built the index
// and searches the vector store.
type Retriever struct {
	provider embedding.Provider
	store    vectorstore.Store
	logger   *slog.Logger
}

// NewRetriever creates a retriever over an already-populated store.
func NewRetriever(provider embedding.Provider, store vectorstore.Store, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{provider: provider, store: store, logger: logger}
}

// Retrieve returns the k chunks most similar to the query, best first.
// Fewer than k results is not an error; k < 1 is.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k=%d", vectorstore.ErrInvalidLimit, k)
	}

	vecs, err := r.provider.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors for one input", len(vecs))
	}

	scored, err := r.store.Query(ctx, vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("search store: %w", err)
	}

	results := make([]Result, len(scored))
	for i, s := range scored {
		results[i] = Result{
			ID:      s.ID,
			Score:   s.Score,
			Source:  s.Meta.Source,
			Page:    s.Meta.Page,
			Preview: preview(s.Text),
			Meta:    s.Meta,
		}
	}
	r.logger.Debug("retrieved results", "query_len", len(query), "k", k, "returned", len(results))
	return results, nil
}

// preview truncates text to previewRunes runes without splitting a rune.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
