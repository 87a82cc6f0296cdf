// Package vectorstore persists embedded chunks and answers similarity
// queries. The Qdrant implementation backs real corpora; the in-memory
// implementation serves small corpora and tests.
package vectorstore

import (
	"context"

	"github.com/bull/refrag/internal/chunker"
)

// Record is the persisted unit: an id, its embedding, the chunk text and
// the chunk's provenance metadata. Re-upserting an id replaces the record.
type Record struct {
	ID     string
	Vector []float32
	Text   string
	Meta   chunker.Chunk
}

// Scored is one query result. Score is always a similarity: higher means
// more relevant, regardless of the backend's native distance metric.
type Scored struct {
	ID    string
	Score float64
	Text  string
	Meta  chunker.Chunk
}

// Store is the contract shared by all vector store backends.
type Store interface {
	// Upsert writes records keyed by id, batching as the backend requires.
	// Writing the same record twice leaves a single stored copy.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to k records nearest to vector by cosine
	// similarity, ordered by descending score. A store holding fewer than
	// k records returns everything it has.
	Query(ctx context.Context, vector []float32, k int) ([]Scored, error)

	// Recreate drops all stored records and starts an empty collection.
	Recreate(ctx context.Context) error

	// Dimension reports the collection's vector dimensionality, 0 when
	// nothing has been stored yet.
	Dimension(ctx context.Context) (int, error)

	// Count reports the number of stored records.
	Count(ctx context.Context) (int, error)

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error

	// Close releases backend connections.
	Close() error
}
