package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a process-scoped Store for small corpora: a flat slice of
// vectors searched by brute-force cosine similarity. Nothing is persisted;
// the index is rebuilt from scratch on every run.
type MemoryStore struct {
	mu      sync.RWMutex
	dim     int
	records []Record
	byID    map[string]int
}

// NewMemoryStore creates an empty in-memory index.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

// Upsert appends new records and replaces existing ids in place, keeping
// the original insertion position so repeated writes stay idempotent.
func (s *MemoryStore) Upsert(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range records {
		if s.dim == 0 {
			s.dim = len(r.Vector)
		}
		if len(r.Vector) != s.dim {
			return fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(r.Vector), s.dim)
		}
		if pos, ok := s.byID[r.ID]; ok {
			s.records[pos] = r
			continue
		}
		s.byID[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	return nil
}

// Query computes cosine similarity against every stored vector and returns
// the top k, highest first. Ties keep insertion order (stable sort).
func (s *MemoryStore) Query(ctx context.Context, vector []float32, k int) ([]Scored, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k=%d", ErrInvalidLimit, k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dim)
	}

	scores := make([]float64, len(s.records))
	for i, r := range s.records {
		scores[i] = cosine(r.Vector, vector)
	}

	idx := make([]int, len(s.records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	if k > len(idx) {
		k = len(idx)
	}
	results := make([]Scored, 0, k)
	for _, i := range idx[:k] {
		r := s.records[i]
		results = append(results, Scored{
			ID:    r.ID,
			Score: scores[i],
			Text:  r.Text,
			Meta:  r.Meta,
		})
	}
	return results, nil
}

// Recreate drops every record.
func (s *MemoryStore) Recreate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dim = 0
	s.records = nil
	s.byID = make(map[string]int)
	return nil
}

// Dimension reports the dimensionality of stored vectors, 0 when empty.
func (s *MemoryStore) Dimension(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim, nil
}

// Count reports the number of stored records.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Health always succeeds; there is no backend to lose.
func (s *MemoryStore) Health(ctx context.Context) error { return nil }

// Close is a no-op; the index lives and dies with the process.
func (s *MemoryStore) Close() error { return nil }

// cosine computes the cosine of the angle between a and b, equivalent to
// the dot product of their unit-normalized forms. Zero-norm vectors score
// zero against everything.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	norm := math.Sqrt(na) * math.Sqrt(nb)
	if norm == 0 {
		return 0
	}
	return dot / norm
}
