package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/refrag/internal/chunker"
)

// upsertBatchSize caps how many points go into a single Upsert call, to
// bound memory and respect backend request limits.
const upsertBatchSize = 256

// QdrantStore persists records in a Qdrant collection over gRPC, using
// cosine distance. Qdrant reports cosine scores as similarities (higher is
// better), so no transform is applied at the query boundary.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dim        uint64
}

// NewQdrantStore connects to Qdrant, verifies health with retry, and
// ensures the named collection exists with the given vector
// dimensionality. An existing collection with a different dimensionality
// is a configuration error surfaced as ErrDimensionMismatch. Passing
// dim 0 adopts the existing collection's dimensionality instead, and
// fails with ErrCollectionNotFound when there is nothing to adopt; read
// paths use this to avoid probing the embedding provider.
func NewQdrantStore(host string, port int, collection string, dim int) (*QdrantStore, error) {
	if dim < 0 {
		return nil, fmt.Errorf("%w: collection dimension must not be negative", ErrDimensionMismatch)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &QdrantStore{
		client:     client,
		collection: collection,
		dim:        uint64(dim),
	}

	ctx := context.Background()
	if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return s, nil
}

// healthCheckWithRetry probes Qdrant with exponential backoff so a store
// that is still starting up does not fail ingestion immediately.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// ensureCollection creates the collection when absent and validates its
// dimensionality when present. With dim 0 the existing collection's
// dimensionality is adopted instead of validated. Idempotent.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	for _, name := range collections {
		if name != s.collection {
			continue
		}
		existing, err := s.collectionDimension(ctx)
		if err != nil {
			return err
		}
		if s.dim == 0 {
			s.dim = existing
			return nil
		}
		if existing != s.dim {
			return fmt.Errorf("%w: collection %q has %d dimensions, configured for %d",
				ErrDimensionMismatch, s.collection, existing, s.dim)
		}
		return nil
	}

	if s.dim == 0 {
		return fmt.Errorf("%w: %q has no collection to adopt a dimension from",
			ErrCollectionNotFound, s.collection)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", s.collection, err)
	}
	return nil
}

// collectionDimension reads the vector size recorded in the collection's
// configuration.
func (s *QdrantStore) collectionDimension(ctx context.Context) (uint64, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("get collection %q: %w", s.collection, err)
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size == 0 {
		return 0, fmt.Errorf("collection %q has no vector configuration", s.collection)
	}
	return size, nil
}

// Recreate drops the collection if present and creates it empty with the
// configured dimensionality and metric. Used for full rebuilds instead of
// incremental updates.
func (s *QdrantStore) Recreate(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("delete collection %q: %w", s.collection, err)
	}
	return s.ensureCollection(ctx)
}

// Upsert writes records in batches, replacing any existing points with the
// same ids. Safe to re-run with identical records.
func (s *QdrantStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	for i, r := range records {
		if uint64(len(r.Vector)) != s.dim {
			return fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(r.Vector), s.dim)
		}
	}

	for i := 0; i < len(records); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(records))
		batch := records[i:end]

		points := make([]*qdrant.PointStruct, len(batch))
		for j, r := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(r.ID),
				Vectors: qdrant.NewVectors(r.Vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"source": r.Meta.Source,
					"page":   int64(r.Meta.Page),
					"start":  int64(r.Meta.Start),
					"end":    int64(r.Meta.End),
					"text":   r.Text,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}, backoff.WithContext(b, ctx))
}

// Query returns up to k nearest records by cosine similarity, highest
// score first.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, k int) ([]Scored, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k=%d", ErrInvalidLimit, k)
	}
	if uint64(len(vector)) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dim)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %q: %w", s.collection, err)
	}

	scored := make([]Scored, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		id := result.Id.GetUuid()
		scored = append(scored, Scored{
			ID:    id,
			Score: float64(result.Score),
			Text:  payload["text"].GetStringValue(),
			Meta: chunker.Chunk{
				ID:     id,
				Source: payload["source"].GetStringValue(),
				Page:   int(payload["page"].GetIntegerValue()),
				Start:  int(payload["start"].GetIntegerValue()),
				End:    int(payload["end"].GetIntegerValue()),
			},
		})
	}
	return scored, nil
}

// Dimension reports the configured vector dimensionality, 0 when the
// collection does not exist.
func (s *QdrantStore) Dimension(ctx context.Context) (int, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return 0, fmt.Errorf("list collections: %w", err)
	}
	for _, name := range collections {
		if name == s.collection {
			dim, err := s.collectionDimension(ctx)
			return int(dim), err
		}
	}
	return 0, nil
}

// Count reports the number of stored points.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("get collection %q: %w", s.collection, err)
	}
	return int(info.GetPointsCount()), nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
