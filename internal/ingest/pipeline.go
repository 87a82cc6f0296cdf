// Package ingest orchestrates one indexing run: document discovery,
// chunking, embedding, vector store upsert and the metadata sidecar.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/refrag/internal/chunker"
	"github.com/bull/refrag/internal/embedding"
	"github.com/bull/refrag/internal/extract"
	"github.com/bull/refrag/internal/vectorstore"
)

var (
	// ErrNoDocuments means discovery found nothing to index under the root.
	ErrNoDocuments = errors.New("no documents found")

	// ErrEmptyCorpus means every discovered document yielded zero chunks.
	ErrEmptyCorpus = errors.New("no chunks extracted from corpus")
)

// Options tunes one ingestion run.
type Options struct {
	ChunkSize     int
	Overlap       int
	Recreate      bool
	MetadataPath  string
	ModelNamePath string
}

// FailedDoc records a document that was skipped during ingestion.
type FailedDoc struct {
	Path   string
	Reason string
}

// Result contains statistics about an ingestion run.
type Result struct {
	TotalDocs      int
	SuccessfulDocs int
	TotalChunks    int
	FailedDocs     []FailedDoc
	Duration       time.Duration
}

// Pipeline wires the chunker, an embedding provider and a vector store
// into one ingestion run. A pipeline is cheap; build one per run.
type Pipeline struct {
	provider embedding.Provider
	store    vectorstore.Store
	opts     Options
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(provider embedding.Provider, store vectorstore.Store, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		provider: provider,
		store:    store,
		opts:     opts,
		logger:   logger,
	}
}

// Run ingests every supported document under root. A single document's
// extraction failure is logged and skipped; embedding and store failures
// are fatal for the run. Because upserts replace by id, re-running after a
// fatal error converges without data loss. Cancellation takes effect at
// document boundaries so no document is left partially written.
func (p *Pipeline) Run(ctx context.Context, root string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	paths, err := extract.Discover(root)
	if err != nil {
		return nil, fmt.Errorf("discover documents: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: under %s", ErrNoDocuments, root)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("starting ingestion", "documents", len(paths), "model", p.provider.Model())

	if p.opts.Recreate {
		if err := p.store.Recreate(ctx); err != nil {
			return nil, fmt.Errorf("recreate collection: %w", err)
		}
		p.logger.Info("collection recreated")
	}

	var allChunks []chunker.Chunk
	dimChecked := false

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ingestion cancelled after %d chunks: %w", result.TotalChunks, err)
		}

		pages, err := extract.Pages(path)
		if err != nil {
			p.logger.Warn("extraction failed, skipping document", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{Path: path, Reason: err.Error()})
			continue
		}

		chunks, err := chunker.SplitDocument(path, pages, p.opts.ChunkSize, p.opts.Overlap)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", path, err)
		}
		if len(chunks) == 0 {
			p.logger.Debug("document produced no chunks", "path", path)
			result.SuccessfulDocs++
			continue
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		vecs, err := p.provider.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed %s (%d chunks already ingested): %w",
				path, result.TotalChunks, err)
		}
		if len(vecs) != len(chunks) {
			return nil, fmt.Errorf("embed %s: got %d vectors for %d chunks",
				path, len(vecs), len(chunks))
		}

		// The first batch's dimensionality is checked against the existing
		// collection before anything is written, so a model switch fails
		// fast instead of corrupting the index.
		if !dimChecked {
			existing, err := p.store.Dimension(ctx)
			if err != nil {
				return nil, fmt.Errorf("probe collection dimension: %w", err)
			}
			if existing > 0 && existing != len(vecs[0]) {
				return nil, fmt.Errorf("%w: model %q produces %d dimensions, collection has %d",
					vectorstore.ErrDimensionMismatch, p.provider.Model(), len(vecs[0]), existing)
			}
			dimChecked = true
		}

		records := make([]vectorstore.Record, len(chunks))
		for i, c := range chunks {
			records[i] = vectorstore.Record{
				ID:     c.ID,
				Vector: vecs[i],
				Text:   c.Text,
				Meta:   c,
			}
		}
		if err := p.store.Upsert(ctx, records); err != nil {
			return nil, fmt.Errorf("upsert %s (%d chunks already ingested): %w",
				path, result.TotalChunks, err)
		}

		allChunks = append(allChunks, chunks...)
		result.SuccessfulDocs++
		result.TotalChunks += len(chunks)
		p.logger.Info("ingested document", "path", path, "pages", len(pages), "chunks", len(chunks))
	}

	if result.TotalChunks == 0 {
		return nil, fmt.Errorf("%w: %d documents under %s", ErrEmptyCorpus, len(paths), root)
	}

	if p.opts.MetadataPath != "" {
		if err := WriteSidecar(p.opts.MetadataPath, allChunks); err != nil {
			return nil, fmt.Errorf("write metadata sidecar: %w", err)
		}
	}
	if p.opts.ModelNamePath != "" {
		if err := WriteModelName(p.opts.ModelNamePath, p.provider.Model()); err != nil {
			return nil, fmt.Errorf("write model name: %w", err)
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}
