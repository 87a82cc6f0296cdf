package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/refrag/internal/ingest"
	"github.com/bull/refrag/internal/retrieval"
	"github.com/bull/refrag/internal/vectorstore"
)

// makeSearchHandler creates the search_corpus tool handler. The query is
// embedded with the same model that built the index and ranked by cosine
// similarity; an empty result set is reported to the client as guidance,
// not an error.
func makeSearchHandler(retriever *retrieval.Retriever) func(
	context.Context, *mcp.CallToolRequest, SearchCorpusInput,
) (*mcp.CallToolResult, SearchCorpusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchCorpusInput) (
		*mcp.CallToolResult, SearchCorpusOutput, error,
	) {
		topK := input.TopK
		if topK <= 0 {
			topK = retrieval.DefaultTopK
		}

		results, err := retriever.Retrieve(ctx, input.Query, topK)
		if err != nil {
			if errors.Is(err, retrieval.ErrEmptyQuery) {
				return nil, SearchCorpusOutput{}, fmt.Errorf("query must not be empty")
			}
			return nil, SearchCorpusOutput{}, fmt.Errorf("search failed: %w", err)
		}

		passages := make([]PassageResult, 0, len(results))
		for _, r := range results {
			if r.Score < input.MinScore {
				continue
			}
			passages = append(passages, PassageResult{
				Source:   r.Source,
				Page:     r.Page,
				Score:    r.Score,
				Preview:  r.Preview,
				Citation: r.Citation(),
			})
		}

		if len(passages) == 0 {
			return nil, SearchCorpusOutput{
				Results: []PassageResult{},
				Message: "No matching passages found. Try broader terms, or run an ingestion if the index is empty.",
			}, nil
		}
		return nil, SearchCorpusOutput{Results: passages}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler. It compares
// the server's embedding model with the one recorded at ingestion time and
// warns on a mismatch instead of silently returning meaningless scores.
func makeStatusHandler(store vectorstore.Store, model, modelNamePath string) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		count, err := store.Count(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("count passages: %w", err)
		}
		dim, err := store.Dimension(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("probe dimension: %w", err)
		}

		out := StatusOutput{
			TotalChunks:    count,
			Dimension:      dim,
			EmbeddingModel: model,
		}

		if modelNamePath != "" {
			indexed, err := ingest.ReadModelName(modelNamePath)
			if err == nil && indexed != "" {
				out.IndexedModel = indexed
				if indexed != model {
					out.ModelMismatch = fmt.Sprintf(
						"index was built with %q but queries use %q; results will be unreliable", indexed, model)
				}
			}
		}
		return nil, out, nil
	}
}
