// Package mcp exposes the indexed corpus to MCP clients: semantic search
// with citations and an index status tool.
package mcp

// SearchCorpusInput defines the input parameters for the search_corpus tool.
type SearchCorpusInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query for finding relevant passages"`
	// TopK is the maximum number of passages to return.
	TopK int `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of passages to return"`
	// MinScore is the minimum similarity threshold (0-1).
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum=0,maximum=1,default=0,description=Minimum similarity score threshold (0-1)"`
}

// SearchCorpusOutput contains the search results.
type SearchCorpusOutput struct {
	// Results is the list of matching passages, best first.
	Results []PassageResult `json:"results"`
	// Message provides informational context when the result set is empty.
	Message string `json:"message,omitempty"`
}

// PassageResult is a single retrieved passage with its citation.
type PassageResult struct {
	// Source is the path of the document the passage came from.
	Source string `json:"source"`
	// Page is the 1-based page or section number within the document.
	Page int `json:"page"`
	// Score is the cosine similarity to the query.
	Score float64 `json:"score"`
	// Preview is an excerpt of the passage text.
	Preview string `json:"preview"`
	// Citation is a human-readable reference for the passage.
	Citation string `json:"citation"`
}

// StatusInput defines the input for get_index_status. No parameters.
type StatusInput struct{}

// StatusOutput describes the current state of the index.
type StatusOutput struct {
	// TotalChunks is the number of indexed passages.
	TotalChunks int `json:"total_chunks"`
	// Dimension is the vector dimensionality of the collection, 0 if empty.
	Dimension int `json:"dimension"`
	// EmbeddingModel is the model the server will embed queries with.
	EmbeddingModel string `json:"embedding_model"`
	// IndexedModel is the model recorded at ingestion time, if known.
	IndexedModel string `json:"indexed_model,omitempty"`
	// ModelMismatch warns when query and ingestion models differ.
	ModelMismatch string `json:"model_mismatch,omitempty"`
}
