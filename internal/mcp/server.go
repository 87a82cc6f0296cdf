package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/refrag/internal/retrieval"
	"github.com/bull/refrag/internal/vectorstore"
)

// Server wraps the MCP server with its dependencies.
type Server struct {
	server    *mcp.Server
	retriever *retrieval.Retriever
	store     vectorstore.Store
}

// Config holds server dependencies.
type Config struct {
	Retriever *retrieval.Retriever
	Store     vectorstore.Store
	// Model is the embedding model the server embeds queries with.
	Model string
	// ModelNamePath points at the ingestion-time model record, optional.
	ModelNamePath string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "refrag-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_corpus",
		Description: "Search the indexed document corpus semantically. Returns the most relevant passages with source citations.",
	}, makeSearchHandler(cfg.Retriever))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current status of the corpus index: passage count, vector dimension and embedding model.",
	}, makeStatusHandler(cfg.Store, cfg.Model, cfg.ModelNamePath))

	return &Server{
		server:    server,
		retriever: cfg.Retriever,
		store:     cfg.Store,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
