// Package main provides the MCP server entry point for corpus retrieval.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/refrag/internal/config"
	"github.com/bull/refrag/internal/embedding"
	mcpserver "github.com/bull/refrag/internal/mcp"
	"github.com/bull/refrag/internal/retrieval"
	"github.com/bull/refrag/internal/vectorstore"
)

func main() {
	// Load .env file if present (local development), ignore if missing.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	configPath := getEnv("REFRAG_CONFIG", "config.yaml")
	port := getEnv("PORT", "8080")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		log.Fatalf("failed to create embedding provider: %v", err)
	}

	store, err := buildStore(ctx, cfg, provider)
	if err != nil {
		log.Fatalf("failed to connect to vector store: %v", err)
	}
	defer store.Close()

	retriever := retrieval.NewRetriever(provider, store, nil)

	server := mcpserver.NewServer(&mcpserver.Config{
		Retriever:     retriever,
		Store:         store,
		Model:         provider.Model(),
		ModelNamePath: cfg.Outputs.ModelNamePath,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	serverMode := getEnv("SERVER_MODE", "false") == "true"

	if serverMode {
		addr := "0.0.0.0:" + port
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Stdio mode for local clients, with the health endpoint in the
		// background for probes.
		go func() {
			addr := "0.0.0.0:" + port
			log.Printf("Starting health server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Health server error: %v", err)
			}
		}()

		log.Println("Starting corpus MCP server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
}

func buildProvider(cfg *config.Config) (embedding.Provider, error) {
	switch cfg.Embedding.Source {
	case "ollama":
		return embedding.NewOllamaProvider(embedding.OllamaConfig{
			BaseURL:   cfg.Embedding.Ollama.BaseURL,
			Model:     cfg.Embedding.Model,
			BatchSize: cfg.Embedding.BatchSize,
			Normalize: cfg.NormalizeVectors(),
		})
	default:
		return embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:    cfg.APIKey(),
			BaseURL:   cfg.Embedding.OpenAI.BaseURL,
			Model:     cfg.Embedding.Model,
			BatchSize: cfg.Embedding.BatchSize,
			Normalize: cfg.NormalizeVectors(),
		})
	}
}

// buildStore connects to the configured vector store. An existing Qdrant
// collection supplies its own dimensionality; only when the collection
// must be created does the provider embed one probe text to size it.
func buildStore(ctx context.Context, cfg *config.Config, provider embedding.Provider) (vectorstore.Store, error) {
	switch cfg.Store.Type {
	case "memory":
		return vectorstore.NewMemoryStore(), nil
	default:
		store, err := vectorstore.NewQdrantStore(cfg.Store.Host, cfg.Store.Port, cfg.Store.Collection, 0)
		if err == nil {
			return store, nil
		}
		if !errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return nil, err
		}
		vecs, err := provider.EmbedBatch(ctx, []string{"dimension probe"})
		if err != nil {
			return nil, fmt.Errorf("probe embedding dimension: %w", err)
		}
		return vectorstore.NewQdrantStore(cfg.Store.Host, cfg.Store.Port, cfg.Store.Collection, len(vecs[0]))
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
