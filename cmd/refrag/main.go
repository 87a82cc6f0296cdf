// Package main provides the refrag CLI for corpus indexing and retrieval.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/refrag/internal/config"
	"github.com/bull/refrag/internal/embedding"
	"github.com/bull/refrag/internal/ingest"
	"github.com/bull/refrag/internal/retrieval"
	"github.com/bull/refrag/internal/vectorstore"
)

var (
	configPath string
	recreate   bool
	topK       int
)

var rootCmd = &cobra.Command{
	Use:   "refrag",
	Short: "Local document corpus indexing and semantic retrieval",
	Long:  "CLI tool for chunking a document corpus, embedding it into a vector store and querying it with citations",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <corpus-dir>",
	Short: "Index all supported documents under a directory",
	Long: `Discovers .pdf, .txt and .md files, splits them into overlapping
chunks, embeds the chunks and upserts them into the vector store.

Re-running converges: chunks replace by id, so a failed run can simply
be retried. Pass --recreate to drop the collection and rebuild from
scratch instead.

Environment variables:
  OPENAI_API_KEY  OpenAI API key (required for the openai source)`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve the passages most relevant to a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current state of the index",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	ingestCmd.Flags().BoolVar(&recreate, "recreate", false, "drop and rebuild the collection")
	queryCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of results (default from config)")
	rootCmd.AddCommand(ingestCmd, queryCmd, statusCmd)
}

func main() {
	// Load .env if present for local development; missing is fine.
	_ = godotenv.Load()

	// Ctrl-C cancels between documents so no document is half-written.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// buildProvider constructs the embedding provider the config selects.
func buildProvider(cfg *config.Config) (embedding.Provider, error) {
	switch cfg.Embedding.Source {
	case "ollama":
		return embedding.NewOllamaProvider(embedding.OllamaConfig{
			BaseURL:   cfg.Embedding.Ollama.BaseURL,
			Model:     cfg.Embedding.Model,
			BatchSize: cfg.Embedding.BatchSize,
			Normalize: cfg.NormalizeVectors(),
			Timeout:   time.Duration(cfg.Embedding.Ollama.TimeoutSecs) * time.Second,
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

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Embedding with %s (%s)\n", provider.Model(), cfg.Embedding.Source)

	store, err := buildStore(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline := ingest.NewPipeline(provider, store, ingest.Options{
		ChunkSize:     cfg.Chunking.Size,
		Overlap:       cfg.ChunkOverlap(),
		Recreate:      recreate,
		MetadataPath:  cfg.Outputs.MetadataPath,
		ModelNamePath: cfg.Outputs.ModelNamePath,
	}, slog.Default())

	result, err := pipeline.Run(ctx, args[0])
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	store, err := buildStore(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer store.Close()

	if indexed, err := ingest.ReadModelName(cfg.Outputs.ModelNamePath); err == nil &&
		indexed != "" && indexed != provider.Model() {
		fmt.Fprintf(os.Stderr, "warning: index was built with %q but querying with %q\n",
			indexed, provider.Model())
	}

	k := topK
	if k <= 0 {
		k = cfg.Retrieval.TopK
	}

	retriever := retrieval.NewRetriever(provider, store, slog.Default())
	results, err := retriever.Retrieve(ctx, args[0], k)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matching passages found.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, r.Citation())
		fmt.Printf("   %s\n\n", r.Preview)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	store, err := buildStore(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count passages: %w", err)
	}
	dim, err := store.Dimension(ctx)
	if err != nil {
		return fmt.Errorf("probe dimension: %w", err)
	}

	fmt.Printf("Store:      %s (%s)\n", cfg.Store.Type, cfg.Store.Collection)
	fmt.Printf("Chunks:     %d\n", count)
	fmt.Printf("Dimension:  %d\n", dim)
	fmt.Printf("Model:      %s\n", provider.Model())

	if indexed, err := ingest.ReadModelName(cfg.Outputs.ModelNamePath); err == nil && indexed != "" {
		fmt.Printf("Indexed by: %s\n", indexed)
		if indexed != provider.Model() {
			fmt.Println()
			fmt.Println("warning: query model differs from the model that built the index")
		}
	}
	return nil
}
