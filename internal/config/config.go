// Package config loads the application configuration from YAML, filling
// in defaults for anything the file leaves out. Secrets are never stored
// in the file; the config names the environment variable that holds them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bull/refrag/internal/embedding"
	"github.com/bull/refrag/internal/retrieval"
)

// ErrInvalid marks a config that parsed but cannot be used.
var ErrInvalid = errors.New("invalid config")

// ChunkingConfig controls the sliding-window splitter. Overlap is a
// pointer so an explicit zero is distinguishable from an omitted field.
type ChunkingConfig struct {
	Size    int  `yaml:"size"`
	Overlap *int `yaml:"overlap,omitempty"`
}

// OpenAIConfig configures the remote embedding provider.
type OpenAIConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// OllamaConfig configures the local embedding provider.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbeddingConfig selects an embedding provider and its model.
type EmbeddingConfig struct {
	Source    string       `yaml:"source"`
	Model     string       `yaml:"model"`
	BatchSize int          `yaml:"batch_size"`
	Normalize *bool        `yaml:"normalize,omitempty"`
	OpenAI    OpenAIConfig `yaml:"openai"`
	Ollama    OllamaConfig `yaml:"ollama"`
}

// StoreConfig selects a vector store backend.
type StoreConfig struct {
	Type       string `yaml:"type"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// OutputsConfig names the ingestion artifacts written beside the index.
type OutputsConfig struct {
	MetadataPath  string `yaml:"metadata_path"`
	ModelNamePath string `yaml:"model_name_path"`
}

// RetrievalConfig tunes query-time behavior.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// Config is the root configuration.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Outputs   OutputsConfig   `yaml:"outputs"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Load reads a config file. A missing file yields defaults so the tool
// works out of the box against a local Qdrant.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// APIKey resolves the OpenAI key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.Embedding.OpenAI.APIKeyEnv)
}

// ChunkOverlap returns the effective chunk overlap after defaults.
func (c *Config) ChunkOverlap() int {
	if c.Chunking.Overlap == nil {
		return 0
	}
	return *c.Chunking.Overlap
}

// NormalizeVectors reports whether embeddings should be unit-normalized.
// Defaults to true when the file does not say.
func (c *Config) NormalizeVectors() bool {
	if c.Embedding.Normalize == nil {
		return true
	}
	return *c.Embedding.Normalize
}

func applyDefaults(cfg *Config) {
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 1200
	}
	if cfg.Chunking.Overlap == nil {
		// Keep the default 1200:200 ratio when the configured size is too
		// small for a flat 200.
		overlap := 200
		if overlap >= cfg.Chunking.Size {
			overlap = cfg.Chunking.Size / 6
		}
		cfg.Chunking.Overlap = &overlap
	}
	if cfg.Embedding.Source == "" {
		cfg.Embedding.Source = "openai"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Source {
		case "ollama":
			cfg.Embedding.Model = "nomic-embed-text"
		default:
			cfg.Embedding.Model = embedding.DefaultOpenAIModel
		}
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = embedding.DefaultBatchSize
	}
	if cfg.Embedding.OpenAI.APIKeyEnv == "" {
		cfg.Embedding.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Ollama.BaseURL == "" {
		cfg.Embedding.Ollama.BaseURL = embedding.DefaultOllamaBaseURL
	}
	if cfg.Embedding.Ollama.TimeoutSecs == 0 {
		cfg.Embedding.Ollama.TimeoutSecs = 60
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "qdrant"
	}
	if cfg.Store.Host == "" {
		cfg.Store.Host = "localhost"
	}
	if cfg.Store.Port == 0 {
		cfg.Store.Port = 6334
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "refrag"
	}
	if cfg.Outputs.MetadataPath == "" {
		cfg.Outputs.MetadataPath = "index/metadata.jsonl"
	}
	if cfg.Outputs.ModelNamePath == "" {
		cfg.Outputs.ModelNamePath = "index/model_name.txt"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = retrieval.DefaultTopK
	}
}

func validate(cfg *Config) error {
	switch cfg.Embedding.Source {
	case "openai", "ollama":
	default:
		return fmt.Errorf("%w: unknown embedding source %q", ErrInvalid, cfg.Embedding.Source)
	}
	switch cfg.Store.Type {
	case "qdrant", "memory":
	default:
		return fmt.Errorf("%w: unknown store type %q", ErrInvalid, cfg.Store.Type)
	}
	if cfg.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalid)
	}
	if overlap := cfg.ChunkOverlap(); overlap < 0 || overlap >= cfg.Chunking.Size {
		return fmt.Errorf("%w: overlap must be in [0, size)", ErrInvalid)
	}
	if cfg.Retrieval.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1", ErrInvalid)
	}
	return nil
}
