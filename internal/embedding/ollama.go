package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultOllamaBaseURL is the local Ollama server address.
const DefaultOllamaBaseURL = "http://localhost:11434"

// OllamaConfig configures the local-model embedding provider backed by an
// Ollama server.
type OllamaConfig struct {
	BaseURL   string
	Model     string
	BatchSize int
	Normalize bool
	Timeout   time.Duration
}

// OllamaProvider generates embeddings against a locally hosted model via
// Ollama's /api/embed endpoint. The model stays loaded in the server
// across calls, so construction is cheap and embedding amortizes the
// model load.
type OllamaProvider struct {
	baseURL   string
	model     string
	batchSize int
	normalize bool
	client    *http.Client
}

// NewOllamaProvider creates a provider for a local Ollama server.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrProvider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}

	return &OllamaProvider{
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		normalize: cfg.Normalize,
		client:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Model returns the configured model name.
func (p *OllamaProvider) Model() string { return p.model }

// EmbedBatch embeds texts in batches of the configured size.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += p.batchSize {
		end := min(i+p.batchSize, len(texts))
		vecs, err := p.embedWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (p *OllamaProvider) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32

	operation := func() error {
		got, err := p.embedOnce(ctx, texts)
		if err != nil {
			return err
		}
		vecs = got
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return vecs, nil
}

func (p *OllamaProvider) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %v", ErrProvider, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %v", ErrProvider, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err // transport error, retryable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("ollama embed: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, backoff.Permanent(fmt.Errorf("%w: %s: %s", ErrProvider, resp.Status, snippet))
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: decode response: %v", ErrProvider, err))
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, backoff.Permanent(fmt.Errorf("%w: got %d embeddings for %d inputs",
			ErrProvider, len(parsed.Embeddings), len(texts)))
	}

	vecs := make([][]float32, len(parsed.Embeddings))
	for i, e := range parsed.Embeddings {
		vecs[i] = toFloat32(e)
		if p.normalize {
			Normalize(vecs[i])
		}
	}
	return vecs, nil
}
