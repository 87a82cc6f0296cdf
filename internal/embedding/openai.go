package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is the embedding model used when none is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures the remote embedding provider. APIKey is
// required; BaseURL overrides the endpoint for OpenAI-compatible servers
// and tests.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	BatchSize int
	Normalize bool
}

// OpenAIProvider generates embeddings through the OpenAI embeddings API.
// Requests are partitioned into batches and concatenated in submission
// order; rate limits and server errors are retried with exponential
// backoff, other API errors fail the batch immediately.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	batchSize int
	normalize bool
}

// NewOpenAIProvider creates a provider from an explicit configuration.
// Credentials are passed in by the caller; this package never reads the
// process environment.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrProvider)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	// Retries live in embedWithRetry so both providers share one policy.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		normalize: cfg.Normalize,
	}, nil
}

// Model returns the configured embedding model name.
func (p *OpenAIProvider) Model() string { return p.model }

// EmbedBatch embeds texts in batches of the configured size, one API call
// per batch.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

// embedWithRetry issues one embeddings call, retrying transient failures
// (network errors, HTTP 429 and 5xx) with exponential backoff.
func (p *OpenAIProvider) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32

	operation := func() error {
		resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model:          openai.EmbeddingModel(p.model),
			EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
		})
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrProvider, err))
		}
		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("%w: got %d embeddings for %d inputs",
				ErrProvider, len(resp.Data), len(texts)))
		}

		vecs = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vecs[i] = toFloat32(data.Embedding)
			if p.normalize {
				Normalize(vecs[i])
			}
		}
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

// isRetryable reports whether an embeddings call failure is transient.
// Rate limits (429) and server errors (5xx) are retried; other API errors
// are permanent. Non-API errors are treated as network issues and retried.
func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return true
}
