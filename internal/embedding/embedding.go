// Package embedding wraps the external embedding service behind a
// small client. The service is OpenAI-compatible, so an Ollama or
// OpenAI endpoint works interchangeably through the base URL.
package embedding

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"

	"github.com/rssai/internal/config"
	"github.com/rssai/pkg/models"
)

// Embedder converts text into fixed-dimension vectors
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Client is the go-openai backed embedder
type Client struct {
	api        *openai.Client
	model      openai.EmbeddingModel
	dimension  int
	truncate   int
	timeout    time.Duration
	maxRetries uint64
}

// NewClient creates an embedding client from configuration.
func NewClient(cfg config.EmbeddingConfig) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.Duration(30 * time.Second)
	}
	return &Client{
		api:        openai.NewClientWithConfig(apiCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimension:  cfg.Dimension,
		truncate:   cfg.TruncateChars,
		timeout:    cfg.Timeout.Std(),
		maxRetries: uint64(cfg.MaxRetries),
	}
}

// Dimension returns the expected vector dimensionality.
func (c *Client) Dimension() int {
	return c.dimension
}

// EmbedText embeds a single text, truncated to the input budget.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds several texts in one request. Transient service
// failures are retried with exponential backoff before the call is
// reported as an EmbeddingError.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	input := make([]string, len(texts))
	for i, text := range texts {
		input[i] = Truncate(text, c.truncate)
	}

	var resp openai.EmbeddingResponse
	operation := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var err error
		resp, err = c.api.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
			Input: input,
			Model: c.model,
		})
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, models.E(models.ErrEmbedding, "embedding.EmbedBatch", "", err)
	}

	if len(resp.Data) != len(input) {
		return nil, models.Errorf(models.ErrEmbedding, "embedding.EmbedBatch", "",
			"service returned %d vectors for %d inputs", len(resp.Data), len(input))
	}
	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, models.Errorf(models.ErrEmbedding, "embedding.EmbedBatch", "",
				"service returned out-of-range index %d", item.Index)
		}
		if c.dimension > 0 && len(item.Embedding) != c.dimension {
			return nil, models.Errorf(models.ErrEmbedding, "embedding.EmbedBatch", "",
				"service returned %d-dimension vector, want %d", len(item.Embedding), c.dimension)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// Truncate bounds text to max runes so embedding inputs respect the
// service's limits.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
