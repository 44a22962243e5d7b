// Package embed provides text embedding for article chunks and queries.
//
// The production provider is any OpenAI-compatible /v1/embeddings
// endpoint. A TTL-bounded cache wraps the provider for query-time use,
// and a deterministic static embedder backs tests.
package embed

import (
	"context"
	"time"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources held by the embedder.
	Close() error
}

// Defaults for the OpenAI-compatible provider.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-large"
	DefaultDimensions = 3072
	DefaultBatchSize  = 10
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
)

// Config configures the OpenAI-compatible embedder.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
}
