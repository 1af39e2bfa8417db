// Package embed provides clients for the remote embedding and rerank
// provider. Queries and documents are embedded with different task
// identifiers; reranking scores (query, document) pairs jointly.
package embed

import (
	"context"
	"time"
)

// Task selects the embedding task identifier sent to the provider.
type Task string

const (
	// TaskQuery embeds a search query.
	TaskQuery Task = "retrieval.query"
	// TaskPassage embeds a document for storage.
	TaskPassage Task = "retrieval.passage"
)

// Default provider settings.
const (
	DefaultBaseURL     = "https://api.jina.ai"
	DefaultModel       = "jina-embeddings-v3"
	DefaultRerankModel = "jina-reranker-v2-base-multilingual"
	DefaultDimensions  = 1024
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 3
	DefaultPoolSize    = 8
)

// Embedder generates fixed-dimension embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string, task Task) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string, task Task) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// RerankScore is one scored document from a rerank call. Index refers to
// the position in the input documents slice.
type RerankScore struct {
	Index int
	Score float64
}

// Reranker scores documents for relevance to a query using a
// cross-encoder model.
type Reranker interface {
	// Rerank scores every document against the query and returns the
	// scores sorted by relevance descending.
	Rerank(ctx context.Context, query string, documents []string) ([]RerankScore, error)
}

// Config configures the provider client.
type Config struct {
	// APIKey is the bearer token for the provider.
	APIKey string
	// BaseURL overrides the provider endpoint (default: https://api.jina.ai).
	BaseURL string
	// Model is the embedding model (default: jina-embeddings-v3).
	Model string
	// RerankModel is the cross-encoder model (default: jina-reranker-v2-base-multilingual).
	RerankModel string
	// Dimensions is the embedding dimension (default: 1024).
	Dimensions int
	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration
	// MaxRetries is the number of attempts per request (default: 3).
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.RerankModel == "" {
		c.RerankModel = DefaultRerankModel
	}
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}
