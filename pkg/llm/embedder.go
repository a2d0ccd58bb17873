package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"
)

// EmbedderConfig represents the configuration for an embedding provider.
type EmbedderConfig struct {
	Provider  string // "huggingface" or "ollama"
	Model     string
	Token     string // HuggingFace Inference API token
	BaseURL   string // Ollama server URL
	VectorDim int
	BatchSize int
	RateLimit float64 // requests per second against the provider
}

// embeddingClient is the slice of the provider clients we use.
type embeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder turns text into vectors through a hosted or local embedding
// model, batching requests and rate-limiting calls to the provider.
type Embedder struct {
	config  EmbedderConfig
	client  embeddingClient
	limiter *rate.Limiter
}

// hfClient adapts the HuggingFace Inference API client, which takes the
// model and task per call, to the common embedding interface.
type hfClient struct {
	llm   *huggingface.LLM
	model string
}

func (c *hfClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return c.llm.CreateEmbedding(ctx, texts, c.model, "feature-extraction")
}

// NewEmbedderWithConfig creates an Embedder for the configured provider.
func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Provider == "" {
		config.Provider = "huggingface"
	}
	if config.BatchSize == 0 {
		config.BatchSize = 32
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2.0
	}

	var client embeddingClient

	switch config.Provider {
	case "huggingface":
		if config.Model == "" {
			config.Model = "sentence-transformers/all-MiniLM-L6-v2"
		}
		if config.VectorDim == 0 {
			config.VectorDim = 384
		}

		opts := []huggingface.Option{huggingface.WithModel(config.Model)}
		if config.Token != "" {
			opts = append(opts, huggingface.WithToken(config.Token))
		}
		hf, err := huggingface.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize HuggingFace client: %w", err)
		}
		client = &hfClient{llm: hf, model: config.Model}

	case "ollama":
		if config.Model == "" {
			config.Model = "nomic-embed-text"
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		if config.VectorDim == 0 {
			config.VectorDim = 768
		}

		ol, err := ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama client: %w", err)
		}
		client = ol

	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want huggingface or ollama)", config.Provider)
	}

	return &Embedder{
		config:  config,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Model returns the configured embedding model name.
func (e *Embedder) Model() string {
	return e.config.Model
}

// Dimension returns the expected vector dimensionality.
func (e *Embedder) Dimension() int {
	return e.config.VectorDim
}

// EmbedDocuments embeds texts in rate-limited batches, preserving order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		embeddings, err := e.client.CreateEmbedding(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w", err)
		}
		if len(embeddings) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors",
				len(batch), len(embeddings))
		}

		vectors = append(vectors, embeddings...)
	}

	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return vectors[0], nil
}
