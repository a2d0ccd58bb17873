package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeEmbeddingClient struct {
	calls  [][]string
	failOn int // 1-based call index to fail on, 0 disables
	short  bool
}

func (f *fakeEmbeddingClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.failOn == len(f.calls) {
		return nil, fmt.Errorf("provider unavailable")
	}

	n := len(texts)
	if f.short {
		n--
	}
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return vectors, nil
}

func newTestEmbedder(client embeddingClient, batchSize int) *Embedder {
	return &Embedder{
		config:  EmbedderConfig{Model: "test-model", VectorDim: 3, BatchSize: batchSize},
		client:  client,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func TestNewEmbedderWithConfig(t *testing.T) {
	t.Run("huggingface defaults", func(t *testing.T) {
		e, err := NewEmbedderWithConfig(EmbedderConfig{Provider: "huggingface", Token: "hf-test"})
		require.NoError(t, err)
		assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", e.Model())
		assert.Equal(t, 384, e.Dimension())
		assert.Equal(t, 32, e.config.BatchSize)
	})

	t.Run("ollama defaults", func(t *testing.T) {
		e, err := NewEmbedderWithConfig(EmbedderConfig{Provider: "ollama"})
		require.NoError(t, err)
		assert.Equal(t, "nomic-embed-text", e.Model())
		assert.Equal(t, 768, e.Dimension())
		assert.Equal(t, "http://localhost:11434", e.config.BaseURL)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewEmbedderWithConfig(EmbedderConfig{Provider: "cohere"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown embedding provider")
	})
}

func TestEmbedDocumentsBatching(t *testing.T) {
	client := &fakeEmbeddingClient{}
	e := newTestEmbedder(client, 2)

	texts := []string{"one", "two", "three", "four", "five"}
	vectors, err := e.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)

	assert.Len(t, vectors, 5)
	require.Len(t, client.calls, 3)
	assert.Equal(t, []string{"one", "two"}, client.calls[0])
	assert.Equal(t, []string{"three", "four"}, client.calls[1])
	assert.Equal(t, []string{"five"}, client.calls[2])
	assert.Equal(t, float32(3), vectors[0][0])
	assert.Equal(t, float32(5), vectors[2][0])
}

func TestEmbedDocumentsEmpty(t *testing.T) {
	client := &fakeEmbeddingClient{}
	e := newTestEmbedder(client, 2)

	vectors, err := e.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Empty(t, client.calls)
}

func TestEmbedDocumentsProviderError(t *testing.T) {
	client := &fakeEmbeddingClient{failOn: 2}
	e := newTestEmbedder(client, 2)

	_, err := e.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create embeddings")
}

func TestEmbedDocumentsCountMismatch(t *testing.T) {
	client := &fakeEmbeddingClient{short: true}
	e := newTestEmbedder(client, 4)

	_, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding count mismatch")
}

func TestEmbedQuery(t *testing.T) {
	client := &fakeEmbeddingClient{}
	e := newTestEmbedder(client, 4)

	vector, err := e.EmbedQuery(context.Background(), "what is this")
	require.NoError(t, err)
	assert.Equal(t, []float32{12, 1, 0}, vector)
}
