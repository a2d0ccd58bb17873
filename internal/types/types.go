package types

import (
	"context"

	"github.com/docq-ai/docq/internal/models"
)

// Core interfaces

// Loader reads supported files from disk into documents.
type Loader interface {
	Load(path string) ([]models.Document, error)
	LoadDirectory(dir string) ([]models.Document, []models.SkippedFile, error)
}

// Splitter divides documents into chunks sized for embedding.
type Splitter interface {
	Split(doc models.Document) []models.Chunk
	SplitAll(docs []models.Document) []models.Chunk
}

// Embedder turns text into vectors via an external model.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimension() int
}

// VectorStore persists chunk embeddings and answers similarity queries.
type VectorStore interface {
	Add(ctx context.Context, chunks []models.Chunk) (models.AddResult, error)
	Search(ctx context.Context, embedding []float32, limit int) ([]models.ScoredChunk, error)
	SearchBySource(ctx context.Context, embedding []float32, limit int, sourceFile string) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Sources(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
	Close()
}

// ChatEngine generates answers grounded in retrieved chunks.
type ChatEngine interface {
	Chat(ctx context.Context, question string, chunks []models.ScoredChunk) (string, error)
	ChatStream(ctx context.Context, question string, chunks []models.ScoredChunk) (<-chan string, error)
	Model() string
}
