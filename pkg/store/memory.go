package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/docq-ai/docq/internal/models"
)

// MemoryStore is an in-process vector store. It exists for tests and for
// running without Postgres; chunks are gone when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks []models.Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(ctx context.Context, chunks []models.Chunk) (models.AddResult, error) {
	if len(chunks) == 0 {
		return models.AddResult{}, fmt.Errorf("no chunks to add")
	}

	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return models.AddResult{}, fmt.Errorf("chunk %s has no embedding", chunk.ID)
		}
	}
	s.chunks = append(s.chunks, chunks...)

	return models.AddResult{
		Added:    len(chunks),
		Total:    len(s.chunks),
		Duration: time.Since(start),
	}, nil
}

func (s *MemoryStore) Search(ctx context.Context, embedding []float32, limit int) ([]models.ScoredChunk, error) {
	return s.search(embedding, limit, "")
}

func (s *MemoryStore) SearchBySource(ctx context.Context, embedding []float32, limit int, sourceFile string) ([]models.ScoredChunk, error) {
	return s.search(embedding, limit, sourceFile)
}

func (s *MemoryStore) search(embedding []float32, limit int, sourceFile string) ([]models.ScoredChunk, error) {
	if limit <= 0 {
		limit = 4
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.ScoredChunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if sourceFile != "" && chunk.SourceFile != sourceFile {
			continue
		}
		results = append(results, models.ScoredChunk{
			Chunk: chunk,
			Score: cosine(embedding, chunk.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if limit > len(results) {
		limit = len(results)
	}
	return results[:limit], nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *MemoryStore) Sources(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var sources []string
	for _, chunk := range s.chunks {
		if !seen[chunk.SourceFile] {
			seen[chunk.SourceFile] = true
			sources = append(sources, chunk.SourceFile)
		}
	}
	sort.Strings(sources)
	return sources, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	return nil
}

func (s *MemoryStore) Close() {}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
