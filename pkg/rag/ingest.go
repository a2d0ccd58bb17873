package rag

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/docq-ai/docq/internal/models"
)

// Progress reports ingest pipeline advancement for display surfaces.
type Progress struct {
	Stage string // "load", "split", "embed", "store"
	Done  int
	Total int
}

type ProgressFunc func(Progress)

// embedBatch bounds how many chunks go to the embedder per call so that
// progress callbacks fire at a useful granularity.
const embedBatch = 32

// Ingest loads the given files or directories, splits them, embeds the
// chunks and writes them to the vector store. Files that fail to load are
// skipped and reported, not fatal; an ingest that produces zero documents
// is an error.
func (e *Engine) Ingest(ctx context.Context, paths []string, onProgress ProgressFunc) (models.IngestResult, error) {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}

	start := time.Now()
	result := models.IngestResult{}

	// Load
	var docs []models.Document
	for i, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			result.FilesSkipped = append(result.FilesSkipped, models.SkippedFile{Path: path, Reason: err.Error()})
			continue
		}

		if info.IsDir() {
			loaded, skipped, err := e.loader.LoadDirectory(path)
			if err != nil {
				result.FilesSkipped = append(result.FilesSkipped, models.SkippedFile{Path: path, Reason: err.Error()})
				continue
			}
			docs = append(docs, loaded...)
			result.FilesSkipped = append(result.FilesSkipped, skipped...)
			result.FilesLoaded += countFiles(loaded)
		} else {
			loaded, err := e.loader.Load(path)
			if err != nil {
				result.FilesSkipped = append(result.FilesSkipped, models.SkippedFile{Path: path, Reason: err.Error()})
				continue
			}
			docs = append(docs, loaded...)
			result.FilesLoaded++
		}

		onProgress(Progress{Stage: "load", Done: i + 1, Total: len(paths)})
	}

	if len(docs) == 0 {
		return result, fmt.Errorf("no documents loaded from %d path(s)", len(paths))
	}
	result.DocumentCount = len(docs)

	// Split
	chunks := e.splitter.SplitAll(docs)
	if len(chunks) == 0 {
		return result, fmt.Errorf("documents produced no chunks")
	}
	result.ChunkCount = len(chunks)
	onProgress(Progress{Stage: "split", Done: len(chunks), Total: len(chunks)})

	// Embed
	for batchStart := 0; batchStart < len(chunks); batchStart += embedBatch {
		batchEnd := batchStart + embedBatch
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}
		batch := chunks[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		vectors, err := e.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return result, fmt.Errorf("failed to embed chunks: %w", err)
		}
		for i := range batch {
			chunks[batchStart+i].Embedding = vectors[i]
		}

		onProgress(Progress{Stage: "embed", Done: batchEnd, Total: len(chunks)})
	}

	// Store
	added, err := e.store.Add(ctx, chunks)
	if err != nil {
		return result, fmt.Errorf("failed to store chunks: %w", err)
	}
	result.ChunksStored = added.Added
	onProgress(Progress{Stage: "store", Done: added.Added, Total: len(chunks)})

	result.Duration = time.Since(start)
	return result, nil
}

// countFiles counts distinct source files in a document batch; PDFs load
// as one document per page but count as a single file.
func countFiles(docs []models.Document) int {
	seen := make(map[string]bool)
	for _, doc := range docs {
		seen[doc.Path] = true
	}
	return len(seen)
}
