package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docq-ai/docq/internal/models"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIngestFiles(t *testing.T) {
	engine, _, _, memStore := newTestEngine(t)
	dir := t.TempDir()

	a := writeTestFile(t, dir, "a.txt", "Alpha document content with several words.")
	b := writeTestFile(t, dir, "b.md", "Bravo document content with several words.")

	result, err := engine.Ingest(context.Background(), []string{a, b}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesLoaded)
	assert.Equal(t, 2, result.DocumentCount)
	assert.Equal(t, 2, result.ChunkCount)
	assert.Equal(t, 2, result.ChunksStored)
	assert.Empty(t, result.FilesSkipped)
	assert.Greater(t, result.Duration.Nanoseconds(), int64(0))

	count, err := memStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestDirectory(t *testing.T) {
	engine, _, _, memStore := newTestEngine(t)
	dir := t.TempDir()

	writeTestFile(t, dir, "a.txt", "Alpha document content.")
	writeTestFile(t, dir, "b.txt", "Bravo document content.")
	writeTestFile(t, dir, "empty.txt", "") // skipped, fails validation
	writeTestFile(t, dir, "notes.csv", "ignored entirely")

	result, err := engine.Ingest(context.Background(), []string{dir}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesLoaded)
	require.Len(t, result.FilesSkipped, 1)
	assert.Contains(t, result.FilesSkipped[0].Path, "empty.txt")

	sources, err := memStore.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, sources)
}

func TestIngestMissingPath(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	dir := t.TempDir()

	good := writeTestFile(t, dir, "good.txt", "Good content here.")
	missing := filepath.Join(dir, "missing.txt")

	result, err := engine.Ingest(context.Background(), []string{good, missing}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesLoaded)
	require.Len(t, result.FilesSkipped, 1)
	assert.Equal(t, missing, result.FilesSkipped[0].Path)
}

func TestIngestNothingLoaded(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	dir := t.TempDir()

	_, err := engine.Ingest(context.Background(), []string{filepath.Join(dir, "nope.txt")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documents loaded")
}

func TestIngestEmbedderFailure(t *testing.T) {
	engine, embedder, _, _ := newTestEngine(t)
	embedder.fail = true
	dir := t.TempDir()
	path := writeTestFile(t, dir, "a.txt", "Some content to embed.")

	_, err := engine.Ingest(context.Background(), []string{path}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed chunks")
}

func TestIngestProgress(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	dir := t.TempDir()
	path := writeTestFile(t, dir, "long.txt", strings.Repeat("A sentence that repeats to fill out the document. ", 100))

	var stages []string
	_, err := engine.Ingest(context.Background(), []string{path}, func(p Progress) {
		if len(stages) == 0 || stages[len(stages)-1] != p.Stage {
			stages = append(stages, p.Stage)
		}
		assert.LessOrEqual(t, p.Done, p.Total)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"load", "split", "embed", "store"}, stages)
}

func TestCountFiles(t *testing.T) {
	// Multi-page loads produce one document per page but count as one file.
	docs := []models.Document{
		{Path: "/tmp/manual.pdf", Page: 1},
		{Path: "/tmp/manual.pdf", Page: 2},
		{Path: "/tmp/notes.txt"},
	}
	assert.Equal(t, 2, countFiles(docs))
}
