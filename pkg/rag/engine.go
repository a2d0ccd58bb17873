package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docq-ai/docq/internal/models"
	"github.com/docq-ai/docq/internal/types"
)

const emptyIndexAnswer = "No documents have been indexed yet. Upload and index documents before asking questions."

// Engine wires the pipeline together: load -> split -> embed -> store on
// ingest, and embed -> retrieve -> prompt -> generate on query.
type Engine struct {
	loader   types.Loader
	splitter types.Splitter
	embedder types.Embedder
	store    types.VectorStore
	chat     types.ChatEngine
	topK     int
}

func New(loader types.Loader, splitter types.Splitter, embedder types.Embedder, store types.VectorStore, chat types.ChatEngine, topK int) *Engine {
	if topK <= 0 {
		topK = 4
	}
	return &Engine{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		chat:     chat,
		topK:     topK,
	}
}

// Query answers a single question against the index, returning the answer
// text with source citations and timing.
func (e *Engine) Query(ctx context.Context, question string, k int) (models.Answer, error) {
	return e.query(ctx, question, k, "")
}

// QueryInSource is Query with retrieval restricted to one source file.
func (e *Engine) QueryInSource(ctx context.Context, question string, k int, sourceFile string) (models.Answer, error) {
	return e.query(ctx, question, k, sourceFile)
}

func (e *Engine) query(ctx context.Context, question string, k int, sourceFile string) (models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.Answer{}, fmt.Errorf("empty question")
	}

	start := time.Now()

	retrieved, empty, err := e.retrieve(ctx, question, k, sourceFile)
	if err != nil {
		return models.Answer{}, err
	}
	if empty {
		return e.finishAnswer(question, emptyIndexAnswer, nil, start), nil
	}

	text, err := e.chat.Chat(ctx, question, retrieved)
	if err != nil {
		return models.Answer{}, err
	}

	return e.finishAnswer(question, text, retrieved, start), nil
}

// StreamQuery answers a question as a token stream. Sources are returned
// up front since retrieval completes before generation starts. On an empty
// index the channel yields the canned notice and closes.
func (e *Engine) StreamQuery(ctx context.Context, question string, k int) (<-chan string, []models.Source, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil, fmt.Errorf("empty question")
	}

	retrieved, empty, err := e.retrieve(ctx, question, k, "")
	if err != nil {
		return nil, nil, err
	}
	if empty {
		ch := make(chan string, 1)
		ch <- emptyIndexAnswer
		close(ch)
		return ch, nil, nil
	}

	stream, err := e.chat.ChatStream(ctx, question, retrieved)
	if err != nil {
		return nil, nil, err
	}

	return stream, FormatSources(retrieved), nil
}

// BatchResult pairs a question with its answer or failure.
type BatchResult struct {
	Question string
	Answer   models.Answer
	Err      error
}

// BatchQuery answers several questions; one failure does not abort the rest.
func (e *Engine) BatchQuery(ctx context.Context, questions []string, k int) []BatchResult {
	results := make([]BatchResult, 0, len(questions))
	for _, q := range questions {
		answer, err := e.Query(ctx, q, k)
		results = append(results, BatchResult{Question: q, Answer: answer, Err: err})
	}
	return results
}

// Stats reports the current state of the index.
func (e *Engine) Stats(ctx context.Context) (models.IndexStats, error) {
	count, err := e.store.Count(ctx)
	if err != nil {
		return models.IndexStats{}, err
	}
	sources, err := e.store.Sources(ctx)
	if err != nil {
		return models.IndexStats{}, err
	}

	return models.IndexStats{
		ChunkCount:     count,
		SourceFiles:    sources,
		EmbeddingModel: e.embedder.Model(),
		ChatModel:      e.chat.Model(),
	}, nil
}

// Clear drops every indexed chunk.
func (e *Engine) Clear(ctx context.Context) error {
	return e.store.Clear(ctx)
}

// retrieve embeds the question and fetches the top-k chunks. The second
// return value reports an empty index, which short-circuits generation.
func (e *Engine) retrieve(ctx context.Context, question string, k int, sourceFile string) ([]models.ScoredChunk, bool, error) {
	count, err := e.store.Count(ctx)
	if err != nil {
		return nil, false, err
	}
	if count == 0 {
		return nil, true, nil
	}

	if k <= 0 {
		k = e.topK
	}

	embedding, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, false, fmt.Errorf("failed to embed question: %w", err)
	}

	var retrieved []models.ScoredChunk
	if sourceFile != "" {
		retrieved, err = e.store.SearchBySource(ctx, embedding, k, sourceFile)
	} else {
		retrieved, err = e.store.Search(ctx, embedding, k)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to search index: %w", err)
	}

	return retrieved, false, nil
}

func (e *Engine) finishAnswer(question, text string, retrieved []models.ScoredChunk, start time.Time) models.Answer {
	duration := time.Since(start)
	return models.Answer{
		Question: question,
		Text:     text,
		Sources:  FormatSources(retrieved),
		Model:    e.chat.Model(),
		Duration: duration,
		Seconds:  duration.Seconds(),
	}
}

// FormatSources turns retrieved chunks into citations with short previews.
func FormatSources(retrieved []models.ScoredChunk) []models.Source {
	sources := make([]models.Source, 0, len(retrieved))
	for i, sc := range retrieved {
		sources = append(sources, models.Source{
			Index:      i + 1,
			File:       sc.Chunk.SourceFile,
			ChunkIndex: sc.Chunk.Index,
			Page:       sc.Chunk.Page,
			Preview:    preview(sc.Chunk.Content, 200),
			Score:      sc.Score,
		})
	}
	return sources
}

func preview(content string, limit int) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}
	return string(runes[:limit]) + "..."
}
