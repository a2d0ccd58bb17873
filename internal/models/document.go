package models

import "time"

// Document is a single loaded unit of text. PDF files produce one
// Document per page; every other format produces exactly one.
type Document struct {
	ID         string
	SourceFile string
	Path       string
	FileType   string
	Content    string
	Page       int // 1-based for PDFs, 0 otherwise
	Metadata   map[string]interface{}
}

// Chunk is a retrievable slice of a document, sized for embedding.
type Chunk struct {
	ID         string
	DocumentID string
	SourceFile string
	FileType   string
	Content    string
	Index      int
	Page       int
	WordCount  int
	Preview    string
	Embedding  []float32
	Metadata   map[string]interface{}
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
// Scores follow cosine similarity: higher means more similar.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// Source is a citation attached to an answer.
type Source struct {
	Index      int     `json:"index"`
	File       string  `json:"file"`
	ChunkIndex int     `json:"chunk_index"`
	Page       int     `json:"page,omitempty"`
	Preview    string  `json:"preview"`
	Score      float32 `json:"score"`
}

// Answer is the result of a single question against the index.
type Answer struct {
	Question string        `json:"question"`
	Text     string        `json:"answer"`
	Sources  []Source      `json:"sources,omitempty"`
	Model    string        `json:"model"`
	Duration time.Duration `json:"-"`
	Seconds  float64       `json:"processing_seconds"`
}

// AddResult reports the outcome of a vector store write.
type AddResult struct {
	Added    int
	Total    int
	Duration time.Duration
}

// IngestResult reports the outcome of an ingest run.
type IngestResult struct {
	FilesLoaded   int
	FilesSkipped  []SkippedFile
	DocumentCount int
	ChunkCount    int
	ChunksStored  int
	Duration      time.Duration
}

// SkippedFile records a file the ingest pipeline could not use.
type SkippedFile struct {
	Path   string
	Reason string
}

// IndexStats describes the current state of the vector store.
type IndexStats struct {
	ChunkCount     int      `json:"chunk_count"`
	SourceFiles    []string `json:"source_files"`
	EmbeddingModel string   `json:"embedding_model"`
	ChatModel      string   `json:"chat_model"`
}
