package splitter

import (
	"strings"

	"github.com/google/uuid"

	"github.com/docq-ai/docq/internal/models"
)

// SplitterConfig controls chunk sizing. Separators are tried in order;
// the empty string means "cut anywhere" and must come last.
type SplitterConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

type Splitter struct {
	config SplitterConfig
}

func defaultSeparators() []string {
	return []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}
}

func NewWithConfig(config SplitterConfig) *Splitter {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}
	if len(config.Separators) == 0 {
		config.Separators = defaultSeparators()
	}

	return &Splitter{config: config}
}

func New() *Splitter {
	return NewWithConfig(SplitterConfig{})
}

// Split divides one document into chunks with per-chunk metadata.
func (s *Splitter) Split(doc models.Document) []models.Chunk {
	pieces := s.splitText(doc.Content, s.config.Separators)

	chunks := make([]models.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, s.newChunk(doc, piece, i))
	}
	return chunks
}

// SplitAll divides a batch of documents. Chunk indexes restart at zero for
// each document.
func (s *Splitter) SplitAll(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.Split(doc)...)
	}
	return chunks
}

func (s *Splitter) newChunk(doc models.Document, content string, index int) models.Chunk {
	metadata := make(map[string]interface{}, len(doc.Metadata)+3)
	for k, v := range doc.Metadata {
		metadata[k] = v
	}

	wordCount := len(strings.Fields(content))
	preview := contentPreview(content, 100)

	metadata["chunk_index"] = index
	metadata["chunk_size"] = len(content)
	metadata["word_count"] = wordCount

	return models.Chunk{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		SourceFile: doc.SourceFile,
		FileType:   doc.FileType,
		Content:    content,
		Index:      index,
		Page:       doc.Page,
		WordCount:  wordCount,
		Preview:    preview,
		Metadata:   metadata,
	}
}

// splitText is a recursive character splitter: split on the coarsest
// separator present, merge adjacent pieces up to the chunk size with
// overlap carried between chunks, and recurse into pieces that are still
// too long using the finer separators.
func (s *Splitter) splitText(text string, separators []string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	separator := ""
	rest := separators
	for i, sep := range separators {
		if sep == "" {
			rest = nil
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
		rest = separators[i+1:]
	}

	var splits []string
	if separator == "" {
		splits = s.hardCut(text)
	} else {
		splits = strings.SplitAfter(text, separator)
	}

	var final []string
	var mergeable []string
	for _, split := range splits {
		if len(split) <= s.config.ChunkSize {
			mergeable = append(mergeable, split)
			continue
		}
		final = append(final, s.merge(mergeable)...)
		mergeable = nil
		final = append(final, s.splitText(split, rest)...)
	}
	final = append(final, s.merge(mergeable)...)

	return final
}

// merge joins consecutive small splits into chunks no larger than the
// chunk size, sliding the window so consecutive chunks share roughly
// ChunkOverlap characters.
func (s *Splitter) merge(splits []string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		joined := strings.TrimSpace(strings.Join(window, ""))
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, split := range splits {
		if total+len(split) > s.config.ChunkSize && len(window) > 0 {
			flush()
			for total > s.config.ChunkOverlap && len(window) > 0 {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, split)
		total += len(split)
	}

	if len(window) > 0 {
		flush()
	}

	return chunks
}

// hardCut slices text that contains no separators at all.
func (s *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	step := s.config.ChunkSize - s.config.ChunkOverlap

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.config.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

func contentPreview(content string, limit int) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}
	return string(runes[:limit]) + "..."
}
