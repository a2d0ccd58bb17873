package splitter

import (
	"fmt"
	"unicode"

	"github.com/docq-ai/docq/internal/models"
)

// ChunkStats summarizes the size distribution of a chunk batch.
type ChunkStats struct {
	TotalChunks     int
	AvgChunkSize    float64
	MinChunkSize    int
	MaxChunkSize    int
	TotalCharacters int
}

// Stats computes size statistics for a chunk batch.
func Stats(chunks []models.Chunk) ChunkStats {
	if len(chunks) == 0 {
		return ChunkStats{}
	}

	stats := ChunkStats{
		TotalChunks:  len(chunks),
		MinChunkSize: len(chunks[0].Content),
	}

	for _, chunk := range chunks {
		size := len(chunk.Content)
		stats.TotalCharacters += size
		if size < stats.MinChunkSize {
			stats.MinChunkSize = size
		}
		if size > stats.MaxChunkSize {
			stats.MaxChunkSize = size
		}
	}
	stats.AvgChunkSize = float64(stats.TotalCharacters) / float64(len(chunks))

	return stats
}

// QualityReport flags chunking pathologies worth re-tuning for.
type QualityReport struct {
	Stats           ChunkStats
	TooSmall        int // below 0.3x the target size
	TooLarge        int // above 1.5x the target size
	MidSentence     int // chunks starting with a lowercase letter
	Recommendations []string
}

// AnalyzeQuality inspects a chunk batch against the configured chunk size
// and suggests parameter changes when a meaningful share of chunks is off.
func (s *Splitter) AnalyzeQuality(chunks []models.Chunk) QualityReport {
	report := QualityReport{Stats: Stats(chunks)}
	if len(chunks) == 0 {
		return report
	}

	small := int(float64(s.config.ChunkSize) * 0.3)
	large := int(float64(s.config.ChunkSize) * 1.5)

	for i, chunk := range chunks {
		size := len(chunk.Content)
		if size < small {
			report.TooSmall++
		}
		if size > large {
			report.TooLarge++
		}
		if i > 0 {
			for _, r := range chunk.Content {
				if unicode.IsLower(r) {
					report.MidSentence++
				}
				break
			}
		}
	}

	n := len(chunks)
	if report.TooSmall > n/10 {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(
			"%d chunks are very small; consider reducing chunk_size or adjusting separators", report.TooSmall))
	}
	if report.TooLarge > n/10 {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(
			"%d chunks are very large; consider increasing chunk_size", report.TooLarge))
	}
	if report.MidSentence > n*15/100 {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(
			"%d chunks start mid-sentence; consider increasing chunk_overlap", report.MidSentence))
	}
	if len(report.Recommendations) == 0 {
		report.Recommendations = append(report.Recommendations, "chunk quality looks good")
	}

	return report
}
