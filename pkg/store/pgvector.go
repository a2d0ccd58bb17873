package store

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/docq-ai/docq/internal/models"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	BatchSize   int
	SearchLimit int
}

// VectorStore persists chunk embeddings in Postgres with the pgvector
// extension and answers cosine-similarity queries.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384 // all-MiniLM-L6-v2
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 4
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source_file TEXT NOT NULL,
			file_type TEXT,
			content TEXT,
			chunk_index INTEGER,
			page INTEGER,
			word_count INTEGER,
			embedding vector(%d),
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Add upserts chunks (with their embeddings already computed) in batched
// transactions and reports how many rows were written.
func (vs *VectorStore) Add(ctx context.Context, chunks []models.Chunk) (models.AddResult, error) {
	if len(chunks) == 0 {
		return models.AddResult{}, fmt.Errorf("no chunks to add")
	}

	start := time.Now()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source_file, file_type, content, chunk_index, page, word_count, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.config.TableName)

	for batchStart := 0; batchStart < len(chunks); batchStart += vs.config.BatchSize {
		batchEnd := batchStart + vs.config.BatchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}

		tx, err := vs.pool.Begin(ctx)
		if err != nil {
			return models.AddResult{}, fmt.Errorf("failed to begin transaction: %v", err)
		}

		for _, chunk := range chunks[batchStart:batchEnd] {
			if len(chunk.Embedding) == 0 {
				tx.Rollback(ctx)
				return models.AddResult{}, fmt.Errorf("chunk %s has no embedding", chunk.ID)
			}

			_, err = tx.Exec(ctx, stmt,
				chunk.ID,
				sanitizeUTF8(chunk.SourceFile),
				chunk.FileType,
				sanitizeUTF8(chunk.Content),
				chunk.Index,
				chunk.Page,
				chunk.WordCount,
				pgvector.NewVector(chunk.Embedding),
				chunk.Metadata,
			)
			if err != nil {
				tx.Rollback(ctx)
				return models.AddResult{}, fmt.Errorf("failed to insert chunk: %v", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return models.AddResult{}, fmt.Errorf("failed to commit transaction: %v", err)
		}
	}

	total, err := vs.Count(ctx)
	if err != nil {
		return models.AddResult{}, err
	}

	return models.AddResult{
		Added:    len(chunks),
		Total:    total,
		Duration: time.Since(start),
	}, nil
}

// Search returns the chunks nearest to the query embedding by cosine
// distance, with scores mapped to cosine similarity (higher is closer).
func (vs *VectorStore) Search(ctx context.Context, embedding []float32, limit int) ([]models.ScoredChunk, error) {
	return vs.search(ctx, embedding, limit, "")
}

// SearchBySource is Search restricted to chunks from one source file.
func (vs *VectorStore) SearchBySource(ctx context.Context, embedding []float32, limit int, sourceFile string) ([]models.ScoredChunk, error) {
	return vs.search(ctx, embedding, limit, sourceFile)
}

func (vs *VectorStore) search(ctx context.Context, embedding []float32, limit int, sourceFile string) ([]models.ScoredChunk, error) {
	if limit <= 0 {
		limit = vs.config.SearchLimit
	}

	where := ""
	args := []interface{}{pgvector.NewVector(embedding), limit}
	if sourceFile != "" {
		where = "WHERE source_file = $3"
		args = append(args, sourceFile)
	}

	query := fmt.Sprintf(`
		SELECT id, source_file, file_type, content, chunk_index, page, word_count, metadata,
		       1 - (embedding <=> $1) AS score
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName, where)

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var sc models.ScoredChunk
		err := rows.Scan(
			&sc.Chunk.ID,
			&sc.Chunk.SourceFile,
			&sc.Chunk.FileType,
			&sc.Chunk.Content,
			&sc.Chunk.Index,
			&sc.Chunk.Page,
			&sc.Chunk.WordCount,
			&sc.Chunk.Metadata,
			&sc.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		results = append(results, sc)
	}

	return results, rows.Err()
}

// Count returns the number of indexed chunks.
func (vs *VectorStore) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName)
	if err := vs.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %v", err)
	}
	return count, nil
}

// Sources returns the distinct source files currently indexed.
func (vs *VectorStore) Sources(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT source_file FROM %s ORDER BY source_file", vs.config.TableName)
	rows, err := vs.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %v", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		sources = append(sources, s)
	}

	return sources, rows.Err()
}

// Clear removes every indexed chunk.
func (vs *VectorStore) Clear(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", vs.config.TableName))
	if err != nil {
		return fmt.Errorf("failed to clear store: %v", err)
	}
	return nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
