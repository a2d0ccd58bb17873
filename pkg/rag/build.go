package rag

import (
	"fmt"

	"github.com/docq-ai/docq/internal/types"
	"github.com/docq-ai/docq/pkg/config"
	"github.com/docq-ai/docq/pkg/llm"
	"github.com/docq-ai/docq/pkg/loader"
	"github.com/docq-ai/docq/pkg/splitter"
	"github.com/docq-ai/docq/pkg/store"
)

// FromConfig assembles the full pipeline from application configuration.
func FromConfig(cfg *config.Config) (*Engine, error) {
	ld := loader.NewWithConfig(loader.LoaderConfig{
		MaxFileSizeMB: cfg.Loader.MaxFileSizeMB,
	})

	sp := splitter.NewWithConfig(splitter.SplitterConfig{
		ChunkSize:    cfg.Splitter.ChunkSize,
		ChunkOverlap: cfg.Splitter.ChunkOverlap,
	})

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		Token:     cfg.Embedding.Token,
		BaseURL:   cfg.Embedding.BaseURL,
		VectorDim: cfg.Embedding.VectorDim,
		BatchSize: cfg.Embedding.BatchSize,
		RateLimit: cfg.Embedding.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	chat, err := llm.NewWithConfig(llm.ChatConfig{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	var vs types.VectorStore
	switch cfg.Store.Type {
	case "memory":
		vs = store.NewMemoryStore()
	default:
		vs, err = store.NewWithConfig(store.VectorStoreConfig{
			ConnString:  cfg.Store.URL,
			TableName:   cfg.Store.TableName,
			VectorDim:   cfg.Embedding.VectorDim,
			BatchSize:   cfg.Store.BatchSize,
			SearchLimit: cfg.Retrieval.TopK,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
	}

	return New(ld, sp, embedder, vs, chat, cfg.Retrieval.TopK), nil
}

// Close releases pipeline resources (the vector store connection pool).
func (e *Engine) Close() {
	if e.store != nil {
		e.store.Close()
	}
}
