package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/docq-ai/docq/internal/models"
)

func TestNewWithConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ChatConfig
		wantErr string
	}{
		{
			name:   "valid config",
			config: ChatConfig{APIKey: "gsk-test"},
		},
		{
			name:    "missing api key",
			config:  ChatConfig{},
			wantErr: "API key is required",
		},
		{
			name:    "temperature too high",
			config:  ChatConfig{APIKey: "gsk-test", Temperature: 2.5},
			wantErr: "temperature",
		},
		{
			name:    "negative max tokens",
			config:  ChatConfig{APIKey: "gsk-test", MaxTokens: -1},
			wantErr: "max tokens",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewWithConfig(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "llama-3.3-70b-versatile", engine.Model())
			assert.Equal(t, "https://api.groq.com/openai/v1", engine.config.BaseURL)
			assert.Equal(t, 2000, engine.config.MaxTokens)
			assert.NotEmpty(t, engine.config.SystemTemplate)
		})
	}
}

func TestFormatContext(t *testing.T) {
	chunks := []models.ScoredChunk{
		{Chunk: models.Chunk{SourceFile: "guide.pdf", Content: "Install with make."}, Score: 0.9},
		{Chunk: models.Chunk{SourceFile: "faq.txt", Content: "Yes, it supports Linux."}, Score: 0.8},
	}

	context := FormatContext(chunks)
	assert.Contains(t, context, "[Source 1: guide.pdf]\nInstall with make.")
	assert.Contains(t, context, "[Source 2: faq.txt]\nYes, it supports Linux.")
}

func TestFormatContextEmpty(t *testing.T) {
	assert.Equal(t, "(no documents retrieved)\n", FormatContext(nil))
}

func TestBuildMessages(t *testing.T) {
	engine, err := NewWithConfig(ChatConfig{APIKey: "gsk-test"})
	require.NoError(t, err)

	chunks := []models.ScoredChunk{
		{Chunk: models.Chunk{SourceFile: "guide.pdf", Content: "Install with make."}},
	}
	messages := engine.buildMessages("How do I install?", chunks)

	require.Len(t, messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, messages[1].Role)

	text, ok := messages[1].Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Context from documents:")
	assert.Contains(t, text.Text, "[Source 1: guide.pdf]")
	assert.Contains(t, text.Text, "Question: How do I install?")
}
