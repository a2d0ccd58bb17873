package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/docq-ai/docq/internal/models"
)

// ChatConfig represents the configuration for a chat engine. Groq exposes
// an OpenAI-compatible API, so the client is the openai one pointed at the
// Groq base URL.
type ChatConfig struct {
	BaseURL        string
	Model          string
	APIKey         string
	MaxTokens      int
	Temperature    float64
	SystemTemplate string
}

const defaultSystemTemplate = `You are a helpful AI assistant answering questions based on provided documents.

Instructions:
1. Answer the question using ONLY the information from the context provided
2. If the context doesn't contain enough information, say "I don't have enough information to answer this question based on the provided documents."
3. Be specific and cite which source you're referencing when possible
4. Keep your answer clear and concise
5. Do not make up information not present in the context`

// ChatEngine is an engine that uses a hosted LLM to generate answers
// grounded in retrieved document chunks.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required (set GROQ_API_KEY)")
	}
	if config.Model == "" {
		config.Model = "llama-3.3-70b-versatile"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.groq.com/openai/v1"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = defaultSystemTemplate
	}

	llm, err := openai.New(
		openai.WithModel(config.Model),
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(config.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Model returns the configured chat model name.
func (ce *ChatEngine) Model() string {
	return ce.config.Model
}

// Chat generates a single answer grounded in the retrieved chunks.
func (ce *ChatEngine) Chat(ctx context.Context, question string, chunks []models.ScoredChunk) (string, error) {
	response, err := ce.llm.GenerateContent(ctx, ce.buildMessages(question, chunks),
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return response.Choices[0].Content, nil
}

// ChatStream generates an answer as a stream of incremental tokens. The
// channel is closed when generation finishes; errors arrive on the channel
// prefixed with "Error:".
func (ce *ChatEngine) ChatStream(ctx context.Context, question string, chunks []models.ScoredChunk) (<-chan string, error) {
	messages := ce.buildMessages(question, chunks)

	resultChan := make(chan string)

	go func() {
		defer close(resultChan)

		_, err := ce.llm.GenerateContent(ctx, messages,
			llms.WithTemperature(ce.config.Temperature),
			llms.WithMaxTokens(ce.config.MaxTokens),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case resultChan <- string(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}),
		)
		if err != nil {
			resultChan <- fmt.Sprintf("Error: %v", err)
		}
	}()

	return resultChan, nil
}

func (ce *ChatEngine) buildMessages(question string, chunks []models.ScoredChunk) []llms.MessageContent {
	var user strings.Builder
	user.WriteString("Context from documents:\n\n")
	user.WriteString(FormatContext(chunks))
	user.WriteString("\nQuestion: ")
	user.WriteString(question)

	return []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, user.String()),
	}
}

// FormatContext renders retrieved chunks as a numbered source block for
// prompt assembly.
func FormatContext(chunks []models.ScoredChunk) string {
	if len(chunks) == 0 {
		return "(no documents retrieved)\n"
	}

	var sb strings.Builder
	for i, sc := range chunks {
		fmt.Fprintf(&sb, "[Source %d: %s]\n%s\n\n", i+1, sc.Chunk.SourceFile, sc.Chunk.Content)
	}
	return sb.String()
}
