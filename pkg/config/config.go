package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LLMConfig configures the hosted chat-completion API. Groq exposes an
// OpenAI-compatible endpoint, so base_url can point at any compatible server.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"-"` // env only, never from file
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string  `yaml:"provider"` // "huggingface" or "ollama"
	Model     string  `yaml:"model"`
	Token     string  `yaml:"-"` // env only
	BaseURL   string  `yaml:"base_url"`
	VectorDim int     `yaml:"vector_dim"`
	BatchSize int     `yaml:"batch_size"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second against the API
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	Type      string `yaml:"type"` // "pgvector" or "memory"
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	BatchSize int    `yaml:"batch_size"`
}

// LoaderConfig configures document loading.
type LoaderConfig struct {
	UploadDir     string `yaml:"upload_dir"`
	MaxFileSizeMB int    `yaml:"max_file_size_mb"`
}

// SplitterConfig configures text chunking.
type SplitterConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig configures similarity search at question time.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// UIConfig configures the interactive chat surface.
type UIConfig struct {
	Streaming *bool  `yaml:"streaming"`
	Theme     string `yaml:"theme"`
}

// ServerConfig configures the HTTP/WebSocket server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Loader    LoaderConfig    `yaml:"loader"`
	Splitter  SplitterConfig  `yaml:"splitter"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	UI        UIConfig        `yaml:"ui"`
	Server    ServerConfig    `yaml:"server"`
}

// StreamingEnabled reports whether answers should stream token by token.
// Streaming defaults to on when the config file does not say otherwise.
func (c *Config) StreamingEnabled() bool {
	if c.UI.Streaming == nil {
		return true
	}
	return *c.UI.Streaming
}

// LoadConfig reads the YAML config at path, falling back to the default
// search locations when path is empty. Values from the environment (and a
// .env file, if present) override the file.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is fine; it mirrors local-dev setups.
	_ = godotenv.Load()

	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docq/config.yaml"),
			"/etc/docq/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "llama-3.3-70b-versatile"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.1
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "huggingface"
	}
	if config.Embedding.Model == "" {
		switch config.Embedding.Provider {
		case "ollama":
			config.Embedding.Model = "nomic-embed-text"
		default:
			config.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
		}
	}
	if config.Embedding.BaseURL == "" && config.Embedding.Provider == "ollama" {
		config.Embedding.BaseURL = "http://localhost:11434"
	}
	if config.Embedding.VectorDim == 0 {
		switch config.Embedding.Provider {
		case "ollama":
			config.Embedding.VectorDim = 768
		default:
			config.Embedding.VectorDim = 384 // all-MiniLM-L6-v2
		}
	}
	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 32
	}
	if config.Embedding.RateLimit == 0 {
		config.Embedding.RateLimit = 2.0
	}

	if config.Store.Type == "" {
		config.Store.Type = "pgvector"
	}
	if config.Store.TableName == "" {
		config.Store.TableName = "documents"
	}
	if config.Store.BatchSize == 0 {
		config.Store.BatchSize = 100
	}

	if config.Loader.UploadDir == "" {
		config.Loader.UploadDir = "data/uploads"
	}
	if config.Loader.MaxFileSizeMB == 0 {
		config.Loader.MaxFileSizeMB = 50
	}

	if config.Splitter.ChunkSize == 0 {
		config.Splitter.ChunkSize = 1000
	}
	if config.Splitter.ChunkOverlap == 0 {
		config.Splitter.ChunkOverlap = 200
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 4
	}

	if config.UI.Theme == "" {
		config.UI.Theme = "default"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if model := os.Getenv("GROQ_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if baseURL := os.Getenv("GROQ_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if token := os.Getenv("HF_TOKEN"); token != "" {
		config.Embedding.Token = token
	} else if token := os.Getenv("HUGGINGFACEHUB_API_TOKEN"); token != "" {
		config.Embedding.Token = token
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		config.Embedding.Model = model
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.URL = dbURL
	}
	if dir := os.Getenv("DOCQ_UPLOAD_DIR"); dir != "" {
		config.Loader.UploadDir = dir
	}
}

// EnsureDirs creates the directories the pipeline writes to.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.Loader.UploadDir, 0o755); err != nil {
		return fmt.Errorf("error creating upload directory: %v", err)
	}
	return nil
}
