package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// ChunkerConfig configures how lesson text is split into chunks.
type ChunkerConfig struct {
	MaxChars     int `yaml:"max_chars"`
	OverlapChars int `yaml:"overlap_chars"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI embedder.
type OpenAIEmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	Dim    int                   `yaml:"dimension"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Prefix string `yaml:"prefix"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// GeneratorConfig configures the answer-generation model and tool loop.
type GeneratorConfig struct {
	Model         string  `yaml:"model"`
	APIKeyEnv     string  `yaml:"api_key_env"`
	BaseURL       string  `yaml:"base_url"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float32 `yaml:"temperature"`
	MaxToolRounds int     `yaml:"max_tool_rounds"`
}

// SearchConfig tunes retrieval.
type SearchConfig struct {
	MaxResults       int     `yaml:"max_results"`
	ResolveThreshold float32 `yaml:"resolve_threshold"`
}

// SessionConfig selects and configures conversation-history storage.
type SessionConfig struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	MaxTurns int    `yaml:"max_turns"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LogMode     string            `yaml:"log_mode"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Search      SearchConfig      `yaml:"search"`
	Session     SessionConfig     `yaml:"session"`
}

// Load reads a config from the given path. If the file does not exist,
// defaults are returned.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &AppConfig{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Chunker.MaxChars == 0 {
		cfg.Chunker.MaxChars = 800
	}
	if cfg.Chunker.OverlapChars == 0 {
		cfg.Chunker.OverlapChars = 100
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hash"
	}
	if cfg.Embedder.Dim == 0 {
		cfg.Embedder.Dim = 512
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4o-mini"
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 800
	}
	if cfg.Generator.MaxToolRounds == 0 {
		cfg.Generator.MaxToolRounds = 2
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 5
	}
	if cfg.Search.ResolveThreshold == 0 {
		cfg.Search.ResolveThreshold = 0.3
	}
	if cfg.Session.Type == "" {
		cfg.Session.Type = "memory"
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = "sessions.db"
	}
	if cfg.Session.MaxTurns == 0 {
		cfg.Session.MaxTurns = 5
	}
}
