// Package file provides TOML-backed configuration loading.
//
// Configuration lives at ~/.korpus/config.toml by default. Every
// option has a default so a missing file yields a working local setup;
// API keys may also come from the environment (OPENAI_API_KEY,
// ANTHROPIC_API_KEY, QDRANT_API_KEY), which takes precedence over the
// file.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full application configuration.
type Config struct {
	// DataDir is the root directory for registries and the metadata
	// database. Defaults to ~/.korpus.
	DataDir string `toml:"data_dir"`

	// User identifies the registry owner. Defaults to "default".
	User string `toml:"user"`

	// LLMProvider selects the chat/completion backend: "openai",
	// "ollama" or "anthropic". Defaults to "openai".
	LLMProvider string `toml:"llm_provider"`

	// EmbeddingProvider selects the embedding backend: "openai" or
	// "ollama". Defaults to "openai".
	EmbeddingProvider string `toml:"embedding_provider"`

	Query     QueryConfig     `toml:"query"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	PDF       PDFConfig       `toml:"pdf"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Anthropic AnthropicConfig `toml:"anthropic"`
	Qdrant    QdrantConfig    `toml:"qdrant"`
	Ingest    IngestConfig    `toml:"ingest"`
}

// QueryConfig controls the retrieval and answer pipeline.
type QueryConfig struct {
	TopK        int     `toml:"top_k"`
	MinScore    float64 `toml:"min_score"`
	SplitPrompt bool    `toml:"split_prompt"`
	Rerank      bool    `toml:"rerank"`
	UseHyde     bool    `toml:"use_hyde"`
}

// ChunkingConfig controls document chunking.
type ChunkingConfig struct {
	Size    int `toml:"chunk_size"`
	Overlap int `toml:"chunk_overlap"`
}

// PDFConfig controls the PDF extraction fallback chain.
type PDFConfig struct {
	OCRLanguage     string `toml:"ocr_language"`
	OCRDPI          int    `toml:"ocr_dpi"`
	OCRWorkers      int    `toml:"ocr_workers"`
	VisionPageLimit int    `toml:"vision_page_limit"`
}

// OpenAIConfig holds provider settings for embeddings and the LLM.
type OpenAIConfig struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	LLMModel            string `toml:"llm_model"`
	EmbeddingModel      string `toml:"embedding_model"`
	EmbeddingDimensions int    `toml:"embedding_dimensions"`
}

// OllamaConfig holds settings for a local Ollama instance.
type OllamaConfig struct {
	BaseURL             string `toml:"base_url"`
	LLMModel            string `toml:"llm_model"`
	EmbeddingModel      string `toml:"embedding_model"`
	EmbeddingDimensions int    `toml:"embedding_dimensions"`
}

// AnthropicConfig holds Anthropic API settings. Anthropic provides no
// embedding endpoint, so it is only valid as an LLM provider.
type AnthropicConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// QdrantConfig holds vector index connection settings. An empty URL
// selects the in-memory index.
type QdrantConfig struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	Collection string `toml:"collection"`
}

// IngestConfig controls the filesystem connector.
type IngestConfig struct {
	// Excludes are doublestar glob patterns skipped during directory walks.
	Excludes []string `toml:"excludes"`
}

// Default returns a configuration with every option set to its default.
func Default() Config {
	return Config{
		User:              "default",
		LLMProvider:       "openai",
		EmbeddingProvider: "openai",
		Query: QueryConfig{
			TopK:        10,
			MinScore:    0.0,
			SplitPrompt: false,
			Rerank:      false,
			UseHyde:     false,
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		PDF: PDFConfig{
			OCRLanguage:     "eng",
			OCRDPI:          200,
			OCRWorkers:      4,
			VisionPageLimit: 20,
		},
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com/v1",
			LLMModel:       "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
		},
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			LLMModel:       "llama3.2",
			EmbeddingModel: "nomic-embed-text",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-3-5-sonnet-latest",
		},
		Qdrant: QdrantConfig{
			Collection: "korpus",
		},
		Ingest: IngestConfig{
			Excludes: []string{"**/.git/**", "**/node_modules/**", "**/.DS_Store"},
		},
	}
}

// Load reads the config file at path, applying defaults for everything
// it omits. A missing file yields pure defaults. If path is empty,
// ~/.korpus/config.toml is used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".korpus", "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg.withDataDir()
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg.withDataDir()
}

// applyEnv lets environment variables override file-stored secrets.
func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.OpenAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Anthropic.APIKey = key
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		c.Qdrant.APIKey = key
	}
	if url := os.Getenv("QDRANT_URL"); url != "" {
		c.Qdrant.URL = url
	}
}

func (c Config) withDataDir() (Config, error) {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return c, fmt.Errorf("getting home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".korpus")
	}
	return c, nil
}

// RegistryDir returns the directory holding per-(user, source)
// registry stores.
func (c Config) RegistryDir() string {
	return filepath.Join(c.DataDir, "registry")
}

// MetadataDir returns the directory holding the SQLite metadata store.
func (c Config) MetadataDir() string {
	return filepath.Join(c.DataDir, "data")
}
