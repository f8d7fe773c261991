package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Query.TopK)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, "eng", cfg.PDF.OCRLanguage)
	assert.Equal(t, 200, cfg.PDF.OCRDPI)
	assert.Equal(t, 4, cfg.PDF.OCRWorkers)
	assert.Equal(t, 20, cfg.PDF.VisionPageLimit)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.LLMModel)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "openai", cfg.EmbeddingProvider)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "claude-3-5-sonnet-latest", cfg.Anthropic.Model)
	assert.Equal(t, "korpus", cfg.Qdrant.Collection)
	assert.Equal(t, "default", cfg.User)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "/var/lib/korpus"
user = "alice"
llm_provider = "ollama"

[ollama]
llm_model = "mistral"

[query]
top_k = 5
min_score = 0.4
rerank = true

[chunking]
chunk_size = 500
chunk_overlap = 50

[pdf]
ocr_language = "deu"

[qdrant]
url = "http://localhost:6333"
collection = "docs"
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/korpus", cfg.DataDir)
	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, 5, cfg.Query.TopK)
	assert.InDelta(t, 0.4, cfg.Query.MinScore, 1e-9)
	assert.True(t, cfg.Query.Rerank)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, "deu", cfg.PDF.OCRLanguage)
	assert.Equal(t, "http://localhost:6333", cfg.Qdrant.URL)
	assert.Equal(t, "docs", cfg.Qdrant.Collection)

	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, "mistral", cfg.Ollama.LLMModel)

	// Unspecified options keep their defaults.
	assert.Equal(t, 4, cfg.PDF.OCRWorkers)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, "openai", cfg.EmbeddingProvider)
	assert.Equal(t, "nomic-embed-text", cfg.Ollama.EmbeddingModel)
}

func TestLoadRejectsBrokenTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("query = {{"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[openai]
api_key = "from-file"
`), 0600))

	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "anthropic-env", cfg.Anthropic.APIKey)
}

func TestDerivedDirs(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data/korpus"

	assert.Equal(t, filepath.Join("/data/korpus", "registry"), cfg.RegistryDir())
	assert.Equal(t, filepath.Join("/data/korpus", "data"), cfg.MetadataDir())
}
