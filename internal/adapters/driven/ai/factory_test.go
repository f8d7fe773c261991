package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configfile "github.com/korpora-labs/korpus-cli/internal/adapters/driven/config/file"
)

func testConfig() configfile.Config {
	cfg := configfile.Default()
	cfg.OpenAI.APIKey = "test-key"
	cfg.Anthropic.APIKey = "test-key"
	return cfg
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		errContains string
	}{
		{name: "openai provider creates service", provider: "openai"},
		{name: "empty provider defaults to openai", provider: ""},
		{name: "ollama provider creates service", provider: "ollama"},
		{
			name:        "anthropic provider returns error",
			provider:    "anthropic",
			errContains: "does not support embeddings",
		},
		{
			name:        "unknown provider returns error",
			provider:    "cohere",
			errContains: "unsupported embedding provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.EmbeddingProvider = tt.provider

			svc, err := CreateEmbeddingService(cfg)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
			svc.Close()
		})
	}
}

func TestCreateEmbeddingService_OpenAIRequiresKey(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAI.APIKey = ""

	_, err := CreateEmbeddingService(cfg)
	require.Error(t, err)
}

func TestCreateEmbeddingService_OllamaDefaultDimensions(t *testing.T) {
	cfg := testConfig()
	cfg.EmbeddingProvider = "ollama"
	cfg.Ollama.EmbeddingDimensions = 0

	svc, err := CreateEmbeddingService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, 768, svc.Dimensions())
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		wantModel   string
		errContains string
	}{
		{name: "openai provider creates service", provider: "openai", wantModel: "gpt-4o-mini"},
		{name: "empty provider defaults to openai", provider: "", wantModel: "gpt-4o-mini"},
		{name: "ollama provider creates service", provider: "ollama", wantModel: "llama3.2"},
		{name: "anthropic provider creates service", provider: "anthropic", wantModel: "claude-3-5-sonnet-latest"},
		{
			name:        "unknown provider returns error",
			provider:    "cohere",
			errContains: "unsupported LLM provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.LLMProvider = tt.provider

			svc, err := CreateLLMService(cfg)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
			defer svc.Close()

			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestCreateLLMService_AnthropicRequiresKey(t *testing.T) {
	cfg := testConfig()
	cfg.LLMProvider = "anthropic"
	cfg.Anthropic.APIKey = ""

	_, err := CreateLLMService(cfg)
	require.Error(t, err)
}
