// Package ai provides factory functions for creating AI service adapters.
//
// Provider selection is configuration-driven: the llm_provider and
// embedding_provider settings pick between OpenAI, Ollama and
// Anthropic backends without the callers knowing which adapter they
// get.
package ai

import (
	"context"
	"fmt"
	"time"

	configfile "github.com/korpora-labs/korpus-cli/internal/adapters/driven/config/file"
	ollamaembed "github.com/korpora-labs/korpus-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/korpora-labs/korpus-cli/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/korpora-labs/korpus-cli/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/korpora-labs/korpus-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/korpora-labs/korpus-cli/internal/adapters/driven/llm/openai"
	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// pinger is implemented by every concrete adapter. The ports keep Ping
// out of the service interfaces because the core never health-checks.
type pinger interface {
	Ping(ctx context.Context) error
}

// CreateAndValidateEmbeddingService creates an embedding service and
// validates connectivity. Returns the service if successful, or an
// error with guidance.
func CreateAndValidateEmbeddingService(cfg configfile.Config) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	if err := ping(svc); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Check the [%s] section of your config",
			domain.ErrEmbeddingUnavailable, err, cfg.EmbeddingProvider)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates
// connectivity. Returns the service if successful, or an error with
// guidance.
func CreateAndValidateLLMService(cfg configfile.Config) (driven.LLMService, error) {
	svc, err := CreateLLMService(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	if err := ping(svc); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Check the [%s] section of your config",
			domain.ErrLLMUnavailable, err, cfg.LLMProvider)
	}
	return svc, nil
}

// ping health-checks a freshly created adapter.
func ping(svc any) error {
	p, ok := svc.(pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}

// CreateEmbeddingService creates the embedding service selected by
// cfg.EmbeddingProvider.
func CreateEmbeddingService(cfg configfile.Config) (driven.EmbeddingService, error) {
	switch cfg.EmbeddingProvider {
	case ProviderOllama:
		return createOllamaEmbedding(cfg.Ollama), nil

	case ProviderOpenAI, "":
		return createOpenAIEmbedding(cfg.OpenAI)

	case ProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// CreateLLMService creates the LLM service selected by cfg.LLMProvider.
func CreateLLMService(cfg configfile.Config) (driven.LLMService, error) {
	switch cfg.LLMProvider {
	case ProviderOllama:
		return createOllamaLLM(cfg.Ollama), nil

	case ProviderOpenAI, "":
		return createOpenAILLM(cfg.OpenAI)

	case ProviderAnthropic:
		return createAnthropicLLM(cfg.Anthropic)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(cfg configfile.OllamaConfig) driven.EmbeddingService {
	dimensions := cfg.EmbeddingDimensions
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    cfg.BaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(cfg configfile.OpenAIConfig) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(cfg configfile.OllamaConfig) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: cfg.BaseURL,
		Model:   cfg.LLMModel,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(cfg configfile.OpenAIConfig) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.LLMModel,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(cfg configfile.AnthropicConfig) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
	})
}
