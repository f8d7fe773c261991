package driven

import "context"

// LLMService provides language model operations for the query pipeline
// and the PDF vision extraction fallback.
//
// Implementations may include:
//   - OpenAI (GPT-4o family)
//   - Azure OpenAI or compatible APIs
//   - Ollama (local models)
type LLMService interface {
	// Generate produces a single-turn text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat conducts a multi-turn conversation.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatStream conducts a multi-turn conversation, delivering
	// incremental text deltas on the returned channel. The channel is
	// closed after the terminal event (empty Delta with Done set, or Err).
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions) (<-chan StreamDelta, error)

	// Vision produces a completion from one page image plus an
	// instruction. Used by the PDF vision extraction fallback.
	Vision(ctx context.Context, image []byte, mimeType, instruction string) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// StreamDelta is one event of a streaming chat completion.
type StreamDelta struct {
	// Delta is the incremental text.
	Delta string

	// Done marks the terminal event.
	Done bool

	// Err is set on the terminal event when streaming failed.
	Err error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
