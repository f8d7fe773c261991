package driving

import (
	"context"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

// QueryService answers natural-language questions over the index.
type QueryService interface {
	// Retrieve returns the most relevant chunks for a prompt,
	// after optional decomposition, HyDE augmentation and reranking.
	Retrieve(ctx context.Context, prompt string, opts domain.QueryOptions) ([]domain.RetrievedChunk, error)

	// Answer retrieves context and synthesises a cited answer in one
	// shot.
	Answer(ctx context.Context, prompt string, history []domain.Message, opts domain.QueryOptions) (*domain.Answer, error)

	// AnswerStream behaves like Answer but delivers incremental text
	// events followed by a terminal sources (or error) event.
	AnswerStream(ctx context.Context, prompt string, history []domain.Message, opts domain.QueryOptions) (<-chan domain.AnswerEvent, error)
}
