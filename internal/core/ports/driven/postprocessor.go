package driven

import (
	"context"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

// Chunker splits an extracted document into overlapping fixed-size
// chunks. Identical input and parameters must produce identical chunk
// boundaries; only the chunk IDs are fresh per invocation.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk splits the document content into chunks with start offsets.
	Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
