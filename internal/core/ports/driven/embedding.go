package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations substitute a single space for empty input and degrade
// to a zero vector of the configured dimension on unrecoverable
// failure, so one bad text never aborts a batch.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// The result always has one vector per input text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 384, 1536).
	// This must match the vector index collection configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
