package driven

import (
	"context"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

// Point is one embedded chunk as stored in the external vector index.
type Point struct {
	// ID is the chunk's unique_id.
	ID string

	// Vector is the embedding.
	Vector []float32

	// Payload holds the chunk text and metadata, including doc_id.
	Payload map[string]any
}

// VectorHit is one similarity search result.
type VectorHit struct {
	// ID is the matched point's unique_id.
	ID string

	// Score is the similarity score, higher is better.
	Score float64

	// Payload is the stored point payload.
	Payload map[string]any
}

// VectorIndex abstracts the external vector search service.
//
// All mutations are idempotent keyed operations (upsert-by-id,
// delete-by-filter), so the collection is shared across ingestion and
// retrieval without locking.
type VectorIndex interface {
	// EnsureCollection creates the collection if absent.
	EnsureCollection(ctx context.Context, name string, vectorSize int, metric string) error

	// UpsertBatch inserts or replaces points. Partial batch failure is
	// tolerated: failed sub-batches are logged and skipped while the
	// rest proceed. The returned count is the number of points upserted.
	UpsertBatch(ctx context.Context, points []Point) (int, error)

	// DeleteByDocID removes every point belonging to a document
	// version. Implementations must match the doc_id both as a
	// top-level payload field and nested under "metadata" to tolerate
	// payload schema evolution. Returns the number of points deleted.
	DeleteByDocID(ctx context.Context, docID string) (int, error)

	// ScanDocIDs pages through the collection and returns the set of
	// distinct doc_ids currently indexed.
	ScanDocIDs(ctx context.Context) (map[string]struct{}, error)

	// Search returns the topK nearest points to the query vector,
	// optionally restricted by a payload filter.
	Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]VectorHit, error)

	// Count returns the number of points in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// HitChunk converts a search hit payload back into a retrieved chunk.
func HitChunk(hit VectorHit) domain.RetrievedChunk {
	chunk := domain.Chunk{ID: hit.ID, Metadata: map[string]any{}}
	for key, val := range hit.Payload {
		switch key {
		case "text":
			if s, ok := val.(string); ok {
				chunk.Content = s
			}
		case "doc_id":
			if s, ok := val.(string); ok {
				chunk.DocID = s
			}
		case "chunk_index":
			if f, ok := val.(float64); ok {
				chunk.Index = int(f)
			}
		case "start_offset":
			if f, ok := val.(float64); ok {
				chunk.StartOffset = int(f)
			}
		case "metadata":
			if m, ok := val.(map[string]any); ok {
				for k, v := range m {
					chunk.Metadata[k] = v
				}
				if chunk.DocID == "" {
					if s, ok := m["doc_id"].(string); ok {
						chunk.DocID = s
					}
				}
			}
		default:
			chunk.Metadata[key] = val
		}
	}
	return domain.RetrievedChunk{Chunk: chunk, Score: hit.Score}
}
