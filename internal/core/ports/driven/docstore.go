package driven

import (
	"context"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

// DocumentStore persists per-document citation metadata.
// Backed by SQLite; it maps doc_ids back to human-readable sources
// when answers are synthesised.
type DocumentStore interface {
	// SaveDocument stores or updates the citation record for a
	// document version.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetSource resolves a doc_id to its citation reference, or
	// domain.ErrNotFound.
	GetSource(ctx context.Context, docID string) (*domain.SourceRef, error)

	// SourceMap resolves many doc_ids at once; unknown ids are omitted.
	SourceMap(ctx context.Context, docIDs []string) (map[string]domain.SourceRef, error)

	// DeleteByDocID removes the citation record for a document version.
	DeleteByDocID(ctx context.Context, docID string) error

	// CountDocuments returns the number of stored citation records.
	CountDocuments(ctx context.Context) (int, error)

	// Close releases the store.
	Close() error
}
