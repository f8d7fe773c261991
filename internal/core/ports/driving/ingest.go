package driving

import (
	"context"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

// IngestionService is the entry point for feeding documents into the
// index. Re-ingesting unchanged content is a no-op; changed content is
// deleted from the index and re-inserted before the registry commits.
type IngestionService interface {
	// IngestBatch runs the full pipeline over a batch of documents and
	// returns batch statistics. The result is returned even under
	// partial failure.
	IngestBatch(ctx context.Context, docs []domain.SourceDocument) (*domain.BatchResult, error)

	// IngestOne ingests a single document.
	IngestOne(ctx context.Context, doc domain.SourceDocument) error

	// Reconcile removes registry entries and vector points for source
	// paths no longer present on the remote. presentPaths is the set
	// of paths the connector currently reports.
	Reconcile(ctx context.Context, presentPaths map[string]struct{}) (removed int, err error)
}
