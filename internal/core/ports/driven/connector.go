package driven

import (
	"context"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

// Connector fetches raw documents from one source (local directory,
// mailbox, cloud drive) and hands them to the ingestion pipeline as a
// byte stream plus provenance metadata.
//
// Provider authentication and listing/pagination logic live entirely
// inside the connector; the core only consumes the channels.
type Connector interface {
	// Provider returns the connector type (e.g. "filesystem").
	Provider() string

	// Fetch streams every document of the source. The documents
	// channel is closed when fetching completes; fatal errors arrive
	// on the errors channel.
	Fetch(ctx context.Context) (<-chan domain.SourceDocument, <-chan error)

	// Watch streams documents as they change, until the context is
	// cancelled. Connectors without change notification return
	// domain.ErrInvalidInput.
	Watch(ctx context.Context) (<-chan domain.SourceDocument, error)

	// Close releases connector resources.
	Close() error
}
