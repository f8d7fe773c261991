package driven

import (
	"context"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

// FileRegistry is the durable per-(user, source) ledger mapping source
// paths to ingestion state. It is the local source of truth for
// incremental sync: the orchestrator consults it before touching the
// vector index and updates it only after upsert success.
//
// The store is loaded fully on open and written through on every
// mutation. It is owned by a single orchestrator instance at a time.
type FileRegistry interface {
	// Exists reports whether an entry exists for the path.
	Exists(path string) bool

	// Get returns the entry for the path, or domain.ErrNotFound.
	Get(path string) (*domain.RegistryEntry, error)

	// HasChanged reports whether the path is absent or registered
	// under a different doc_id.
	HasChanged(path, docID string) bool

	// Put stores or replaces the entry for entry.SourcePath.
	Put(ctx context.Context, entry domain.RegistryEntry) error

	// Remove deletes the entry for the path. Removing an absent path
	// is a no-op.
	Remove(ctx context.Context, path string) error

	// AllPaths returns every registered source path.
	AllPaths() []string

	// Close persists any pending state and releases the store.
	Close() error
}
