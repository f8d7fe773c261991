package domain

import "time"

// RegistryEntry records the ingestion state of one source path.
// There is at most one entry per source path per (user, source);
// entries are owned exclusively by the file registry.
type RegistryEntry struct {
	// SourcePath is the registry key.
	SourcePath string `json:"source_path"`

	// DocID is the content-derived identifier of the indexed version.
	DocID string `json:"doc_id"`

	// ContentHash equals DocID (single-pass content addressing) and is
	// persisted separately for schema stability.
	ContentHash string `json:"hash"`

	// LastModified is the modification time of the indexed version.
	LastModified time.Time `json:"last_modified"`

	// Embedded is false when the document was registered without any
	// vector points (empty or failed extraction), so it is visible to
	// operators but not retried endlessly.
	Embedded bool `json:"embedded"`

	// Metadata carries provenance and extraction details.
	Metadata map[string]any `json:"metadata,omitempty"`
}
