package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles the MIME type.
	// The document is skipped and not registered, so it becomes
	// eligible for retry once the type is supported.
	ErrUnsupportedType = errors.New("unsupported content type")

	// ErrExtractionFailed indicates every extraction stage failed
	// validation. The document is registered as an explicit error
	// pseudo-document rather than silently dropped.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrTransient indicates a network, timeout or rate-limit failure
	// from a provider. Callers retry with backoff, then skip the
	// affected unit without aborting the batch or request.
	ErrTransient = errors.New("transient provider error")

	// ErrConsistency indicates a deletion or upsert reported failure
	// mid-document. The document is not registered, forcing a retry on
	// the next sync rather than silently under-indexing.
	ErrConsistency = errors.New("index consistency failure")

	// ErrRegistryCorrupt indicates the registry store was unreadable.
	// The store is backed up and replaced empty; ingestion proceeds.
	ErrRegistryCorrupt = errors.New("registry store corrupt")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured, disabling ingestion and semantic retrieval.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// IsTransient reports whether err is a transient provider failure that
// warrants a bounded retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
