package driven

import (
	"context"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

// Extractor converts raw document bytes into plain text.
// Each extractor handles specific MIME types (e.g. PDF, DOCX, EML).
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors should return 50-89.
	// Fallback extractors should return 1-9.
	Priority() int

	// Extract transforms a source document into extracted text plus
	// extraction metadata. It returns domain.ErrExtractionFailed when
	// every internal fallback stage failed validation.
	Extract(ctx context.Context, src *domain.SourceDocument) (*ExtractResult, error)
}

// ExtractResult contains the output of extraction.
type ExtractResult struct {
	// Text is the full extracted plain text.
	Text string

	// Metadata records extraction details, notably which stage
	// succeeded (e.g. "text_layer", "ocr", "vision").
	Metadata map[string]any
}

// ExtractorRegistry selects the appropriate extractor for a document.
// It maintains a priority-ordered list of extractors and dispatches
// on MIME type.
type ExtractorRegistry interface {
	// Extract runs the best matching extractor for the document's MIME
	// type. It returns domain.ErrUnsupportedType when no extractor
	// handles the type.
	Extract(ctx context.Context, src *domain.SourceDocument) (*ExtractResult, error)

	// Register adds an extractor to the registry.
	Register(extractor Extractor)

	// SupportedMIMETypes returns all MIME types that can be extracted.
	SupportedMIMETypes() []string
}
