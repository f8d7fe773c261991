// Package plaintext extracts text-based documents verbatim.
package plaintext

import (
	"context"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/yaml",
		"text/toml",
		"text/html",
		"text/x-go",
		"text/x-python",
		"text/x-rust",
		"text/x-shellscript",
		"text/x-sql",
		"text/typescript",
		"text/typescript-jsx",
		"text/javascript-jsx",
		"application/json",
		"application/xml",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 5 // Fallback extractor
}

// Extract converts raw bytes to text content.
func (e *Extractor) Extract(_ context.Context, src *domain.SourceDocument) (*driven.ExtractResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}

	return &driven.ExtractResult{
		Text: string(src.Content),
		Metadata: map[string]any{
			"extraction_method": "plaintext",
		},
	}, nil
}
