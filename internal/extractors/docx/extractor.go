// Package docx extracts text from Word documents.
package docx

import (
	"bytes"
	"context"
	"encoding/xml"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles Word (docx) documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract reads the document archive and flattens its paragraphs to
// plain text, one paragraph per line.
func (e *Extractor) Extract(_ context.Context, src *domain.SourceDocument) (*driven.ExtractResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}

	r, err := docx.ReadDocxFromMemory(bytes.NewReader(src.Content), int64(len(src.Content)))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	defer r.Close()

	// GetContent returns the raw word/document.xml markup; pull the
	// text runs out and rebuild paragraph boundaries.
	content := r.Editable().GetContent()
	text := flattenDocumentXML(content)

	return &driven.ExtractResult{
		Text: text,
		Metadata: map[string]any{
			"extraction_method": "docx",
		},
	}, nil
}

// flattenDocumentXML collects <w:t> runs and inserts a newline at each
// paragraph close.
func flattenDocumentXML(content string) string {
	decoder := xml.NewDecoder(strings.NewReader(content))
	var sb strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	lines := strings.Split(sb.String(), "\n")
	var cleaned []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n")
}
