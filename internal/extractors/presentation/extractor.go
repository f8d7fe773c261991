// Package presentation extracts text from PowerPoint decks by reading
// the slide XML inside the pptx archive.
package presentation

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles presentation (pptx) documents.
type Extractor struct{}

// New creates a new presentation extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.ms-powerpoint",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract pulls the text runs out of every slide, in slide order, with
// a per-slide heading so chunk text retains its position in the deck.
func (e *Extractor) Extract(_ context.Context, src *domain.SourceDocument) (*driven.ExtractResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(src.Content), int64(len(src.Content)))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	var slides []string
	for _, file := range archive.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") || !strings.HasSuffix(file.Name, ".xml") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slides = append(slides, file.Name+"\x00"+slideText(data))
	}

	// Archive order is not guaranteed; sort by slide file name.
	sort.Strings(slides)

	var sb strings.Builder
	for i, entry := range slides {
		text := entry[strings.IndexByte(entry, 0)+1:]
		if strings.TrimSpace(text) == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("Slide %d\n%s\n\n", i+1, text))
	}

	return &driven.ExtractResult{
		Text: strings.TrimSpace(sb.String()),
		Metadata: map[string]any{
			"extraction_method": "presentation",
			"slide_count":       len(slides),
		},
	}, nil
}

// slideText collects the <a:t> run contents of one slide.
func slideText(data []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(data))
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
			if t.Name.Local == "t" {
				inText = false
				sb.WriteByte(' ')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
