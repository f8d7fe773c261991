// Package spreadsheet extracts text from workbook documents, one
// tab-separated line per row with a heading per sheet.
package spreadsheet

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles spreadsheet documents.
type Extractor struct{}

// New creates a new spreadsheet extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel",
		"application/vnd.oasis.opendocument.spreadsheet",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract flattens every sheet into text with cell values separated by
// tabs, so tabular content stays searchable after chunking.
func (e *Extractor) Extract(_ context.Context, src *domain.SourceDocument) (*driven.ExtractResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}

	f, err := excelize.OpenReader(bytes.NewReader(src.Content))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	defer f.Close()

	var sb strings.Builder
	sheets := f.GetSheetList()
	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("Sheet: %s\n", name))
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}

	return &driven.ExtractResult{
		Text: strings.TrimSpace(sb.String()),
		Metadata: map[string]any{
			"extraction_method": "spreadsheet",
			"sheet_count":       len(sheets),
		},
	}, nil
}
