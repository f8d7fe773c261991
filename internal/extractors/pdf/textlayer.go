package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// textLayerStage reads the embedded text layer, row by row, so the
// output keeps the page layout's reading order.
type textLayerStage struct{}

func (s *textLayerStage) name() string { return "text_layer" }

func (s *textLayerStage) extract(_ context.Context, content []byte) (text string, err error) {
	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			// Degrade to the unstructured text for this page.
			plain, plainErr := page.GetPlainText(nil)
			if plainErr != nil {
				continue
			}
			sb.WriteString(plain)
			sb.WriteByte('\n')
			continue
		}

		for _, row := range rows {
			var words []string
			for _, word := range row.Content {
				if word.S != "" {
					words = append(words, word.S)
				}
			}
			if len(words) > 0 {
				sb.WriteString(strings.Join(words, " "))
				sb.WriteByte('\n')
			}
		}
		sb.WriteByte('\n')
	}

	return strings.TrimSpace(sb.String()), nil
}
