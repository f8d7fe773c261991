// Package markdown extracts readable text from Markdown documents by
// walking the goldmark AST, dropping formatting while keeping the prose.
package markdown

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles Markdown documents.
type Extractor struct {
	md goldmark.Markdown
}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/markdown",
		"text/x-markdown",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract parses the Markdown and renders its text content, one block
// per line. Code blocks are kept verbatim since they often carry the
// substance of technical documents.
func (e *Extractor) Extract(_ context.Context, src *domain.SourceDocument) (*driven.ExtractResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}

	source := src.Content
	root := e.md.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(source))
			if node.HardLineBreak() || node.SoftLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(source))
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	return &driven.ExtractResult{
		Text: strings.TrimSpace(sb.String()),
		Metadata: map[string]any{
			"extraction_method": "markdown",
		},
	}, nil
}
