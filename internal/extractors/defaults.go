package extractors

import (
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/extractors/docx"
	"github.com/korpora-labs/korpus-cli/internal/extractors/eml"
	"github.com/korpora-labs/korpus-cli/internal/extractors/markdown"
	"github.com/korpora-labs/korpus-cli/internal/extractors/pdf"
	"github.com/korpora-labs/korpus-cli/internal/extractors/plaintext"
	"github.com/korpora-labs/korpus-cli/internal/extractors/presentation"
	"github.com/korpora-labs/korpus-cli/internal/extractors/spreadsheet"
)

// NewDefaultRegistry creates a registry with every built-in extractor
// registered. The llm service is optional and only enables the PDF
// vision fallback stage.
func NewDefaultRegistry(pdfCfg pdf.Config, llm driven.LLMService) *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(eml.New())
	r.Register(docx.New())
	r.Register(spreadsheet.New())
	r.Register(presentation.New())
	r.Register(pdf.New(pdfCfg, llm))
	return r
}
