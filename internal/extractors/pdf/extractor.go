// Package pdf extracts text from PDF documents through an ordered
// fallback chain: embedded text layer, OCR over rasterised pages, and
// finally a vision-capable LLM. A stage only wins if its output passes
// the shared validation heuristic; if every stage fails the extractor
// reports domain.ErrExtractionFailed so the caller can register an
// explicit error pseudo-document.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/extractors/validate"
	"github.com/korpora-labs/korpus-cli/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultOCRLanguage     = "eng"
	DefaultOCRDPI          = 200
	DefaultOCRWorkers      = 4
	DefaultVisionPageLimit = 20
)

// Config holds configuration for the PDF extraction chain.
type Config struct {
	// MinTextLength is the validation threshold for each stage
	// (default validate.MinLength).
	MinTextLength int

	// OCRLanguage is the tesseract language pack (default "eng").
	// An unavailable pack falls back to the default language.
	OCRLanguage string

	// OCRDPI is the rasterisation resolution for OCR (default 200).
	OCRDPI int

	// OCRWorkers bounds concurrent OCR page processing (default 4).
	OCRWorkers int

	// VisionPageLimit caps the number of pages sent to the vision LLM
	// (default 20).
	VisionPageLimit int
}

func (c *Config) applyDefaults() {
	if c.MinTextLength <= 0 {
		c.MinTextLength = validate.MinLength
	}
	if c.OCRLanguage == "" {
		c.OCRLanguage = DefaultOCRLanguage
	}
	if c.OCRDPI <= 0 {
		c.OCRDPI = DefaultOCRDPI
	}
	if c.OCRWorkers <= 0 {
		c.OCRWorkers = DefaultOCRWorkers
	}
	if c.VisionPageLimit <= 0 {
		c.VisionPageLimit = DefaultVisionPageLimit
	}
}

// stage is one step of the fallback chain.
type stage interface {
	name() string
	extract(ctx context.Context, content []byte) (string, error)
}

// Extractor runs the PDF fallback chain.
type Extractor struct {
	cfg    Config
	stages []stage
}

// New creates a PDF extractor. The llm service is optional: when nil,
// the vision stage is omitted from the chain.
func New(cfg Config, llm driven.LLMService) *Extractor {
	cfg.applyDefaults()

	stages := []stage{
		&textLayerStage{},
		newOCRStage(cfg),
	}
	if llm != nil {
		stages = append(stages, newVisionStage(cfg, llm))
	}

	return &Extractor{cfg: cfg, stages: stages}
}

// newWithStages is the test seam for chain-order behaviour.
func newWithStages(cfg Config, stages ...stage) *Extractor {
	cfg.applyDefaults()
	return &Extractor{cfg: cfg, stages: stages}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 60
}

// Extract runs the chain until a stage produces validated text.
// The winning stage and every attempted stage are recorded in the
// result metadata.
func (e *Extractor) Extract(ctx context.Context, src *domain.SourceDocument) (*driven.ExtractResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}

	var attempted []string
	var failures []error

	for _, s := range e.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempted = append(attempted, s.name())
		text, err := s.extract(ctx, src.Content)
		if err != nil {
			logger.Debug("pdf stage %s failed for %s: %v", s.name(), src.SourcePath, err)
			failures = append(failures, fmt.Errorf("%s: %w", s.name(), err))
			continue
		}
		if !validate.Text(text, e.cfg.MinTextLength) {
			logger.Debug("pdf stage %s output rejected for %s (%d chars)",
				s.name(), src.SourcePath, len(strings.TrimSpace(text)))
			failures = append(failures, fmt.Errorf("%s: output below validation threshold", s.name()))
			continue
		}

		return &driven.ExtractResult{
			Text: text,
			Metadata: map[string]any{
				"extraction_method": s.name(),
				"stages_attempted":  attempted,
			},
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrExtractionFailed, errors.Join(failures...))
}
