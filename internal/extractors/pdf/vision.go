package pdf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/logger"
)

// visionInstruction is the per-page extraction prompt.
const visionInstruction = `Extract all text from this document page. ` +
	`Transcribe it faithfully, preserving the reading order. ` +
	`Return only the extracted text, without commentary.`

// visionWorkers bounds concurrent vision calls per document.
const visionWorkers = 2

// visionStage sends rasterised pages to a vision-capable LLM and
// concatenates the per-page transcriptions.
type visionStage struct {
	llm       driven.LLMService
	dpi       int
	pageLimit int
}

func newVisionStage(cfg Config, llm driven.LLMService) *visionStage {
	return &visionStage{
		llm:       llm,
		dpi:       cfg.OCRDPI,
		pageLimit: cfg.VisionPageLimit,
	}
}

func (s *visionStage) name() string { return "vision" }

func (s *visionStage) extract(ctx context.Context, content []byte) (string, error) {
	pages, cleanup, err := rasterisePages(ctx, content, s.dpi)
	if err != nil {
		return "", err
	}
	defer cleanup()

	if len(pages) > s.pageLimit {
		logger.Warn("vision extraction truncated to %d of %d pages", s.pageLimit, len(pages))
		pages = pages[:s.pageLimit]
	}

	texts := make([]string, len(pages))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(visionWorkers)

	for i, page := range pages {
		i, page := i, page
		group.Go(func() error {
			image, err := os.ReadFile(page)
			if err != nil {
				return fmt.Errorf("read page image: %w", err)
			}
			text, err := s.llm.Vision(groupCtx, image, "image/png", visionInstruction)
			if err != nil {
				// One failed page should not sink the whole document.
				logger.Warn("vision extraction failed for page %d: %v", i+1, err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return "", err
	}

	return strings.TrimSpace(strings.Join(texts, "\n\n")), nil
}
