package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/korpora-labs/korpus-cli/internal/logger"
)

// ocrStage rasterises pages with pdftoppm and runs tesseract over them
// in a bounded worker pool. Both binaries are external; when either is
// missing the stage fails and the chain advances.
type ocrStage struct {
	language string
	dpi      int
	workers  int

	fallbackOnce sync.Once
}

func newOCRStage(cfg Config) *ocrStage {
	return &ocrStage{
		language: cfg.OCRLanguage,
		dpi:      cfg.OCRDPI,
		workers:  cfg.OCRWorkers,
	}
}

func (s *ocrStage) name() string { return "ocr" }

func (s *ocrStage) extract(ctx context.Context, content []byte) (string, error) {
	pages, cleanup, err := rasterisePages(ctx, content, s.dpi)
	if err != nil {
		return "", err
	}
	defer cleanup()

	texts := make([]string, len(pages))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)

	for i, page := range pages {
		i, page := i, page
		group.Go(func() error {
			text, err := s.ocrPage(groupCtx, page)
			if err != nil {
				// A hard failure on one page must not cancel the rest.
				logger.Warn("ocr failed for page %s: %v", filepath.Base(page), err)
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

// ocrPage runs tesseract on one page image, falling back to the
// default language when the requested pack is unavailable.
func (s *ocrStage) ocrPage(ctx context.Context, imagePath string) (string, error) {
	text, err := runTesseract(ctx, imagePath, s.language)
	if err == nil || s.language == DefaultOCRLanguage {
		return text, err
	}
	if !strings.Contains(err.Error(), "Failed loading language") {
		return "", err
	}

	s.fallbackOnce.Do(func() {
		logger.Warn("ocr language pack %q unavailable, falling back to %q",
			s.language, DefaultOCRLanguage)
	})
	return runTesseract(ctx, imagePath, DefaultOCRLanguage)
}

func runTesseract(ctx context.Context, imagePath, language string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "tesseract", imagePath, "stdout", "-l", language)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// rasterisePages renders the PDF to per-page PNG files in a temp
// directory, returning the page paths in page order and a cleanup
// function for the directory.
func rasterisePages(ctx context.Context, content []byte, dpi int) ([]string, func(), error) {
	dir, err := os.MkdirTemp("", "korpus-pdf-")
	if err != nil {
		return nil, nil, fmt.Errorf("temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	pdfPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(pdfPath, content, 0600); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("write pdf: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "pdftoppm", "-png", "-r", strconv.Itoa(dpi),
		pdfPath, filepath.Join(dir, "page"))
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	pages, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil || len(pages) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no pages rasterised")
	}
	sortByPageNumber(pages)
	return pages, cleanup, nil
}

// sortByPageNumber orders page files numerically, since pdftoppm only
// zero-pads within one document's digit count.
func sortByPageNumber(pages []string) {
	sort.Slice(pages, func(i, j int) bool {
		return pageNumber(pages[i]) < pageNumber(pages[j])
	})
}

func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	idx := strings.LastIndexByte(base, '-')
	if idx < 0 {
		return 0
	}
	n, _ := strconv.Atoi(base[idx+1:])
	return n
}
