package extractors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maintains a priority-ordered set of extractors and
// dispatches on MIME type.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.Extractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an extractor, keeping the list sorted by descending
// priority so dispatch can take the first match.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, extractor)
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority() > r.extractors[j].Priority()
	})
}

// Extract runs the best matching extractor for the document's MIME type.
func (r *Registry) Extract(ctx context.Context, src *domain.SourceDocument) (*driven.ExtractResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}

	extractor := r.match(src.MIMEType)
	if extractor == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, src.MIMEType)
	}
	return extractor.Extract(ctx, src)
}

// SupportedMIMETypes returns all MIME types that can be extracted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var types []string
	for _, e := range r.extractors {
		for _, mt := range e.SupportedMIMETypes() {
			if _, ok := seen[mt]; ok {
				continue
			}
			seen[mt] = struct{}{}
			types = append(types, mt)
		}
	}
	sort.Strings(types)
	return types
}

func (r *Registry) match(mimeType string) driven.Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.extractors {
		for _, mt := range e.SupportedMIMETypes() {
			if mt == mimeType {
				return e
			}
		}
	}
	return nil
}
