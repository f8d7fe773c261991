package extractors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

type stubExtractor struct {
	mimeTypes []string
	priority  int
	text      string
}

func (s *stubExtractor) SupportedMIMETypes() []string { return s.mimeTypes }
func (s *stubExtractor) Priority() int                { return s.priority }
func (s *stubExtractor) Extract(_ context.Context, _ *domain.SourceDocument) (*driven.ExtractResult, error) {
	return &driven.ExtractResult{Text: s.text}, nil
}

func TestRegistry_DispatchByMIMEType(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{mimeTypes: []string{"text/plain"}, priority: 5, text: "plain"})
	r.Register(&stubExtractor{mimeTypes: []string{"application/pdf"}, priority: 50, text: "pdf"})

	result, err := r.Extract(context.Background(), &domain.SourceDocument{MIMEType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "pdf", result.Text)
}

func TestRegistry_PriorityWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{mimeTypes: []string{"text/plain"}, priority: 5, text: "fallback"})
	r.Register(&stubExtractor{mimeTypes: []string{"text/plain"}, priority: 80, text: "specific"})

	result, err := r.Extract(context.Background(), &domain.SourceDocument{MIMEType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "specific", result.Text)
}

func TestRegistry_UnsupportedType(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{mimeTypes: []string{"text/plain"}, priority: 5})

	_, err := r.Extract(context.Background(), &domain.SourceDocument{MIMEType: "application/x-unknown"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_NilDocument(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_SupportedMIMETypes(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{mimeTypes: []string{"text/plain", "text/csv"}, priority: 5})
	r.Register(&stubExtractor{mimeTypes: []string{"text/plain"}, priority: 80})

	types := r.SupportedMIMETypes()
	assert.Equal(t, []string{"text/csv", "text/plain"}, types)
}
