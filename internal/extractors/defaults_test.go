package extractors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/extractors/pdf"
)

func TestNewDefaultRegistry_CoversConnectorMIMETypes(t *testing.T) {
	registry := NewDefaultRegistry(pdf.Config{}, nil)
	supported := registry.SupportedMIMETypes()

	// Every MIME type the filesystem connector can emit must have a
	// registered extractor, otherwise those files fail on every run.
	emitted := []string{
		"text/plain",
		"text/markdown",
		"text/yaml",
		"text/toml",
		"text/x-go",
		"text/x-python",
		"text/x-rust",
		"text/x-shellscript",
		"text/x-sql",
		"text/typescript",
		"text/typescript-jsx",
		"text/javascript-jsx",
		"message/rfc822",
		"application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	}
	for _, mt := range emitted {
		assert.Contains(t, supported, mt)
	}
}

func TestNewDefaultRegistry_DispatchesSourceFiles(t *testing.T) {
	registry := NewDefaultRegistry(pdf.Config{}, nil)

	src := &domain.SourceDocument{
		MIMEType: "text/x-go",
		Content:  []byte("package main\n\nfunc main() {}\n"),
	}
	result, err := registry.Extract(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc main() {}\n", result.Text)
}
