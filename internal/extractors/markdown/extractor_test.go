package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

func TestExtract_StripsFormatting(t *testing.T) {
	e := New()
	src := &domain.SourceDocument{
		MIMEType: "text/markdown",
		Content:  []byte("# Budget Review\n\nAlice raised **two** concerns about Q3.\n\n- headcount\n- travel\n"),
	}

	result, err := e.Extract(context.Background(), src)
	require.NoError(t, err)

	assert.Contains(t, result.Text, "Budget Review")
	assert.Contains(t, result.Text, "Alice raised two concerns about Q3.")
	assert.Contains(t, result.Text, "headcount")
	assert.NotContains(t, result.Text, "**")
	assert.NotContains(t, result.Text, "#")
	assert.Equal(t, "markdown", result.Metadata["extraction_method"])
}

func TestExtract_KeepsCodeBlocks(t *testing.T) {
	e := New()
	src := &domain.SourceDocument{
		MIMEType: "text/markdown",
		Content:  []byte("Usage:\n\n```\nkorpus ingest ./docs\n```\n"),
	}

	result, err := e.Extract(context.Background(), src)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "korpus ingest ./docs")
}

func TestExtract_NilDocument(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
