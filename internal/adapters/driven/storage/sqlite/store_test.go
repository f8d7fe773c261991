package sqlite

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGetSource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveDocument(ctx, &domain.Document{
		DocID:      "doc-1",
		SourcePath: "/docs/report.pdf",
		Title:      "report.pdf",
		Content:    "Quarterly revenue grew by twelve percent.",
		Extracted:  true,
		Metadata:   map[string]any{"mime_type": "application/pdf"},
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	ref, err := store.GetSource(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", ref.DocID)
	assert.Equal(t, "report.pdf", ref.Filename)
	assert.Equal(t, "/docs/report.pdf", ref.SourcePath)
	assert.Equal(t, "Quarterly revenue grew by twelve percent.", ref.Preview)
}

func TestSaveDocumentUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &domain.Document{
		DocID:      "doc-1",
		SourcePath: "/docs/a.txt",
		Content:    "first version",
		Extracted:  true,
	}
	require.NoError(t, store.SaveDocument(ctx, doc))

	doc.Content = "second version"
	require.NoError(t, store.SaveDocument(ctx, doc))

	ref, err := store.GetSource(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "second version", ref.Preview)

	count, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSaveDocumentRequiresDocID(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveDocument(context.Background(), &domain.Document{SourcePath: "/x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFilenameDefaultsToBaseName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		DocID:      "doc-1",
		SourcePath: "/home/alice/notes/plan.md",
		Extracted:  true,
	}))

	ref, err := store.GetSource(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "plan.md", ref.Filename)
}

func TestGetSourceMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSource(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSourceMapOmitsUnknownIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		DocID: "doc-1", SourcePath: "/a.txt", Extracted: true,
	}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		DocID: "doc-2", SourcePath: "/b.txt", Extracted: true,
	}))

	refs, err := store.SourceMap(ctx, []string{"doc-1", "doc-2", "ghost"})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Contains(t, refs, "doc-1")
	assert.Contains(t, refs, "doc-2")
	assert.NotContains(t, refs, "ghost")
}

func TestSourceMapEmptyInput(t *testing.T) {
	store := newTestStore(t)

	refs, err := store.SourceMap(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestDeleteByDocID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		DocID: "doc-1", SourcePath: "/a.txt", Extracted: true,
	}))
	require.NoError(t, store.DeleteByDocID(ctx, "doc-1"))

	_, err := store.GetSource(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, store.DeleteByDocID(ctx, "doc-1"))
}

func TestPreviewTruncation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		DocID:      "doc-1",
		SourcePath: "/big.txt",
		Content:    strings.Repeat("a", 500),
		Extracted:  true,
	}))

	ref, err := store.GetSource(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", previewLength)+"...", ref.Preview)
}
