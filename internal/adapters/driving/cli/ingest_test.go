package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

// ingestCmdMockService implements driving.IngestionService.
type ingestCmdMockService struct {
	docs      []domain.SourceDocument
	reconcile map[string]struct{}
	removed   int
}

func (m *ingestCmdMockService) IngestBatch(_ context.Context, docs []domain.SourceDocument) (*domain.BatchResult, error) {
	m.docs = append(m.docs, docs...)
	return &domain.BatchResult{Processed: len(docs)}, nil
}

func (m *ingestCmdMockService) IngestOne(ctx context.Context, doc domain.SourceDocument) error {
	_, err := m.IngestBatch(ctx, []domain.SourceDocument{doc})
	return err
}

func (m *ingestCmdMockService) Reconcile(_ context.Context, presentPaths map[string]struct{}) (int, error) {
	m.reconcile = presentPaths
	return m.removed, nil
}

func runIngestCmd(t *testing.T, svc *ingestCmdMockService, args ...string) (string, error) {
	t.Helper()

	originalService := ingestService
	ingestService = svc
	defer func() { ingestService = originalService }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(append([]string{"ingest"}, args...))
	defer func() {
		rootCmd.SetArgs(nil)
		for _, name := range []string{"batch-size", "prune", "watch"} {
			flag := ingestCmd.Flags().Lookup(name)
			require.NotNil(t, flag)
			require.NoError(t, ingestCmd.Flags().Set(name, flag.DefValue))
			flag.Changed = false
		}
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestIngestCmd_IngestsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# beta"), 0o644))

	svc := &ingestCmdMockService{}
	out, err := runIngestCmd(t, svc, dir)
	require.NoError(t, err)

	assert.Len(t, svc.docs, 2)
	assert.Contains(t, out, "2 processed")
	assert.Nil(t, svc.reconcile, "no prune without the flag")
}

func TestIngestCmd_PrunePassesPresentPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha"), 0o644))

	svc := &ingestCmdMockService{removed: 3}
	out, err := runIngestCmd(t, svc, dir, "--prune")
	require.NoError(t, err)

	require.NotNil(t, svc.reconcile)
	assert.Contains(t, svc.reconcile, path)
	assert.Contains(t, out, "Pruned 3")
}

func TestIngestCmd_MissingDirectory(t *testing.T) {
	svc := &ingestCmdMockService{}
	_, err := runIngestCmd(t, svc, "/does/not/exist")
	assert.Error(t, err)
}

func TestIngestCmd_BatchSizeSplitsBatches(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	svc := &ingestCmdMockService{}
	_, err := runIngestCmd(t, svc, dir, "--batch-size", "2")
	require.NoError(t, err)
	assert.Len(t, svc.docs, 3, "all documents ingested across batches")
}
