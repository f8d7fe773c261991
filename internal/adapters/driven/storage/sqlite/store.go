package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/korpora-labs/korpus-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// previewLength is the number of characters of extracted text kept per
// document for citation previews.
const previewLength = 200

// Store is a SQLite-backed citation store. One row per document
// version, keyed by doc_id.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.DocumentStore = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.korpus/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".korpus", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SaveDocument stores or updates the citation record for a document version.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc.DocID == "" {
		return domain.ErrInvalidInput
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	filename := doc.Title
	if filename == "" {
		filename = filepath.Base(doc.SourcePath)
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (doc_id, source_path, filename, preview, extracted, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			source_path = excluded.source_path,
			filename = excluded.filename,
			preview = excluded.preview,
			extracted = excluded.extracted,
			metadata = excluded.metadata,
			created_at = excluded.created_at
	`, doc.DocID, doc.SourcePath, filename, preview(doc.Content),
		doc.Extracted, string(metadataJSON), createdAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetSource resolves a doc_id to its citation reference.
func (s *Store) GetSource(ctx context.Context, docID string) (*domain.SourceRef, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, source_path, filename, preview
		FROM documents WHERE doc_id = ?
	`, docID)

	var ref domain.SourceRef
	if err := row.Scan(&ref.DocID, &ref.SourcePath, &ref.Filename, &ref.Preview); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	return &ref, nil
}

// SourceMap resolves many doc_ids at once. Unknown ids are omitted from
// the result.
func (s *Store) SourceMap(ctx context.Context, docIDs []string) (map[string]domain.SourceRef, error) {
	refs := make(map[string]domain.SourceRef, len(docIDs))
	if len(docIDs) == 0 {
		return refs, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(docIDs)), ",")
	args := make([]any, len(docIDs))
	for i, id := range docIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT doc_id, source_path, filename, preview
		FROM documents WHERE doc_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref domain.SourceRef
		if err := rows.Scan(&ref.DocID, &ref.SourcePath, &ref.Filename, &ref.Preview); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		refs[ref.DocID] = ref
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return refs, nil
}

// DeleteByDocID removes the citation record for a document version.
// Deleting an absent doc_id is a no-op.
func (s *Store) DeleteByDocID(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE doc_id = ?", docID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// CountDocuments returns the number of stored citation records.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// preview truncates extracted text on a rune boundary for display.
func preview(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength]) + "..."
}
