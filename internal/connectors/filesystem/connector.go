// Package filesystem provides a connector that reads documents from a
// local directory tree.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector reads files under a root directory and emits them as
// source documents. Hidden files and configured exclude patterns are
// skipped.
type Connector struct {
	rootPath string
	owner    string
	excludes []string
	watcher  *fsnotify.Watcher
	closed   bool
}

// New creates a filesystem connector rooted at rootPath. Exclude
// patterns use doublestar glob syntax matched against the path
// relative to the root.
func New(rootPath, owner string, excludes []string) *Connector {
	return &Connector{
		rootPath: rootPath,
		owner:    owner,
		excludes: excludes,
	}
}

// Provider returns the connector type.
func (c *Connector) Provider() string {
	return "filesystem"
}

// Validate checks that the root path exists and is a readable directory.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(c.rootPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("root path does not exist: %s", c.rootPath)
	}
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path is not a directory: %s", c.rootPath)
	}
	return nil
}

// Fetch walks the tree and streams every non-hidden, non-excluded
// file. The documents channel closes when the walk finishes; a fatal
// walk error arrives on the errors channel.
func (c *Connector) Fetch(ctx context.Context) (<-chan domain.SourceDocument, <-chan error) {
	docs := make(chan domain.SourceDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.Validate(ctx); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.rootPath, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("skipping %s: %v", path, err)
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if entry.IsDir() {
				if isHidden(entry.Name()) && path != c.rootPath {
					return filepath.SkipDir
				}
				return nil
			}
			if c.skip(path, entry.Name()) {
				return nil
			}

			doc, err := c.readDocument(path)
			if err != nil {
				logger.Warn("reading %s: %v", path, err)
				return nil
			}

			select {
			case docs <- *doc:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errs <- fmt.Errorf("walking %s: %w", c.rootPath, err)
		}
	}()

	return docs, errs
}

// Watch streams documents as files are created or modified, until the
// context is cancelled. Deletions are not emitted; Reconcile handles
// vanished paths.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.SourceDocument, error) {
	if c.closed {
		return nil, fmt.Errorf("connector is closed")
	}
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	c.watcher = watcher

	// Watch the whole tree; fsnotify is not recursive.
	err = filepath.WalkDir(c.rootPath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() && !isHidden(entry.Name()) {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", c.rootPath, err)
	}

	docs := make(chan domain.SourceDocument)
	go func() {
		defer close(docs)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				doc := c.handleFsEvent(event, watcher)
				if doc == nil {
					continue
				}
				select {
				case docs <- *doc:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error: %v", err)
			}
		}
	}()

	return docs, nil
}

// handleFsEvent converts one fsnotify event into a source document,
// or nil when the event is irrelevant (chmod, directory, hidden,
// excluded, removed).
func (c *Connector) handleFsEvent(event fsnotify.Event, watcher *fsnotify.Watcher) *domain.SourceDocument {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return nil
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		// Newly created directories must be added to the watch set.
		if event.Has(fsnotify.Create) && !isHidden(filepath.Base(event.Name)) {
			if err := watcher.Add(event.Name); err != nil {
				logger.Warn("watching new directory %s: %v", event.Name, err)
			}
		}
		return nil
	}
	if c.skip(event.Name, filepath.Base(event.Name)) {
		return nil
	}

	doc, err := c.readDocument(event.Name)
	if err != nil {
		logger.Warn("reading %s: %v", event.Name, err)
		return nil
	}
	return doc
}

// Close releases the watcher. Close is idempotent.
func (c *Connector) Close() error {
	c.closed = true
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

// skip reports whether a file should be excluded from ingestion.
func (c *Connector) skip(path, name string) bool {
	if isHidden(name) {
		return true
	}

	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// readDocument loads one file into a source document.
func (c *Connector) readDocument(path string) (*domain.SourceDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &domain.SourceDocument{
		SourcePath: path,
		Provider:   "filesystem",
		MIMEType:   detectMIMEType(path),
		Owner:      c.owner,
		Content:    content,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		Metadata: map[string]any{
			"filename":  filepath.Base(path),
			"extension": strings.TrimPrefix(filepath.Ext(path), "."),
		},
	}, nil
}

// fallbackMIMETypes covers extensions the platform mime database often
// misses, keeping detection deterministic across systems.
var fallbackMIMETypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".rs":       "text/x-rust",
	".ts":       "text/typescript",
	".tsx":      "text/typescript-jsx",
	".jsx":      "text/javascript-jsx",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".sh":       "text/x-shellscript",
	".bash":     "text/x-shellscript",
	".sql":      "text/x-sql",
	".eml":      "message/rfc822",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// detectMIMEType resolves a file's MIME type from its extension.
// Extensionless files are treated as plain text; unknown extensions
// fall back to application/octet-stream.
func detectMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text/plain"
	}

	if mimeType, ok := fallbackMIMETypes[ext]; ok {
		return mimeType
	}

	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		// Strip parameters like "; charset=utf-8".
		if idx := strings.Index(mimeType, ";"); idx >= 0 {
			mimeType = strings.TrimSpace(mimeType[:idx])
		}
		return mimeType
	}

	return "application/octet-stream"
}

// isHidden reports whether any path element starts with a dot.
// "." and ".." are not considered hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
