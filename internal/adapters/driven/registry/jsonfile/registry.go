// Package jsonfile provides a file-backed implementation of the
// FileRegistry port. Each (user, source) pair owns one JSON store that
// is loaded fully on open and written through on every mutation.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.FileRegistry = (*Registry)(nil)

// state is the persisted store layout.
type state struct {
	Files      map[string]domain.RegistryEntry `json:"files"`
	LastUpdate time.Time                       `json:"last_update"`
	UserID     string                          `json:"user_id"`
	Source     string                          `json:"source"`
}

// Registry is a durable ledger of ingested documents for one
// (user, source) pair. Mutations are serialised by a single writer
// lock so concurrent duplicate ingestion runs cannot lose updates.
type Registry struct {
	mu    sync.RWMutex
	path  string
	state state
}

// Open loads (or creates) the registry store for a (user, source)
// pair under dir. An unreadable store is backed up under a
// timestamped name and replaced empty rather than aborting ingestion.
func Open(dir, userID, source string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}

	r := &Registry{
		path: filepath.Join(dir, fmt.Sprintf("%s_%s.json", userID, source)),
		state: state{
			Files:  make(map[string]domain.RegistryEntry),
			UserID: userID,
			Source: source,
		},
	}

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry store: %w", err)
	}

	var loaded state
	if err := json.Unmarshal(data, &loaded); err != nil {
		backup := fmt.Sprintf("%s.corrupt.%s", r.path, time.Now().UTC().Format("20060102T150405"))
		if renameErr := os.Rename(r.path, backup); renameErr != nil {
			return nil, fmt.Errorf("%w: backing up corrupt store: %v", domain.ErrRegistryCorrupt, renameErr)
		}
		logger.Warn("registry store %s unreadable, backed up to %s and starting empty: %v",
			r.path, backup, err)
		return r, nil
	}

	if loaded.Files == nil {
		loaded.Files = make(map[string]domain.RegistryEntry)
	}
	loaded.UserID = userID
	loaded.Source = source
	r.state = loaded
	return r, nil
}

// Path returns the store file path.
func (r *Registry) Path() string {
	return r.path
}

// Exists reports whether an entry exists for the path.
func (r *Registry) Exists(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.state.Files[path]
	return ok
}

// Get returns the entry for the path, or domain.ErrNotFound.
func (r *Registry) Get(path string) (*domain.RegistryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.state.Files[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// HasChanged reports whether the path is absent or registered under a
// different doc_id.
func (r *Registry) HasChanged(path, docID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.state.Files[path]
	if !ok {
		return true
	}
	return entry.DocID != docID
}

// Put stores or replaces the entry and writes the store through.
func (r *Registry) Put(_ context.Context, entry domain.RegistryEntry) error {
	if entry.SourcePath == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Files[entry.SourcePath] = entry
	return r.flushLocked()
}

// Remove deletes the entry for the path and writes the store through.
// Removing an absent path is a no-op.
func (r *Registry) Remove(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.Files[path]; !ok {
		return nil
	}
	delete(r.state.Files, path)
	return r.flushLocked()
}

// AllPaths returns every registered source path.
func (r *Registry) AllPaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.state.Files))
	for path := range r.state.Files {
		paths = append(paths, path)
	}
	return paths
}

// Close persists the current state.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

// flushLocked writes the store atomically: marshal to a temp file,
// then rename over the store so a crash never leaves a half-written
// ledger. Callers must hold the write lock.
func (r *Registry) flushLocked() error {
	r.state.LastUpdate = time.Now().UTC()

	data, err := json.MarshalIndent(r.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}
