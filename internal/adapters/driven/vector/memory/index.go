// Package memory provides an in-memory implementation of the
// VectorIndex port. It backs tests and small local corpora where no
// external vector service is running.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// Index is a map-backed vector index with brute-force cosine search.
type Index struct {
	mu     sync.RWMutex
	points map[string]driven.Point
}

var _ driven.VectorIndex = (*Index)(nil)

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{points: make(map[string]driven.Point)}
}

// EnsureCollection is a no-op for the in-memory index.
func (m *Index) EnsureCollection(_ context.Context, _ string, _ int, _ string) error {
	return nil
}

// UpsertBatch inserts or replaces points keyed by ID.
func (m *Index) UpsertBatch(_ context.Context, points []driven.Point) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range points {
		m.points[p.ID] = p
	}
	return len(points), nil
}

// DeleteByDocID removes every point whose payload carries the doc_id,
// whether top-level or nested under metadata.
func (m *Index) DeleteByDocID(_ context.Context, docID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, p := range m.points {
		if pointDocID(p.Payload) == docID {
			delete(m.points, id)
			deleted++
		}
	}
	return deleted, nil
}

// ScanDocIDs returns the set of distinct doc_ids currently indexed.
func (m *Index) ScanDocIDs(_ context.Context) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docIDs := make(map[string]struct{})
	for _, p := range m.points {
		if id := pointDocID(p.Payload); id != "" {
			docIDs[id] = struct{}{}
		}
	}
	return docIDs, nil
}

// Search returns the topK points by cosine similarity. The filter
// supports exact matches on top-level payload fields.
func (m *Index) Search(_ context.Context, vector []float32, topK int, filter map[string]any) ([]driven.VectorHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(m.points))
	for _, p := range m.points {
		if !matchesFilter(p.Payload, filter) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ID:      p.ID,
			Score:   cosineSimilarity(vector, p.Vector),
			Payload: p.Payload,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Count returns the number of stored points.
func (m *Index) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points), nil
}

// Close is a no-op.
func (m *Index) Close() error {
	return nil
}

func pointDocID(payload map[string]any) string {
	if id, ok := payload["doc_id"].(string); ok && id != "" {
		return id
	}
	if meta, ok := payload["metadata"].(map[string]any); ok {
		if id, ok := meta["doc_id"].(string); ok {
			return id
		}
	}
	return ""
}

func matchesFilter(payload, filter map[string]any) bool {
	for key, want := range filter {
		if payload[key] != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
