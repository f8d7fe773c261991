// Package qdrant provides a Qdrant-backed implementation of the
// VectorIndex port over the REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/logger"
)

const (
	// upsertBatchSize bounds the number of points sent per upsert call.
	upsertBatchSize = 100

	// scrollPageSize bounds the number of points fetched per scroll page.
	scrollPageSize = 512

	defaultTimeout = 30 * time.Second
)

// Config holds connection settings for the Qdrant REST API.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Index is a minimal REST client to Qdrant implementing the
// VectorIndex port.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

var _ driven.VectorIndex = (*Index)(nil)

// New creates a Qdrant index client. The collection is not touched
// until EnsureCollection is called.
func New(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if absent. Qdrant answers
// 200 for an existing collection with the same schema, so this is
// safe to call on every start.
func (q *Index) EnsureCollection(ctx context.Context, name string, vectorSize int, metric string) error {
	if name != "" {
		q.collection = name
	}
	if vectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", domain.ErrInvalidInput)
	}
	if metric == "" {
		metric = "Cosine"
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": metric,
		},
	}
	return q.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", q.collection), body, nil)
}

// UpsertBatch inserts or replaces points in fixed-size sub-batches.
// A failed sub-batch is logged and skipped so one bad batch does not
// abort the whole document.
func (q *Index) UpsertBatch(ctx context.Context, points []driven.Point) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	upserted := 0
	var lastErr error
	for start := 0; start < len(points); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(points))
		batch := points[start:end]

		if err := ctx.Err(); err != nil {
			return upserted, err
		}

		payload := make([]map[string]any, len(batch))
		for i, p := range batch {
			payload[i] = map[string]any{
				"id":      p.ID,
				"vector":  p.Vector,
				"payload": p.Payload,
			}
		}
		body := map[string]any{"points": payload}

		err := q.do(ctx, http.MethodPut,
			fmt.Sprintf("/collections/%s/points?wait=true", q.collection), body, nil)
		if err != nil {
			logger.Warn("qdrant upsert batch %d-%d failed: %v", start, end, err)
			lastErr = err
			continue
		}
		upserted += len(batch)
	}

	if upserted == 0 && lastErr != nil {
		return 0, lastErr
	}
	return upserted, nil
}

// docIDFilter matches points belonging to a document version whether
// the doc_id lives at the payload top level or nested under metadata.
// Both layouts exist across index generations.
func docIDFilter(docID string) map[string]any {
	return map[string]any{
		"should": []map[string]any{
			{"key": "doc_id", "match": map[string]any{"value": docID}},
			{"key": "metadata.doc_id", "match": map[string]any{"value": docID}},
		},
	}
}

// DeleteByDocID removes every point of a document version and returns
// how many points were removed.
func (q *Index) DeleteByDocID(ctx context.Context, docID string) (int, error) {
	filter := docIDFilter(docID)

	// Count first: the delete response does not report how many points
	// matched.
	count, err := q.countWithFilter(ctx, filter)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	body := map[string]any{"filter": filter}
	err = q.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/delete?wait=true", q.collection), body, nil)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ScanDocIDs pages through the whole collection and collects the set
// of distinct doc_ids, looking at both payload layouts.
func (q *Index) ScanDocIDs(ctx context.Context) (map[string]struct{}, error) {
	docIDs := make(map[string]struct{})

	var offset any
	for {
		body := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": []string{"doc_id", "metadata"},
			"with_vector":  false,
		}
		if offset != nil {
			body["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		err := q.do(ctx, http.MethodPost,
			fmt.Sprintf("/collections/%s/points/scroll", q.collection), body, &resp)
		if err != nil {
			return nil, err
		}

		for _, point := range resp.Result.Points {
			if id, ok := point.Payload["doc_id"].(string); ok && id != "" {
				docIDs[id] = struct{}{}
				continue
			}
			if meta, ok := point.Payload["metadata"].(map[string]any); ok {
				if id, ok := meta["doc_id"].(string); ok && id != "" {
					docIDs[id] = struct{}{}
				}
			}
		}

		if resp.Result.NextPageOffset == nil {
			return docIDs, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

// Search returns the topK nearest points to the query vector.
func (q *Index) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]driven.VectorHit, error) {
	if topK <= 0 {
		topK = 5
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if len(filter) > 0 {
		body["filter"] = filter
	}

	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", q.collection), body, &resp)
	if err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, driven.VectorHit{
			ID:      fmt.Sprintf("%v", r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

// Count returns the exact number of points in the collection.
func (q *Index) Count(ctx context.Context) (int, error) {
	return q.countWithFilter(ctx, nil)
}

// Close releases idle connections.
func (q *Index) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

func (q *Index) countWithFilter(ctx context.Context, filter map[string]any) (int, error) {
	body := map[string]any{"exact": true}
	if len(filter) > 0 {
		body["filter"] = filter
	}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/count", q.collection), body, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// do performs one JSON request against the Qdrant API. Server-side
// overload answers map to domain.ErrTransient so callers can retry.
func (q *Index) do(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.url+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s %s: %v", domain.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("%w: qdrant %s %s: %s: %s",
				domain.ErrTransient, method, path, resp.Status, detail)
		}
		return fmt.Errorf("qdrant %s %s: %s: %s", method, path, resp.Status, detail)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
