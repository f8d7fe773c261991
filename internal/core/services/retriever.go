package services

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/logger"
)

// maxConcurrentSearches bounds the fan-out over sub-queries so a
// decomposed prompt cannot stampede the embedding provider.
const maxConcurrentSearches = 4

const defaultTopK = 10

// Retriever runs the retrieval half of the query pipeline: planning,
// embedding, bounded parallel similarity search, deduplication and
// optional reranking.
type Retriever struct {
	planner  *QueryPlanner
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	reranker *Reranker
}

// NewRetriever creates a new retriever.
func NewRetriever(planner *QueryPlanner, embedder driven.EmbeddingService, index driven.VectorIndex, reranker *Reranker) *Retriever {
	return &Retriever{
		planner:  planner,
		embedder: embedder,
		index:    index,
		reranker: reranker,
	}
}

// Retrieve returns the most relevant chunks for the prompt.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (r *Retriever) Retrieve(ctx context.Context, prompt string, opts domain.QueryOptions) ([]domain.RetrievedChunk, error) {
	if prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", domain.ErrInvalidInput)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	// 1. Plan the retrieval queries.
	queries := []string{prompt}
	if opts.SplitPrompt {
		queries = r.planner.Split(ctx, prompt)
	}
	if opts.UseHyDE {
		if hyde := r.planner.Hyde(ctx, prompt); hyde != "" {
			queries = append(queries, hyde)
		}
	}

	// 2. Fan out one search per query, bounded. Results are kept per
	// query slot so deduplication order does not depend on goroutine
	// scheduling. A failed sub-query is logged and dropped; retrieval
	// fails only when every query failed.
	perQuery := make([][]driven.VectorHit, len(queries))
	var failures int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSearches)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			hits, err := r.searchOne(gctx, q, topK, opts.Filter)
			if err != nil {
				logger.Warn("Sub-query search failed: %v", err)
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}
			perQuery[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if failures == len(queries) {
		return nil, fmt.Errorf("retrieve: all %d queries failed", len(queries))
	}

	// 3. Merge in query order and deduplicate by unique_id, first
	// occurrence wins.
	seen := make(map[string]struct{})
	var candidates []domain.RetrievedChunk
	for _, hits := range perQuery {
		for _, hit := range hits {
			if _, ok := seen[hit.ID]; ok {
				continue
			}
			seen[hit.ID] = struct{}{}
			chunk := driven.HitChunk(hit)
			if opts.MinScore > 0 && chunk.Score < opts.MinScore {
				continue
			}
			candidates = append(candidates, chunk)
		}
	}

	// 4. Rerank or truncate.
	if opts.Rerank && r.reranker != nil {
		return r.reranker.Rerank(ctx, prompt, candidates, topK), nil
	}
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (r *Retriever) searchOne(ctx context.Context, query string, topK int, filter map[string]any) ([]driven.VectorHit, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.index.Search(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}
