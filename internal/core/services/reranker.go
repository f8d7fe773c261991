package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/logger"
)

// maxConcurrentRerank bounds the parallel LLM scoring calls.
const maxConcurrentRerank = 4

// rerankTextLimit caps how much chunk text is sent for scoring.
const rerankTextLimit = 1000

const rerankPromptTemplate = `Rate how relevant the following passage is to the question on a scale from 0.0 (irrelevant) to 1.0 (directly answers it).
Respond with the number only.

Question: %s

Passage:
%s`

// Reranker re-scores retrieval candidates against the original prompt
// with the LLM. A candidate whose scoring call fails or returns
// garbage keeps score 0 rather than failing the query.
type Reranker struct {
	llm driven.LLMService
}

// NewReranker creates a new reranker.
func NewReranker(llm driven.LLMService) *Reranker {
	return &Reranker{llm: llm}
}

// Rerank scores every candidate against the prompt, sorts by score
// descending (stable, so retrieval order breaks ties) and truncates
// to topK.
func (r *Reranker) Rerank(ctx context.Context, prompt string, candidates []domain.RetrievedChunk, topK int) []domain.RetrievedChunk {
	if len(candidates) == 0 {
		return candidates
	}

	reranked := make([]domain.RetrievedChunk, len(candidates))
	copy(reranked, candidates)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRerank)
	for i := range reranked {
		i := i
		g.Go(func() error {
			reranked[i].Score = r.score(gctx, prompt, reranked[i].Content)
			return nil
		})
	}
	// Goroutines only record scores, they never return errors.
	_ = g.Wait()

	sort.SliceStable(reranked, func(a, b int) bool {
		return reranked[a].Score > reranked[b].Score
	})
	if topK > 0 && len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked
}

// score asks the LLM for a relevance score in [0, 1]. Anything the
// model returns outside that contract scores 0.
func (r *Reranker) score(ctx context.Context, prompt, text string) float64 {
	if len(text) > rerankTextLimit {
		text = text[:rerankTextLimit]
	}
	out, err := r.llm.Generate(ctx, fmt.Sprintf(rerankPromptTemplate, prompt, text), driven.GenerateOptions{
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		logger.Warn("Rerank scoring failed, keeping score 0: %v", err)
		return 0
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || score < 0 || score > 1 {
		logger.Debug("Unparseable rerank score %q, keeping 0", out)
		return 0
	}
	return score
}
