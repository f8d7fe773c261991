package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/logger"
)

const splitPromptTemplate = `Decompose the following question into independent sub-questions that can each be answered from a document collection on their own.
Write one sub-question per line. Do not number them. If the question is already atomic, repeat it as the single line.

Question: %s`

const hydePromptTemplate = `Write a short, factual passage that would plausibly appear in a document answering the following question. Do not mention the question itself.

Question: %s`

// QueryPlanner prepares retrieval queries from a user prompt: prompt
// decomposition into sub-questions and HyDE pseudo-answer generation.
// Both stages degrade to the raw prompt when the LLM misbehaves;
// planning never fails a query.
type QueryPlanner struct {
	llm driven.LLMService
}

// NewQueryPlanner creates a new query planner.
func NewQueryPlanner(llm driven.LLMService) *QueryPlanner {
	return &QueryPlanner{llm: llm}
}

// Split decomposes the prompt into sub-questions, one per response
// line. On LLM failure or an empty response the prompt itself is the
// single query.
func (p *QueryPlanner) Split(ctx context.Context, prompt string) []string {
	out, err := p.llm.Generate(ctx, fmt.Sprintf(splitPromptTemplate, prompt), driven.GenerateOptions{
		Temperature: 0.2,
	})
	if err != nil {
		logger.Warn("Prompt split failed, querying with raw prompt: %v", err)
		return []string{prompt}
	}

	var queries []string
	for _, line := range strings.Split(out, "\n") {
		line = stripListMarker(strings.TrimSpace(line))
		if line != "" {
			queries = append(queries, line)
		}
	}
	if len(queries) == 0 {
		return []string{prompt}
	}
	logger.Debug("Split prompt into %d sub-questions", len(queries))
	return queries
}

// Hyde generates a hypothetical answer passage used as an additional
// retrieval query. Failure is non-fatal and returns an empty string.
func (p *QueryPlanner) Hyde(ctx context.Context, prompt string) string {
	out, err := p.llm.Generate(ctx, fmt.Sprintf(hydePromptTemplate, prompt), driven.GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   256,
	})
	if err != nil {
		logger.Warn("HyDE generation failed, continuing without it: %v", err)
		return ""
	}
	return strings.TrimSpace(out)
}

// stripListMarker removes leading bullet or numbering the model adds
// despite instructions ("- ", "* ", "1. ", "2) ").
func stripListMarker(line string) string {
	trimmed := strings.TrimLeft(line, "-* \t")
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i > 0 && i < len(trimmed) && (trimmed[i] == '.' || trimmed[i] == ')') {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSpace(trimmed)
}
