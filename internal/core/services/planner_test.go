package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// plannerMockLLM implements driven.LLMService for planner testing.
type plannerMockLLM struct {
	response string
	err      error
	prompts  []string
}

func (m *plannerMockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *plannerMockLLM) Chat(context.Context, []driven.ChatMessage, driven.ChatOptions) (string, error) {
	return "", errors.New("not implemented")
}

func (m *plannerMockLLM) ChatStream(context.Context, []driven.ChatMessage, driven.ChatOptions) (<-chan driven.StreamDelta, error) {
	return nil, errors.New("not implemented")
}

func (m *plannerMockLLM) Vision(context.Context, []byte, string, string) (string, error) {
	return "", errors.New("not implemented")
}

func (m *plannerMockLLM) ModelName() string { return "mock" }
func (m *plannerMockLLM) Close() error      { return nil }

func TestSplit_MultipleSubQuestions(t *testing.T) {
	llm := &plannerMockLLM{response: "Who wrote the report?\nWhen was it published?\n"}
	planner := NewQueryPlanner(llm)

	queries := planner.Split(context.Background(), "who wrote the report and when")

	assert.Equal(t, []string{"Who wrote the report?", "When was it published?"}, queries)
}

func TestSplit_StripsListMarkers(t *testing.T) {
	llm := &plannerMockLLM{response: "1. First question\n2) Second question\n- Third question"}
	planner := NewQueryPlanner(llm)

	queries := planner.Split(context.Background(), "x")

	assert.Equal(t, []string{"First question", "Second question", "Third question"}, queries)
}

func TestSplit_FallsBackToPromptOnError(t *testing.T) {
	llm := &plannerMockLLM{err: errors.New("llm down")}
	planner := NewQueryPlanner(llm)

	queries := planner.Split(context.Background(), "original question")

	assert.Equal(t, []string{"original question"}, queries)
}

func TestSplit_FallsBackToPromptOnEmptyResponse(t *testing.T) {
	llm := &plannerMockLLM{response: "\n  \n"}
	planner := NewQueryPlanner(llm)

	queries := planner.Split(context.Background(), "original question")

	assert.Equal(t, []string{"original question"}, queries)
}

func TestHyde_ReturnsPassage(t *testing.T) {
	llm := &plannerMockLLM{response: "  The report was published in March. "}
	planner := NewQueryPlanner(llm)

	assert.Equal(t, "The report was published in March.", planner.Hyde(context.Background(), "when was it published"))
}

func TestHyde_FailureIsNonFatal(t *testing.T) {
	llm := &plannerMockLLM{err: errors.New("llm down")}
	planner := NewQueryPlanner(llm)

	assert.Empty(t, planner.Hyde(context.Background(), "question"))
}
