package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// retrieverMockEmbedder implements driven.EmbeddingService, returning
// a fixed vector per distinct text.
type retrieverMockEmbedder struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (m *retrieverMockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return []float32{1, 0, 0}, nil
}

func (m *retrieverMockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (m *retrieverMockEmbedder) Dimensions() int   { return 3 }
func (m *retrieverMockEmbedder) ModelName() string { return "mock" }
func (m *retrieverMockEmbedder) Close() error      { return nil }

// retrieverMockIndex implements driven.VectorIndex, returning canned
// hits and recording search invocations.
type retrieverMockIndex struct {
	mu        sync.Mutex
	hits      []driven.VectorHit
	searchErr error
	searches  int
	filters   []map[string]any
}

func (m *retrieverMockIndex) EnsureCollection(context.Context, string, int, string) error { return nil }

func (m *retrieverMockIndex) UpsertBatch(context.Context, []driven.Point) (int, error) {
	return 0, errors.New("not implemented")
}

func (m *retrieverMockIndex) DeleteByDocID(context.Context, string) (int, error) {
	return 0, errors.New("not implemented")
}

func (m *retrieverMockIndex) ScanDocIDs(context.Context) (map[string]struct{}, error) {
	return nil, errors.New("not implemented")
}

func (m *retrieverMockIndex) Search(_ context.Context, _ []float32, topK int, filter map[string]any) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	m.filters = append(m.filters, filter)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if len(m.hits) > topK {
		return m.hits[:topK], nil
	}
	return m.hits, nil
}

func (m *retrieverMockIndex) Count(context.Context) (int, error) { return len(m.hits), nil }
func (m *retrieverMockIndex) Close() error                       { return nil }

func retrieverHit(id, docID string, score float64) driven.VectorHit {
	return driven.VectorHit{
		ID:    id,
		Score: score,
		Payload: map[string]any{
			"text":   "text of " + id,
			"doc_id": docID,
			"metadata": map[string]any{
				"doc_id": docID,
			},
		},
	}
}

func newTestRetriever(llm driven.LLMService, embedder *retrieverMockEmbedder, index *retrieverMockIndex) *Retriever {
	return NewRetriever(NewQueryPlanner(llm), embedder, index, NewReranker(llm))
}

func TestRetrieve_EmptyPromptRejected(t *testing.T) {
	r := newTestRetriever(&plannerMockLLM{}, &retrieverMockEmbedder{}, &retrieverMockIndex{})

	_, err := r.Retrieve(context.Background(), "", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrieve_SingleQueryWithoutOptions(t *testing.T) {
	index := &retrieverMockIndex{hits: []driven.VectorHit{
		retrieverHit("c1", "doc-a", 0.9),
		retrieverHit("c2", "doc-b", 0.7),
	}}
	embedder := &retrieverMockEmbedder{}
	r := newTestRetriever(&plannerMockLLM{}, embedder, index)

	chunks, err := r.Retrieve(context.Background(), "question", domain.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, index.searches, "no split, no HyDE: one search")
	assert.Equal(t, []string{"question"}, embedder.calls)
	require.Len(t, chunks, 2)
	assert.Equal(t, "c1", chunks[0].ID)
	assert.Equal(t, "doc-a", chunks[0].DocID)
	assert.Equal(t, 0.9, chunks[0].Score)
}

func TestRetrieve_SplitFansOutPerSubQuestion(t *testing.T) {
	llm := &plannerMockLLM{response: "first sub-question\nsecond sub-question"}
	index := &retrieverMockIndex{hits: []driven.VectorHit{retrieverHit("c1", "doc-a", 0.9)}}
	embedder := &retrieverMockEmbedder{}
	r := newTestRetriever(llm, embedder, index)

	_, err := r.Retrieve(context.Background(), "compound question", domain.QueryOptions{SplitPrompt: true})
	require.NoError(t, err)

	assert.Equal(t, 2, index.searches, "one search per sub-question")
	assert.ElementsMatch(t, []string{"first sub-question", "second sub-question"}, embedder.calls)
}

func TestRetrieve_HydeAddsOneQuery(t *testing.T) {
	llm := &plannerMockLLM{response: "a hypothetical answer passage"}
	index := &retrieverMockIndex{hits: []driven.VectorHit{retrieverHit("c1", "doc-a", 0.9)}}
	embedder := &retrieverMockEmbedder{}
	r := newTestRetriever(llm, embedder, index)

	_, err := r.Retrieve(context.Background(), "question", domain.QueryOptions{UseHyDE: true})
	require.NoError(t, err)

	assert.Equal(t, 2, index.searches, "prompt plus HyDE passage")
	assert.ElementsMatch(t, []string{"question", "a hypothetical answer passage"}, embedder.calls)
}

func TestRetrieve_DeduplicatesAcrossQueries(t *testing.T) {
	// Both sub-questions return the same hit id.
	llm := &plannerMockLLM{response: "sub one\nsub two"}
	index := &retrieverMockIndex{hits: []driven.VectorHit{
		retrieverHit("c1", "doc-a", 0.9),
		retrieverHit("c2", "doc-a", 0.8),
	}}
	r := newTestRetriever(llm, &retrieverMockEmbedder{}, index)

	chunks, err := r.Retrieve(context.Background(), "q", domain.QueryOptions{SplitPrompt: true})
	require.NoError(t, err)

	ids := make(map[string]int)
	for _, c := range chunks {
		ids[c.ID]++
	}
	assert.Equal(t, map[string]int{"c1": 1, "c2": 1}, ids, "each unique_id appears once")
}

func TestRetrieve_MinScoreFilters(t *testing.T) {
	index := &retrieverMockIndex{hits: []driven.VectorHit{
		retrieverHit("c1", "doc-a", 0.9),
		retrieverHit("c2", "doc-b", 0.2),
	}}
	r := newTestRetriever(&plannerMockLLM{}, &retrieverMockEmbedder{}, index)

	chunks, err := r.Retrieve(context.Background(), "q", domain.QueryOptions{MinScore: 0.5})
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "c1", chunks[0].ID)
}

func TestRetrieve_TopKTruncates(t *testing.T) {
	var hits []driven.VectorHit
	for i := 0; i < 20; i++ {
		hits = append(hits, retrieverHit(string(rune('a'+i)), "doc", 0.9))
	}
	index := &retrieverMockIndex{hits: hits}
	r := newTestRetriever(&plannerMockLLM{}, &retrieverMockEmbedder{}, index)

	chunks, err := r.Retrieve(context.Background(), "q", domain.QueryOptions{TopK: 3})
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestRetrieve_FilterPassedThrough(t *testing.T) {
	index := &retrieverMockIndex{hits: []driven.VectorHit{retrieverHit("c1", "doc-a", 0.9)}}
	r := newTestRetriever(&plannerMockLLM{}, &retrieverMockEmbedder{}, index)

	filter := map[string]any{"owner": "alice"}
	_, err := r.Retrieve(context.Background(), "q", domain.QueryOptions{Filter: filter})
	require.NoError(t, err)

	require.Len(t, index.filters, 1)
	assert.Equal(t, filter, index.filters[0])
}

func TestRetrieve_AllQueriesFailing(t *testing.T) {
	index := &retrieverMockIndex{searchErr: errors.New("index down")}
	r := newTestRetriever(&plannerMockLLM{}, &retrieverMockEmbedder{}, index)

	_, err := r.Retrieve(context.Background(), "q", domain.QueryOptions{})
	assert.Error(t, err)
}

func TestRetrieve_EmbedFailureFailsQuery(t *testing.T) {
	embedder := &retrieverMockEmbedder{err: errors.New("embedding down")}
	r := newTestRetriever(&plannerMockLLM{}, embedder, &retrieverMockIndex{})

	_, err := r.Retrieve(context.Background(), "q", domain.QueryOptions{})
	assert.Error(t, err)
}
