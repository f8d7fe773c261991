package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driving"
	"github.com/korpora-labs/korpus-cli/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.QueryService = (*AnswerService)(nil)

const answerSystemPrompt = `You are a careful assistant answering questions from a personal document collection.
Answer only from the context passages below. When you use a passage, cite it by repeating its bracketed identifier, e.g. [a1b2c3].
If the context does not contain the answer, say so instead of guessing.`

// citationPattern matches bracketed identifiers in generated text.
// Which of them are real citations is decided against the doc_ids of
// the retrieved context, not by shape alone.
var citationPattern = regexp.MustCompile(`\[([^\[\]\s]+)\]`)

// AnswerService is the driving query service: retrieval plus cited
// answer synthesis, in single-shot and streaming form.
type AnswerService struct {
	retriever *Retriever
	llm       driven.LLMService
	docStore  driven.DocumentStore
}

// NewAnswerService creates a new answer service.
func NewAnswerService(retriever *Retriever, llm driven.LLMService, docStore driven.DocumentStore) *AnswerService {
	return &AnswerService{
		retriever: retriever,
		llm:       llm,
		docStore:  docStore,
	}
}

// Retrieve returns the most relevant chunks for a prompt.
func (s *AnswerService) Retrieve(ctx context.Context, prompt string, opts domain.QueryOptions) ([]domain.RetrievedChunk, error) {
	return s.retriever.Retrieve(ctx, prompt, opts)
}

// Answer retrieves context and synthesises a cited answer.
func (s *AnswerService) Answer(ctx context.Context, prompt string, history []domain.Message, opts domain.QueryOptions) (*domain.Answer, error) {
	chunks, err := s.retriever.Retrieve(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}

	text, err := s.llm.Chat(ctx, buildAnswerMessages(prompt, history, chunks), driven.ChatOptions{})
	if err != nil {
		return nil, fmt.Errorf("synthesise answer: %w", err)
	}

	sources := s.resolveCitations(ctx, text, chunks)
	return &domain.Answer{
		Text:    replaceCitations(text, sources),
		Sources: sources,
		Context: chunks,
	}, nil
}

// AnswerStream retrieves context and streams the answer: delta events
// while the model generates, then one terminal sources event derived
// from the accumulated text, or a terminal error event.
func (s *AnswerService) AnswerStream(ctx context.Context, prompt string, history []domain.Message, opts domain.QueryOptions) (<-chan domain.AnswerEvent, error) {
	chunks, err := s.retriever.Retrieve(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}

	deltas, err := s.llm.ChatStream(ctx, buildAnswerMessages(prompt, history, chunks), driven.ChatOptions{})
	if err != nil {
		return nil, fmt.Errorf("synthesise answer: %w", err)
	}

	events := make(chan domain.AnswerEvent)
	go func() {
		defer close(events)
		var full strings.Builder
		for delta := range deltas {
			switch {
			case delta.Err != nil:
				events <- domain.AnswerEvent{Kind: domain.EventError, Err: delta.Err}
				return
			case delta.Done:
				events <- domain.AnswerEvent{
					Kind:    domain.EventSources,
					Sources: s.resolveCitations(ctx, full.String(), chunks),
				}
				return
			default:
				full.WriteString(delta.Delta)
				select {
				case events <- domain.AnswerEvent{Kind: domain.EventDelta, Delta: delta.Delta}:
				case <-ctx.Done():
					return
				}
			}
		}
		// Provider closed the stream without a terminal event; still
		// resolve what was generated so far.
		events <- domain.AnswerEvent{
			Kind:    domain.EventSources,
			Sources: s.resolveCitations(ctx, full.String(), chunks),
		}
	}()
	return events, nil
}

// resolveCitations scans the answer text for bracketed doc_ids of the
// retrieved context and resolves them to citation records, in first
// citation order. Bracketed tokens that are not context doc_ids are
// ignored.
func (s *AnswerService) resolveCitations(ctx context.Context, text string, chunks []domain.RetrievedChunk) []domain.SourceRef {
	contextIDs := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		contextIDs[c.DocID] = struct{}{}
	}

	var cited []string
	seen := make(map[string]struct{})
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		id := m[1]
		if _, ok := contextIDs[id]; !ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		cited = append(cited, id)
	}
	if len(cited) == 0 {
		return nil
	}

	refs, err := s.docStore.SourceMap(ctx, cited)
	if err != nil {
		logger.Warn("Citation resolution failed: %v", err)
		refs = map[string]domain.SourceRef{}
	}
	sources := make([]domain.SourceRef, 0, len(cited))
	for _, id := range cited {
		if ref, ok := refs[id]; ok {
			sources = append(sources, ref)
			continue
		}
		// Known from the context but missing a citation record; fall
		// back to what the chunk payload carries.
		sources = append(sources, sourceFromChunks(id, chunks))
	}
	return sources
}

// replaceCitations swaps bracketed doc_ids for bracketed filenames in
// the final single-shot answer text.
func replaceCitations(text string, sources []domain.SourceRef) string {
	for _, ref := range sources {
		if ref.Filename != "" {
			text = strings.ReplaceAll(text, "["+ref.DocID+"]", "["+ref.Filename+"]")
		}
	}
	return text
}

func sourceFromChunks(docID string, chunks []domain.RetrievedChunk) domain.SourceRef {
	ref := domain.SourceRef{DocID: docID}
	for _, c := range chunks {
		if c.DocID != docID {
			continue
		}
		if name, ok := c.Metadata["filename"].(string); ok {
			ref.Filename = name
		}
		if path, ok := c.Metadata["source_path"].(string); ok {
			ref.SourcePath = path
		}
		break
	}
	return ref
}

// buildAnswerMessages assembles the chat transcript: system citation
// instructions, prior conversation turns, then the context passages
// and the question as the final user message.
func buildAnswerMessages(prompt string, history []domain.Message, chunks []domain.RetrievedChunk) []driven.ChatMessage {
	messages := make([]driven.ChatMessage, 0, len(history)+2)
	messages = append(messages, driven.ChatMessage{Role: "system", Content: answerSystemPrompt})
	for _, m := range history {
		messages = append(messages, driven.ChatMessage{Role: m.Role, Content: m.Content})
	}

	var sb strings.Builder
	sb.WriteString("Context passages:\n\n")
	for _, c := range chunks {
		fmt.Fprintf(&sb, "[%s] %s\n\n", c.DocID, c.Content)
	}
	sb.WriteString("Question: ")
	sb.WriteString(prompt)
	messages = append(messages, driven.ChatMessage{Role: "user", Content: sb.String()})
	return messages
}
