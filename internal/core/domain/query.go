package domain

// QueryOptions configures retrieval and answering. Zero values fall
// back to configured defaults.
type QueryOptions struct {
	// TopK is the number of chunks to return (default 10).
	TopK int

	// MinScore drops retrieval results below this similarity.
	MinScore float64

	// SplitPrompt decomposes the prompt into sub-questions via the LLM.
	SplitPrompt bool

	// Rerank re-scores the deduplicated candidate set via the LLM.
	Rerank bool

	// UseHyDE adds an LLM-generated hypothetical answer as an extra
	// retrieval query.
	UseHyDE bool

	// Filter restricts the similarity search by payload fields
	// (e.g. per-user scope).
	Filter map[string]any
}

// Message is one turn of conversation history passed to answering.
type Message struct {
	// Role is "system", "user" or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// SourceRef is a human-readable citation resolved from a doc_id.
type SourceRef struct {
	DocID      string
	Filename   string
	SourcePath string
	Preview    string
}

// Answer is the result of the non-streaming answer pipeline.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Sources lists the cited documents in first-citation order.
	Sources []SourceRef

	// Context holds the retrieved chunks the answer was grounded on.
	Context []RetrievedChunk
}

// AnswerEventKind discriminates streamed answer events.
type AnswerEventKind int

const (
	// EventDelta carries an incremental piece of answer text.
	EventDelta AnswerEventKind = iota

	// EventSources is the terminal event carrying resolved citations.
	EventSources

	// EventError is the terminal event carrying a failure.
	EventError
)

// AnswerEvent is one event on the streaming answer channel. The
// consumer pulls events until EventSources or EventError.
type AnswerEvent struct {
	Kind    AnswerEventKind
	Delta   string
	Sources []SourceRef
	Err     error
}
