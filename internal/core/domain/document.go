package domain

import "time"

// SourceDocument represents raw content handed over by a connector,
// together with its provenance. It is ephemeral: created by an adapter,
// consumed once by the ingestion pipeline.
type SourceDocument struct {
	// SourcePath is the unique key per (user, source), e.g. a file path
	// or a mail folder/message identifier.
	SourcePath string

	// Provider names the connector that produced the document
	// (e.g. "filesystem", "gmail", "drive").
	Provider string

	// MIMEType is the content type (e.g. "application/pdf").
	MIMEType string

	// Owner is the user the document belongs to.
	Owner string

	// Content is the raw bytes.
	Content []byte

	// Size and ModTime identify a file version for content addressing.
	Size    int64
	ModTime time.Time

	// MessageID and AttachmentName identify mail content for content
	// addressing. MessageID being set marks the document as mail.
	MessageID      string
	AttachmentName string

	// Metadata contains connector-specific key-value pairs
	// (e.g. email headers) inherited by every chunk.
	Metadata map[string]any
}

// IsMail reports whether the document originates from a mail source.
func (d *SourceDocument) IsMail() bool {
	return d.MessageID != ""
}

// Document is the extracted text representation of one version of a
// source document, identified by its DocID.
type Document struct {
	// DocID is the content-derived identifier for this version.
	DocID string

	// SourcePath is the originating path (registry key).
	SourcePath string

	// Title is a human-readable name, usually the base filename.
	Title string

	// Content is the full extracted text before chunking.
	Content string

	// Extracted is false for the explicit error pseudo-document emitted
	// when every extraction stage failed.
	Extracted bool

	// ExtractionError holds the failure description when Extracted is false.
	ExtractionError string

	// Metadata carries provenance plus extraction details
	// (e.g. which fallback stage produced the text).
	Metadata map[string]any

	// CreatedAt is when the document was extracted.
	CreatedAt time.Time
}

// Chunk is one fixed-size window of a document's text. Chunk IDs are
// freshly generated on every (re-)ingestion and never reused.
type Chunk struct {
	// ID is the unique identifier of the embedded point (unique_id).
	ID string

	// DocID links the chunk to its document version.
	DocID string

	// Content is the chunk text.
	Content string

	// Index is the ordinal position within the document.
	Index int

	// StartOffset is the byte offset of the chunk within the
	// document content.
	StartOffset int

	// Embedding is the vector representation, populated at ingestion.
	Embedding []float32

	// Metadata is inherited from the document plus chunk-level fields.
	Metadata map[string]any
}

// RetrievedChunk is a chunk returned from similarity search with its
// relevance score.
type RetrievedChunk struct {
	Chunk

	// Score is the similarity (or rerank) score, higher is better.
	Score float64
}
