// Package chunker provides a fixed-size text chunking processor.
package chunker

import (
	"context"

	"github.com/google/uuid"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits document content into fixed-size overlapping chunks.
// Boundaries are deterministic for a given content and configuration;
// chunk IDs are freshly generated on every invocation.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits the document content into overlapping windows,
// recording each chunk's start offset and ordinal index. Document
// metadata is inherited by every chunk.
func (p *Processor) Chunk(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	content := doc.Content
	contentLen := len(content)

	estimatedChunks := (contentLen / (p.chunkSize - p.overlap)) + 1
	chunks := make([]domain.Chunk, 0, estimatedChunks)

	index := 0
	start := 0

	for start < contentLen {
		end := start + p.chunkSize
		if end > contentLen {
			end = contentLen
		}

		metadata := make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = v
		}

		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocID:       doc.DocID,
			Content:     content[start:end],
			Index:       index,
			StartOffset: start,
			Metadata:    metadata,
		})
		index++

		start += p.chunkSize - p.overlap

		// Avoid infinite loop for edge cases
		if p.chunkSize <= p.overlap {
			break
		}
	}

	return chunks, nil
}
