package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		p := New(WithChunkSize(500))
		if p.chunkSize != 500 {
			t.Errorf("expected chunkSize 500, got %d", p.chunkSize)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Chunk_EmptyContent(t *testing.T) {
	p := New()
	doc := &domain.Document{DocID: "doc-1", Content: ""}

	chunks, err := p.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestProcessor_Chunk_SmallContent(t *testing.T) {
	p := New(WithChunkSize(500), WithOverlap(100))
	doc := &domain.Document{DocID: "doc-1", Content: "Hello world"}

	chunks, err := p.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
	if chunks[0].StartOffset != 0 {
		t.Errorf("expected start offset 0, got %d", chunks[0].StartOffset)
	}
	if chunks[0].Content != "Hello world" {
		t.Errorf("unexpected content %q", chunks[0].Content)
	}
	if chunks[0].DocID != "doc-1" {
		t.Errorf("expected doc id inherited, got %q", chunks[0].DocID)
	}
}

func TestProcessor_Chunk_DeterministicBoundaries(t *testing.T) {
	p := New(WithChunkSize(50), WithOverlap(10))
	doc := &domain.Document{DocID: "doc-1", Content: strings.Repeat("abcdefghij", 30)}

	first, err := p.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].StartOffset != second[i].StartOffset {
			t.Errorf("chunk %d offset differs: %d vs %d", i, first[i].StartOffset, second[i].StartOffset)
		}
		if first[i].Content != second[i].Content {
			t.Errorf("chunk %d content differs", i)
		}
		// IDs must be fresh per invocation
		if first[i].ID == second[i].ID {
			t.Errorf("chunk %d id reused across invocations", i)
		}
	}
}

func TestProcessor_Chunk_ReconstructsOriginal(t *testing.T) {
	const size, overlap = 40, 15
	p := New(WithChunkSize(size), WithOverlap(overlap))
	content := strings.Repeat("the quick brown fox jumps over the dog ", 10)
	doc := &domain.Document{DocID: "doc-1", Content: content}

	chunks, err := p.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rebuilt strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			rebuilt.WriteString(chunk.Content)
			continue
		}
		// Skip the overlapping prefix
		if len(chunk.Content) > overlap {
			rebuilt.WriteString(chunk.Content[overlap:])
		}
	}
	if rebuilt.String() != content {
		t.Error("concatenation minus overlap should reconstruct the original text")
	}
}

func TestProcessor_Chunk_MetadataInherited(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(5))
	doc := &domain.Document{
		DocID:    "doc-1",
		Content:  strings.Repeat("x", 60),
		Metadata: map[string]any{"owner": "alice", "provider": "filesystem"},
	}

	chunks, err := p.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, chunk := range chunks {
		if chunk.Metadata["owner"] != "alice" {
			t.Errorf("chunk %d missing inherited metadata", i)
		}
	}

	// Mutating one chunk's metadata must not leak into others
	chunks[0].Metadata["owner"] = "bob"
	if chunks[1].Metadata["owner"] != "alice" {
		t.Error("chunk metadata maps must be independent copies")
	}
}
