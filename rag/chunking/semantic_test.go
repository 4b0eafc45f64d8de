package chunking

import (
	"context"
	"strings"
	"testing"

	"github.com/wirerag/ragcore/rag/document"
)

func TestSemanticChunkerMergesShortParagraphsIntoOneChunk(t *testing.T) {
	ch := NewSemanticChunker(WithChunkSize(200), WithChunkOverlap(0))
	doc := document.Document{
		ID:      "d1",
		Content: "First short paragraph.\n\nSecond short paragraph.\n\nThird short paragraph.",
	}

	chunks, err := ch.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected paragraphs under chunk size to merge into 1 chunk, got %d", len(chunks))
	}
	for _, want := range []string{"First short paragraph.", "Second short paragraph.", "Third short paragraph."} {
		if !strings.Contains(chunks[0].Content, want) {
			t.Errorf("expected merged chunk to contain %q, got %q", want, chunks[0].Content)
		}
	}
}

func TestSemanticChunkerSplitsOversizedParagraphBySentenceBoundary(t *testing.T) {
	ch := NewSemanticChunker(WithChunkSize(60), WithChunkOverlap(0))
	longPara := "This is the first sentence in a long paragraph. " +
		"This is the second sentence which is also fairly long. " +
		"This is the third and final sentence here."
	doc := document.Document{ID: "d2", Content: longPara}

	chunks, err := ch.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected an oversized paragraph to split into multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if n := len([]rune(c.Content)); n > 60 {
			t.Errorf("expected each sentence-bounded chunk to stay within chunk size 60 (no overlap), got %d runes: %q", n, c.Content)
		}
	}
}

func TestSemanticChunkerHardCutsOversizedSentenceWithoutPunctuation(t *testing.T) {
	ch := NewSemanticChunker(WithChunkSize(10), WithChunkOverlap(0))
	doc := document.Document{ID: "d3", Content: strings.Repeat("a", 35)}

	chunks, err := ch.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("expected 35 chars hard-cut at size 10 to produce 4 chunks, got %d", len(chunks))
	}

	var total int
	for _, c := range chunks {
		if n := len([]rune(c.Content)); n > 10 {
			t.Errorf("expected hard-cut chunk to stay within chunk size 10, got %d runes", n)
		}
		total += len([]rune(c.Content))
	}
	if total != 35 {
		t.Errorf("expected hard-cut to preserve every character, got %d of 35", total)
	}
}

func TestSemanticChunkerEmptyContentReturnsNoChunks(t *testing.T) {
	ch := NewSemanticChunker()
	chunks, err := ch.Chunk(context.Background(), document.Document{ID: "empty", Content: "   \n\n  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for blank content, got %d", len(chunks))
	}
}

func TestApplyCharOverlapPrefixesSubsequentUnitsWithPriorTail(t *testing.T) {
	units := []string{"alpha bravo charlie", "delta echo foxtrot"}
	out := applyCharOverlap(units, 7)

	if out[0] != units[0] {
		t.Errorf("expected the first unit to be untouched, got %q", out[0])
	}
	tail := lastNRunes(units[0], 7)
	if !strings.HasPrefix(out[1], tail) {
		t.Errorf("expected second unit to be prefixed with %q, got %q", tail, out[1])
	}
	if !strings.HasSuffix(out[1], units[1]) {
		t.Errorf("expected second unit to still end with its own content %q, got %q", units[1], out[1])
	}
}

func TestApplyCharOverlapNoopWhenOverlapIsZero(t *testing.T) {
	units := []string{"one", "two", "three"}
	out := applyCharOverlap(units, 0)
	for i := range units {
		if out[i] != units[i] {
			t.Errorf("expected unit %d unchanged with zero overlap, got %q want %q", i, out[i], units[i])
		}
	}
}

func TestSemanticChunkerOverlapCarriesTrailingTextIntoNextChunk(t *testing.T) {
	ch := NewSemanticChunker(WithChunkSize(30), WithChunkOverlap(10))
	longPara := "Alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima mike."
	doc := document.Document{ID: "d4", Content: longPara}

	chunks, err := ch.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the paragraph to split into multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if len([]rune(chunks[i].Content)) <= 30 {
			t.Errorf("expected chunk %d to carry extra overlap text beyond chunk size 30, got %d runes", i, len([]rune(chunks[i].Content)))
		}
	}
}
