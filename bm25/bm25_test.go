package bm25

import (
	"testing"

	"github.com/wirerag/ragcore/rag/document"
)

func TestIndexSearch(t *testing.T) {
	idx := New()

	idx.Add(
		document.Chunk{ID: "c1", Content: "BM25 is a lexical ranking function used in search engines"},
		document.Chunk{ID: "c2", Content: "Vector search uses dense embeddings for semantic similarity"},
		document.Chunk{ID: "c3", Content: "Hybrid search combines BM25 and vector search with fusion"},
	)

	t.Run("matching query returns positive scores", func(t *testing.T) {
		results := idx.Search("BM25 search", 10, nil)
		if len(results) == 0 {
			t.Fatal("expected at least one result")
		}
		for _, r := range results {
			if r.Score <= 0 {
				t.Errorf("expected strictly positive score, got %f for %s", r.Score, r.ChunkID)
			}
		}
	})

	t.Run("no matching tokens returns empty sequence", func(t *testing.T) {
		results := idx.Search("zzz_nonexistent_term", 10, nil)
		if len(results) != 0 {
			t.Errorf("expected empty results, got %d", len(results))
		}
	})

	t.Run("results sorted descending with stable tie-break", func(t *testing.T) {
		results := idx.Search("search", 10, nil)
		for i := 1; i < len(results); i++ {
			if results[i-1].Score < results[i].Score {
				t.Errorf("results not sorted descending at index %d", i)
			}
			if results[i-1].Score == results[i].Score && results[i-1].ChunkID > results[i].ChunkID {
				t.Errorf("tied results not ordered by chunk ID at index %d", i)
			}
		}
	})
}

func TestIndexDeleteRemovesPostings(t *testing.T) {
	idx := New()
	idx.Add(document.Chunk{ID: "a", Content: "apples and oranges"})
	idx.Add(document.Chunk{ID: "b", Content: "apples and bananas"})

	if got := idx.Count(); got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}

	idx.Delete("a")
	if got := idx.Count(); got != 1 {
		t.Fatalf("expected count 1 after delete, got %d", got)
	}

	results := idx.Search("oranges", 10, nil)
	if len(results) != 0 {
		t.Errorf("expected deleted chunk's terms to be gone, got %d results", len(results))
	}
}

func TestIndexMetadataFilter(t *testing.T) {
	idx := New()
	idx.Add(
		document.Chunk{ID: "en1", Content: "search engines rank documents", Metadata: map[string]any{"lang": "en"}},
		document.Chunk{ID: "fr1", Content: "search engines rank documents", Metadata: map[string]any{"lang": "fr"}},
	)

	results := idx.Search("search documents", 10, Filter{"lang": "en"})
	if len(results) != 1 || results[0].ChunkID != "en1" {
		t.Fatalf("expected only en1 to match filter, got %+v", results)
	}

	anyOf := idx.Search("search documents", 10, Filter{"lang": []any{"fr", "de"}})
	if len(anyOf) != 1 || anyOf[0].ChunkID != "fr1" {
		t.Fatalf("expected only fr1 to match any-of filter, got %+v", anyOf)
	}
}

func TestIndexReAddReplacesPostings(t *testing.T) {
	idx := New()
	idx.Add(document.Chunk{ID: "x", Content: "first version of the text"})
	idx.Add(document.Chunk{ID: "x", Content: "completely different words now"})

	if got := idx.Count(); got != 1 {
		t.Fatalf("expected re-add to replace, not duplicate, count=%d", got)
	}
	if results := idx.Search("first version", 10, nil); len(results) != 0 {
		t.Errorf("expected old terms gone after re-add, got %+v", results)
	}
	if results := idx.Search("different words", 10, nil); len(results) == 0 {
		t.Errorf("expected new terms indexed after re-add")
	}
}
