package vectorindex

import (
	"testing"

	"github.com/wirerag/ragcore/vector"
)

func TestSearchOrdersBySimilarity(t *testing.T) {
	idx := New()
	idx.Add("a", []float32{1, 0, 0}, nil)
	idx.Add("b", []float32{0, 1, 0}, nil)
	idx.Add("c", []float32{0.9, 0.1, 0}, nil)

	results := idx.Search([]float32{1, 0, 0}, 3, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ChunkID != "a" {
		t.Errorf("expected most similar first, got %s", results[0].ChunkID)
	}
	if results[len(results)-1].ChunkID != "b" {
		t.Errorf("expected orthogonal vector last, got %s", results[len(results)-1].ChunkID)
	}
}

func TestSearchMetadataFilter(t *testing.T) {
	idx := New()
	idx.Add("en", []float32{1, 0}, map[string]any{"lang": "en"})
	idx.Add("fr", []float32{1, 0}, map[string]any{"lang": "fr"})

	results := idx.Search([]float32{1, 0}, 10, Filter{"lang": "en"})
	if len(results) != 1 || results[0].ChunkID != "en" {
		t.Fatalf("expected only en to match, got %+v", results)
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	idx := New()
	idx.Add("x", []float32{1, 0}, nil)
	if idx.Count() != 1 {
		t.Fatalf("expected count 1")
	}
	idx.Delete("x")
	if idx.Count() != 0 {
		t.Fatalf("expected count 0 after delete")
	}
}

func TestDistanceToSimilarityClampedAndBounded(t *testing.T) {
	cases := []struct {
		d    float32
		want float32
	}{
		{0, 1},
		{2, 0},
		{1, 0.5},
	}
	for _, c := range cases {
		got := vector.DistanceToSimilarity(c.d)
		if got != c.want {
			t.Errorf("DistanceToSimilarity(%f) = %f, want %f", c.d, got, c.want)
		}
	}
}
