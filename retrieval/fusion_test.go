package retrieval

import (
	"testing"

	"github.com/wirerag/ragcore/bm25"
	"github.com/wirerag/ragcore/vectorindex"
)

func seedBranches() ([]bm25.Result, []vectorindex.Result) {
	lex := []bm25.Result{
		{ChunkID: "d1", Score: 10},
		{ChunkID: "d2", Score: 8},
		{ChunkID: "d3", Score: 6},
	}
	vec := []vectorindex.Result{
		{ChunkID: "d2", Score: 0.9},
		{ChunkID: "d4", Score: 0.85},
		{ChunkID: "d1", Score: 0.8},
	}
	return lex, vec
}

func TestReciprocalRankFusionOrdersBySeedScenario(t *testing.T) {
	lex, vec := seedBranches()
	fused := ReciprocalRankFusion(lex, vec, 60)

	want := []string{"d2", "d1", "d4", "d3"}
	if len(fused) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(fused))
	}
	for i, id := range want {
		if fused[i].ChunkID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, fused[i].ChunkID)
		}
	}

	d2 := fused[0]
	wantD2 := 1.0/61 + 1.0/62
	if diff := d2.FusedScore - wantD2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("d2 fused score = %v, want %v", d2.FusedScore, wantD2)
	}
}

func TestReciprocalRankFusionRankZeroBothBranches(t *testing.T) {
	lex := []bm25.Result{{ChunkID: "x", Score: 5}}
	vec := []vectorindex.Result{{ChunkID: "x", Score: 0.5}}
	fused := ReciprocalRankFusion(lex, vec, 60)

	if len(fused) != 1 {
		t.Fatalf("expected 1 fused result, got %d", len(fused))
	}
	want := 2.0 / 61
	if diff := fused[0].FusedScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("fused score = %v, want %v", fused[0].FusedScore, want)
	}
}

func TestWeightedFusionFavorsBM25(t *testing.T) {
	lex, vec := seedBranches()
	fused := WeightedFusion(lex, vec, 0.8, 0.2)

	if len(fused) == 0 {
		t.Fatal("expected results")
	}
	top := fused[0].ChunkID
	if top != "d1" && top != "d2" {
		t.Errorf("expected top-1 to be d1 or d2, got %s", top)
	}
}

func TestWeightedFusionPureBM25MatchesBM25Ranking(t *testing.T) {
	lex, vec := seedBranches()
	fused := WeightedFusion(lex, vec, 1, 0)

	want := []string{"d1", "d2", "d3"}
	got := make([]string, 0, 3)
	for _, f := range fused {
		if f.LexicalScore > 0 {
			got = append(got, f.ChunkID)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d lexical-scored results, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i] != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i])
		}
	}
}

func TestFusionTruncationNeverExceedsFinalK(t *testing.T) {
	lex, vec := seedBranches()
	fused := ReciprocalRankFusion(lex, vec, 60)
	finalK := 2
	if len(fused) > finalK {
		fused = fused[:finalK]
	}
	if len(fused) != finalK {
		t.Fatalf("expected exactly %d results after truncation, got %d", finalK, len(fused))
	}
}
