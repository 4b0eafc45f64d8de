// Package retrieval implements the hybrid retriever (C6): it fans a query
// out to the lexical (bm25) and semantic (vectorindex) branches concurrently
// and fuses their rankings into one ordered list of chunks, either by
// reciprocal rank fusion or by normalized-weighted score blending.
package retrieval

import (
	"sort"

	"github.com/wirerag/ragcore/bm25"
	"github.com/wirerag/ragcore/vectorindex"
)

// FusedResult is a single chunk's position in the fused ranking, with the
// per-branch scores preserved for inspection and logging.
type FusedResult struct {
	ChunkID       string
	FusedScore    float64
	LexicalScore  float64
	SemanticScore float64
}

// DefaultRRFK is the rrf_k constant used when the caller does not override
// it: rank discount denominator in the reciprocal rank fusion formula.
const DefaultRRFK = 60

// ReciprocalRankFusion combines the two branch rankings by rank position
// alone, ignoring the raw scores: fused(d) = sum(1/(rrfK + rank + 1)) over
// every branch in which d appears, rank being 0-based. Chunks present in
// both branches accumulate a contribution from each.
func ReciprocalRankFusion(bm25Results []bm25.Result, vecResults []vectorindex.Result, rrfK int) []FusedResult {
	if rrfK <= 0 {
		rrfK = DefaultRRFK
	}

	acc := make(map[string]*FusedResult)
	order := make([]string, 0, len(bm25Results)+len(vecResults))

	get := func(id string) *FusedResult {
		if fr, ok := acc[id]; ok {
			return fr
		}
		fr := &FusedResult{ChunkID: id}
		acc[id] = fr
		order = append(order, id)
		return fr
	}

	for rank, r := range bm25Results {
		fr := get(r.ChunkID)
		fr.LexicalScore = r.Score
		fr.FusedScore += 1.0 / float64(rrfK+rank+1)
	}
	for rank, r := range vecResults {
		fr := get(r.ChunkID)
		fr.SemanticScore = float64(r.Score)
		fr.FusedScore += 1.0 / float64(rrfK+rank+1)
	}

	return sortedFused(acc, order)
}

// WeightedFusion combines the two branch rankings using their raw scores:
// each branch is max-normalized to [0,1] independently, then blended as
// wBM25*normBM25 + wVec*normVec. A chunk present in only one branch is
// treated as scoring 0 on the other.
func WeightedFusion(bm25Results []bm25.Result, vecResults []vectorindex.Result, wBM25, wVec float64) []FusedResult {
	acc := make(map[string]*FusedResult)
	order := make([]string, 0, len(bm25Results)+len(vecResults))

	get := func(id string) *FusedResult {
		if fr, ok := acc[id]; ok {
			return fr
		}
		fr := &FusedResult{ChunkID: id}
		acc[id] = fr
		order = append(order, id)
		return fr
	}

	var maxBM25 float64
	for _, r := range bm25Results {
		if r.Score > maxBM25 {
			maxBM25 = r.Score
		}
	}
	var maxVec float64
	for _, r := range vecResults {
		if float64(r.Score) > maxVec {
			maxVec = float64(r.Score)
		}
	}

	for _, r := range bm25Results {
		fr := get(r.ChunkID)
		fr.LexicalScore = r.Score
	}
	for _, r := range vecResults {
		fr := get(r.ChunkID)
		fr.SemanticScore = float64(r.Score)
	}

	for _, id := range order {
		fr := acc[id]
		normBM25 := 0.0
		if maxBM25 > 0 {
			normBM25 = fr.LexicalScore / maxBM25
		}
		normVec := 0.0
		if maxVec > 0 {
			normVec = fr.SemanticScore / maxVec
		}
		fr.FusedScore = wBM25*normBM25 + wVec*normVec
	}

	return sortedFused(acc, order)
}

func sortedFused(acc map[string]*FusedResult, order []string) []FusedResult {
	out := make([]FusedResult, 0, len(order))
	for _, id := range order {
		out = append(out, *acc[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}
