// Package vectorindex implements the cosine-similarity ANN-style index used
// by the hybrid retriever's semantic branch (C5). It mirrors the bm25
// package's Add/Delete/Search contract so the hybrid retriever can fan out
// to both with a uniform shape, and it applies metadata filtering inside the
// index itself rather than as a post-hoc step on the caller's side.
package vectorindex

import (
	"sort"
	"sync"

	"github.com/wirerag/ragcore/vector"
)

// Entry is a single embedding bound to a chunk id.
type Entry struct {
	ChunkID  string
	Vector   []float32
	Metadata map[string]any
}

// Result is a single search hit with its cosine similarity.
type Result struct {
	ChunkID string
	Score   float32
}

// Filter is a conjunction of key=value or key-in-set tests evaluated against
// an entry's metadata. A value that is a []any is matched as "any of".
type Filter map[string]any

// Index is a concurrency-safe brute-force cosine similarity index. It owns
// its embedding storage exclusively; callers never mutate it directly.
type Index struct {
	mu      sync.RWMutex
	entries map[string]Entry
	dim     int
}

// New constructs an empty Index.
func New() *Index {
	return &Index{entries: make(map[string]Entry)}
}

// Add inserts or replaces an embedding for chunkID.
func (idx *Index) Add(chunkID string, vec []float32, metadata map[string]any) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[chunkID] = Entry{ChunkID: chunkID, Vector: vec, Metadata: metadata}
	if idx.dim == 0 {
		idx.dim = len(vec)
	}
}

// Delete removes embeddings by chunk id.
func (idx *Index) Delete(ids ...string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range ids {
		delete(idx.entries, id)
	}
}

// Search returns the topK nearest entries to queryVector by cosine
// similarity (via the 1-d/2 distance-to-similarity transform), with filter
// applied by the index as an AND of field-equals / field-any-of predicates
// before truncation to topK. Entries whose dimension does not match the
// query vector are skipped rather than erroring, matching the corruption
// policy of scoring only what is present.
func (idx *Index) Search(queryVector []float32, topK int, filter Filter) []Result {
	if len(queryVector) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = 10
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]Result, 0, len(idx.entries))
	for _, e := range idx.entries {
		if len(e.Vector) != len(queryVector) {
			continue
		}
		if len(filter) > 0 && !matchFilter(e.Metadata, filter) {
			continue
		}
		d := vector.CosineDistance(queryVector, e.Vector)
		sim := vector.DistanceToSimilarity(d)
		results = append(results, Result{ChunkID: e.ChunkID, Score: sim})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Count returns the number of indexed embeddings.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Dim returns the embedding dimension inferred from the first inserted
// vector, or 0 if the index is empty.
func (idx *Index) Dim() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

// Clear empties the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]Entry)
	idx.dim = 0
}

func matchFilter(meta map[string]any, filter Filter) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok {
			return false
		}
		if set, isSet := want.([]any); isSet {
			matched := false
			for _, v := range set {
				if v == got {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}
