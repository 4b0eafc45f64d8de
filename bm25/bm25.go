// Package bm25 implements an in-memory Okapi BM25 keyword index.
package bm25

import (
	"math"
	"sort"
	"sync"

	"github.com/wirerag/ragcore/rag/document"
	"github.com/wirerag/ragcore/rag/tokenizer"
)

// Options configures an Index.
type Options struct {
	K1 float64
	B  float64
}

// Option customizes Options.
type Option func(*Options)

// WithK1 overrides the term-frequency saturation constant (default 1.2).
func WithK1(k1 float64) Option {
	return func(o *Options) {
		if k1 > 0 {
			o.K1 = k1
		}
	}
}

// WithB overrides the length-normalization constant (default 0.75).
func WithB(b float64) Option {
	return func(o *Options) {
		if b >= 0 && b <= 1 {
			o.B = b
		}
	}
}

// Result is a single search hit.
type Result struct {
	ChunkID string
	Score   float64
}

// Filter is a conjunction of key=value or key-in-set tests evaluated against
// a chunk's metadata. A value that is a []any is matched as "any of".
type Filter map[string]any

// Index is a concurrency-safe in-memory Okapi BM25 inverted index. Readers
// may run concurrently; Add and Delete take the exclusive write lock for the
// duration of the batch, matching the index-ownership model where the index
// owns its own postings and is never mutated by the retriever.
type Index struct {
	mu sync.RWMutex

	k1 float64
	b  float64

	docFreq     map[string]int            // term -> number of chunks containing it
	postings    map[string]map[string]int // term -> chunkID -> term frequency
	chunkTerms  map[string]map[string]int // chunkID -> term -> term frequency (for delete)
	chunkLength map[string]int            // chunkID -> token count
	chunkMeta   map[string]map[string]any // chunkID -> metadata snapshot
	totalLength int
	docCount    int
}

// New constructs an empty Index.
func New(opts ...Option) *Index {
	cfg := Options{K1: 1.2, B: 0.75}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Index{
		k1:          cfg.K1,
		b:           cfg.B,
		docFreq:     make(map[string]int),
		postings:    make(map[string]map[string]int),
		chunkTerms:  make(map[string]map[string]int),
		chunkLength: make(map[string]int),
		chunkMeta:   make(map[string]map[string]any),
	}
}

// Add inserts or replaces chunks in the index. Re-adding an existing chunk
// ID first removes its prior postings so the index never double-counts.
func (idx *Index) Add(chunks ...document.Chunk) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, chunk := range chunks {
		idx.removeLocked(chunk.ID)

		terms := tokenizer.Tokenize(chunk.Content)
		if len(terms) == 0 {
			continue
		}

		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}

		idx.docCount++
		idx.chunkLength[chunk.ID] = len(terms)
		idx.totalLength += len(terms)
		idx.chunkTerms[chunk.ID] = tf
		idx.chunkMeta[chunk.ID] = chunk.Metadata

		for term, count := range tf {
			if _, ok := idx.postings[term]; !ok {
				idx.postings[term] = make(map[string]int)
			}
			idx.postings[term][chunk.ID] = count
			idx.docFreq[term]++
		}
	}
}

// Delete removes chunks from the index by ID.
func (idx *Index) Delete(ids ...string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range ids {
		idx.removeLocked(id)
	}
}

// removeLocked drops a previously indexed chunk. Caller must hold idx.mu.
func (idx *Index) removeLocked(id string) {
	tf, ok := idx.chunkTerms[id]
	if !ok {
		return
	}
	for term := range tf {
		delete(idx.postings[term], id)
		if len(idx.postings[term]) == 0 {
			delete(idx.postings, term)
		}
		idx.docFreq[term]--
		if idx.docFreq[term] <= 0 {
			delete(idx.docFreq, term)
		}
	}
	idx.totalLength -= idx.chunkLength[id]
	idx.docCount--
	delete(idx.chunkTerms, id)
	delete(idx.chunkLength, id)
	delete(idx.chunkMeta, id)
}

// Search scores query against every indexed chunk via Okapi BM25, applies
// filter (if non-empty) as a post-scoring conjunction, and returns the
// top_k results sorted by score descending with a stable tie-break on
// chunk id. Zero-score hits are omitted.
func (idx *Index) Search(query string, topK int, filter Filter) []Result {
	terms := uniqueTerms(tokenizer.Tokenize(query))
	if len(terms) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.docCount == 0 {
		return nil
	}
	avgLen := float64(idx.totalLength) / float64(idx.docCount)

	scores := make(map[string]float64)
	for _, term := range terms {
		postings := idx.postings[term]
		if len(postings) == 0 {
			continue
		}
		df := float64(len(postings))
		n := float64(idx.docCount)
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)
		for chunkID, tf := range postings {
			docLen := float64(idx.chunkLength[chunkID])
			numerator := float64(tf) * (idx.k1 + 1)
			denominator := float64(tf) + idx.k1*(1-idx.b+idx.b*(docLen/avgLen))
			scores[chunkID] += idf * (numerator / denominator)
		}
	}

	results := make([]Result, 0, len(scores))
	for id, score := range scores {
		if score <= 0 {
			continue
		}
		if len(filter) > 0 && !matchFilter(idx.chunkMeta[id], filter) {
			continue
		}
		results = append(results, Result{ChunkID: id, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Count returns the number of chunks currently indexed.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.docCount
}

// Clear empties the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docFreq = make(map[string]int)
	idx.postings = make(map[string]map[string]int)
	idx.chunkTerms = make(map[string]map[string]int)
	idx.chunkLength = make(map[string]int)
	idx.chunkMeta = make(map[string]map[string]any)
	idx.totalLength = 0
	idx.docCount = 0
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

func uniqueTerms(tokens []string) []string {
	if len(tokens) == 0 {
		return tokens
	}
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
