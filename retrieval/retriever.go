package retrieval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wirerag/ragcore/bm25"
	"github.com/wirerag/ragcore/rag/document"
	"github.com/wirerag/ragcore/rag/embedder"
	"github.com/wirerag/ragcore/vectorindex"
)

// Variant names the retrieval configurations C8 can assign. Passage recall
// differs by variant: baseline skips the lexical branch entirely, reranked
// widens the semantic branch ahead of a rerank pass, hybrid fuses both
// branches before reranking, and finetuned is hybrid under an alternate
// embedding model.
type Variant string

const (
	VariantBaseline  Variant = "baseline"
	VariantReranked  Variant = "reranked"
	VariantHybrid    Variant = "hybrid"
	VariantFinetuned Variant = "finetuned"
)

// Method selects the fusion algorithm used to combine the lexical and
// semantic branches.
type Method string

const (
	MethodRRF      Method = "rrf"
	MethodWeighted Method = "weighted"
)

// Params configures a single retrieve call.
type Params struct {
	Variant    Variant
	Method     Method
	KBM25      int
	KVec       int
	FinalK     int
	RRFK       int
	WeightBM25 float64
	WeightVec  float64
	Filter     Filter
}

// Filter is a conjunction of key=value or key-in-set metadata predicates,
// shared verbatim between the lexical and semantic branches.
type Filter map[string]any

// Passage is one retrieved chunk with its resolved text and per-branch
// scores, ready for the reranker or the prompt assembler.
type Passage struct {
	Chunk         document.Chunk
	FusedScore    float64
	LexicalScore  float64
	SemanticScore float64
}

// ChunkStore resolves a chunk id to its stored chunk; both index branches
// store only scored ids, so the retriever needs a side lookup to recover
// chunk content and metadata for the final passage list.
type ChunkStore interface {
	Chunk(id string) (document.Chunk, bool)
}

// Retriever is the hybrid retriever (C6): it owns the two index branches
// and fans a query out to both concurrently, joining and fusing their
// rankings per the selected variant and fusion method.
type Retriever struct {
	bm25  *bm25.Index
	vec   *vectorindex.Index
	store ChunkStore
	embed embedder.Embedder
}

// New constructs a Retriever over an existing lexical index, semantic
// index, chunk store, and query embedder.
func New(bm25Index *bm25.Index, vecIndex *vectorindex.Index, store ChunkStore, embed embedder.Embedder) *Retriever {
	return &Retriever{bm25: bm25Index, vec: vecIndex, store: store, embed: embed}
}

// DefaultParams fills in the k_bm25/k_vec/rrf_k/weight defaults for a given
// variant and final_k, matching the variant table in the hybrid retriever's
// contract.
func DefaultParams(variant Variant, finalK int) Params {
	if finalK <= 0 {
		finalK = 4
	}
	p := Params{
		Variant: variant,
		Method:  MethodRRF,
		KBM25:   finalK,
		KVec:    finalK,
		FinalK:  finalK,
		RRFK:    DefaultRRFK,
	}
	switch variant {
	case VariantBaseline:
		p.KBM25 = 0
	case VariantReranked:
		p.KBM25 = 0
		p.KVec = 3 * finalK
		p.FinalK = 3 * finalK
	case VariantHybrid, VariantFinetuned:
		p.KVec = 3 * finalK
		p.KBM25 = 3 * finalK
		p.FinalK = 3 * finalK
	}
	return p
}

// Status reports the vector index's health for the VectorStoreStatus
// external interface: empty when no vectors have been ingested yet, error
// when a trivial self-search panics or otherwise fails, degraded when the
// index is non-empty but a self-search returns nothing, healthy otherwise.
type Status struct {
	State         string
	DocumentCount int
	SearchWorking bool
}

const (
	StatusHealthy  = "healthy"
	StatusEmpty    = "empty"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// Status probes the vector index with a zero-filled query vector sized to
// the index's own embedding dimension. It never panics: an index mismatch
// or internal inconsistency is reported as StatusError with
// SearchWorking=false rather than bubbling up.
func (r *Retriever) Status() (s Status) {
	defer func() {
		if rec := recover(); rec != nil {
			s = Status{State: StatusError, DocumentCount: s.DocumentCount}
		}
	}()

	count := r.vec.Count()
	s.DocumentCount = count
	if count == 0 {
		s.State = StatusEmpty
		return s
	}

	probe := make([]float32, r.vec.Dim())
	results := r.vec.Search(probe, 1, nil)
	s.SearchWorking = len(results) > 0
	if s.SearchWorking {
		s.State = StatusHealthy
	} else {
		s.State = StatusDegraded
	}
	return s
}

// Retrieve runs the lexical and semantic branches concurrently (bounded to
// two goroutines via errgroup), fuses their rankings per params.Method, and
// truncates to FinalK. A failure in either branch degrades to the
// surviving branch rather than failing the whole call; both branches
// failing is reported as an error.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, params Params) ([]Passage, error) {
	passages, _, err := r.RetrieveDegraded(ctx, queryText, params)
	return passages, err
}

// RetrieveDegraded is Retrieve plus a degraded flag: true when one branch
// failed (a dependency-unavailable error per §7) but the call still
// returned results scored only from the surviving branch, per the
// corruption policy in §7.
func (r *Retriever) RetrieveDegraded(ctx context.Context, queryText string, params Params) ([]Passage, bool, error) {
	var (
		lexResults []bm25.Result
		vecResults []vectorindex.Result
	)

	g, gctx := errgroup.WithContext(ctx)

	if params.KBM25 > 0 {
		g.Go(func() error {
			lexResults = r.bm25.Search(queryText, params.KBM25, bm25.Filter(params.Filter))
			return nil
		})
	}

	if params.KVec > 0 {
		g.Go(func() error {
			v, err := r.embed.EmbedQuery(gctx, queryText)
			if err != nil {
				return fmt.Errorf("embed query: %w", err)
			}
			vecResults = r.vec.Search(v, params.KVec, vectorindex.Filter(params.Filter))
			return nil
		})
	}

	degraded := false
	if err := g.Wait(); err != nil {
		if len(lexResults) == 0 && len(vecResults) == 0 {
			return nil, false, err
		}
		degraded = true
	}

	var fused []FusedResult
	switch params.Method {
	case MethodWeighted:
		wBM25, wVec := params.WeightBM25, params.WeightVec
		if wBM25+wVec <= 0 {
			wBM25, wVec = 0.3, 0.7
		}
		fused = WeightedFusion(lexResults, vecResults, wBM25, wVec)
	default:
		fused = ReciprocalRankFusion(lexResults, vecResults, params.RRFK)
	}

	finalK := params.FinalK
	if finalK <= 0 || finalK > len(fused) {
		finalK = len(fused)
	}
	fused = fused[:finalK]

	passages := make([]Passage, 0, len(fused))
	for _, fr := range fused {
		chunk, ok := r.store.Chunk(fr.ChunkID)
		if !ok {
			continue
		}
		passages = append(passages, Passage{
			Chunk:         chunk,
			FusedScore:    fr.FusedScore,
			LexicalScore:  fr.LexicalScore,
			SemanticScore: fr.SemanticScore,
		})
	}

	return passages, degraded, nil
}
