package retrieval

import (
	"context"
	"testing"

	"github.com/wirerag/ragcore/bm25"
	"github.com/wirerag/ragcore/rag/document"
	"github.com/wirerag/ragcore/vectorindex"
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) EmbedDocument(ctx context.Context, chunk document.Chunk) ([]float32, error) {
	return f.vectors[chunk.ID], nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return f.vectors[query], nil
}

type fakeChunkStore struct {
	chunks map[string]document.Chunk
}

func (s *fakeChunkStore) Chunk(id string) (document.Chunk, bool) {
	c, ok := s.chunks[id]
	return c, ok
}

func buildSeedCorpus(t *testing.T) (*Retriever, *fakeEmbedder) {
	t.Helper()

	chunks := map[string]document.Chunk{
		"bm25-chunk":   {ID: "bm25-chunk", Content: "BM25 is a lexical ranking function used by search engines"},
		"semantic-chunk": {ID: "semantic-chunk", Content: "Semantic search uses dense vector embeddings for similarity"},
		"hybrid-chunk": {ID: "hybrid-chunk", Content: "Hybrid search combines BM25 and semantic search with Reciprocal Rank Fusion"},
	}

	lexIdx := bm25.New()
	for _, c := range chunks {
		lexIdx.Add(c)
	}

	embed := &fakeEmbedder{vectors: map[string][]float32{
		"bm25-chunk":             {1, 0, 0},
		"semantic-chunk":         {0, 1, 0},
		"hybrid-chunk":           {0.7, 0.7, 0},
		"what is hybrid search?": {0.6, 0.6, 0},
	}}

	vecIdx := vectorindex.New()
	for id, v := range embed.vectors {
		if c, ok := chunks[id]; ok {
			vecIdx.Add(c.ID, v, nil)
		}
	}

	store := &fakeChunkStore{chunks: chunks}
	return New(lexIdx, vecIdx, store, embed), embed
}

func TestRetrieveHybridVariantSurfacesHybridPassageNearTop(t *testing.T) {
	r, _ := buildSeedCorpus(t)
	params := DefaultParams(VariantHybrid, 2)

	passages, err := r.Retrieve(context.Background(), "what is hybrid search?", params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(passages) == 0 {
		t.Fatal("expected at least one passage")
	}

	foundInTopTwo := false
	for i, p := range passages {
		if i >= 2 {
			break
		}
		if p.Chunk.ID == "hybrid-chunk" {
			foundInTopTwo = true
		}
	}
	if !foundInTopTwo {
		t.Errorf("expected hybrid-chunk in top 2, got %+v", passages)
	}
}

func TestRetrieveBaselineVariantSkipsLexicalBranch(t *testing.T) {
	r, _ := buildSeedCorpus(t)
	params := DefaultParams(VariantBaseline, 3)

	passages, err := r.Retrieve(context.Background(), "what is hybrid search?", params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range passages {
		if p.LexicalScore != 0 {
			t.Errorf("expected baseline variant to never populate lexical score, got %+v", p)
		}
	}
}

func TestStatusHealthyAfterSeedCorpus(t *testing.T) {
	r, _ := buildSeedCorpus(t)
	st := r.Status()
	if st.State != StatusHealthy || !st.SearchWorking || st.DocumentCount != 3 {
		t.Errorf("expected healthy status with 3 documents, got %+v", st)
	}
}

func TestStatusEmptyOnFreshIndex(t *testing.T) {
	r := New(bm25.New(), vectorindex.New(), &fakeChunkStore{chunks: map[string]document.Chunk{}}, &fakeEmbedder{})
	st := r.Status()
	if st.State != StatusEmpty {
		t.Errorf("expected empty status, got %+v", st)
	}
}

func TestRetrieveTruncatesToFinalK(t *testing.T) {
	r, _ := buildSeedCorpus(t)
	params := DefaultParams(VariantHybrid, 1)
	params.FinalK = 1

	passages, err := r.Retrieve(context.Background(), "search", params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(passages) > 1 {
		t.Errorf("expected at most 1 passage, got %d", len(passages))
	}
}

func TestDefaultParamsWidensFinalKForRerankVariants(t *testing.T) {
	for _, v := range []Variant{VariantReranked, VariantHybrid, VariantFinetuned} {
		p := DefaultParams(v, 4)
		if p.FinalK != 12 {
			t.Errorf("variant %v: expected FinalK widened to 3*final_k=12 so the candidate pool survives to rerank, got %d", v, p.FinalK)
		}
	}
	p := DefaultParams(VariantBaseline, 4)
	if p.FinalK != 4 {
		t.Errorf("baseline variant: expected FinalK to stay at final_k=4, got %d", p.FinalK)
	}
}
