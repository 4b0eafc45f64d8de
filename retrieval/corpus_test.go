package retrieval

import (
	"context"
	"testing"

	"github.com/wirerag/ragcore/config"
	"github.com/wirerag/ragcore/rag/chunking"
	"github.com/wirerag/ragcore/rag/document"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedDocument(ctx context.Context, chunk document.Chunk) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (stubEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func TestCorpusIngestPopulatesBothBranches(t *testing.T) {
	corpus := NewCorpus(chunking.NewSimpleChunker(), stubEmbedder{})

	ids, err := corpus.Ingest(context.Background(), document.Document{
		ID:      "doc-1",
		Content: "Hybrid search combines BM25 keyword search with vector similarity search.",
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if len(ids) == 0 {
		t.Fatal("expected at least one chunk id")
	}
	if corpus.Count() != len(ids) {
		t.Errorf("expected store count %d, got %d", len(ids), corpus.Count())
	}

	retriever := corpus.Retriever()
	passages, err := retriever.Retrieve(context.Background(), "hybrid search", DefaultParams(VariantHybrid, 2))
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(passages) == 0 {
		t.Error("expected at least one passage after ingest")
	}
}

func TestCorpusIngestAllResetsWhenRequested(t *testing.T) {
	corpus := NewCorpus(chunking.NewSimpleChunker(), stubEmbedder{})

	n, err := corpus.IngestAll(context.Background(), []document.Document{
		{ID: "doc-1", Content: "Hybrid search combines BM25 keyword search with vector similarity search."},
		{ID: "doc-2", Content: "Reciprocal rank fusion merges two ranked lists by position alone."},
	}, false)
	if err != nil {
		t.Fatalf("ingest all failed: %v", err)
	}
	if n == 0 {
		t.Fatal("expected at least one inserted chunk")
	}
	if corpus.Count() != n {
		t.Errorf("expected store count %d, got %d", n, corpus.Count())
	}

	n2, err := corpus.IngestAll(context.Background(), []document.Document{
		{ID: "doc-3", Content: "A single small replacement document."},
	}, true)
	if err != nil {
		t.Fatalf("ingest all with reset failed: %v", err)
	}
	if corpus.Count() != n2 {
		t.Errorf("expected store to hold only the post-reset batch, got count %d want %d", corpus.Count(), n2)
	}
}

func TestCorpusStatusReflectsIngestState(t *testing.T) {
	corpus := NewCorpus(chunking.NewSimpleChunker(), stubEmbedder{})

	if st := corpus.Status(); st.State != StatusEmpty {
		t.Errorf("expected empty status before ingest, got %q", st.State)
	}

	if _, err := corpus.Ingest(context.Background(), document.Document{
		ID:      "doc-1",
		Content: "Hybrid search combines BM25 keyword search with vector similarity search.",
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	st := corpus.Status()
	if st.State != StatusHealthy || !st.SearchWorking {
		t.Errorf("expected healthy/searchable status after ingest, got %+v", st)
	}
}

func TestCorpusIngestEmptyDocumentReturnsNoChunks(t *testing.T) {
	corpus := NewCorpus(chunking.NewSimpleChunker(), stubEmbedder{})
	ids, err := corpus.Ingest(context.Background(), document.Document{ID: "empty", Content: ""})
	if err != nil {
		t.Fatalf("unexpected error for empty document: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no chunks for empty document, got %d", len(ids))
	}
}

func TestNewCorpusFromConfigDefaultsToSemanticChunker(t *testing.T) {
	cfg := config.Default()
	corpus, err := NewCorpusFromConfig(cfg, stubEmbedder{})
	if err != nil {
		t.Fatalf("NewCorpusFromConfig failed: %v", err)
	}
	if _, ok := corpus.chunker.(*chunking.SemanticChunker); !ok {
		t.Errorf("expected default chunk strategy to build a *chunking.SemanticChunker, got %T", corpus.chunker)
	}

	ids, err := corpus.Ingest(context.Background(), document.Document{
		ID:      "doc-1",
		Content: "Hybrid search combines BM25 keyword search with vector similarity search.",
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if len(ids) == 0 {
		t.Error("expected the semantic chunker to produce at least one chunk")
	}
}

func TestNewCorpusFromConfigRejectsUnknownStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkStrategy = "bogus"
	if _, err := NewCorpusFromConfig(cfg, stubEmbedder{}); err == nil {
		t.Error("expected an error for an unknown chunk strategy")
	}
}
