package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/wirerag/ragcore/agent"
	"github.com/wirerag/ragcore/bm25"
	"github.com/wirerag/ragcore/cache"
	"github.com/wirerag/ragcore/config"
	"github.com/wirerag/ragcore/experiment"
	"github.com/wirerag/ragcore/message"
	"github.com/wirerag/ragcore/rag/document"
	"github.com/wirerag/ragcore/recordstore"
	"github.com/wirerag/ragcore/retrieval"
	"github.com/wirerag/ragcore/vectorindex"
)

type fakeRecordStore struct {
	outcomes []recordstore.OutcomeRecord
	feedback []recordstore.FeedbackRecord
}

func (f *fakeRecordStore) SaveFeedback(ctx context.Context, rec recordstore.FeedbackRecord) error {
	f.feedback = append(f.feedback, rec)
	return nil
}

func (f *fakeRecordStore) SaveOutcome(ctx context.Context, rec recordstore.OutcomeRecord) error {
	f.outcomes = append(f.outcomes, rec)
	return nil
}

func (f *fakeRecordStore) ListOutcomes(ctx context.Context, experimentID string) ([]recordstore.OutcomeRecord, error) {
	var out []recordstore.OutcomeRecord
	for _, o := range f.outcomes {
		if o.ExperimentID == experimentID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) Close(ctx context.Context) error { return nil }

var _ recordstore.RecordStore = (*fakeRecordStore)(nil)

type fakeEmbedder struct {
	vectors map[string][]float32
	failAll bool
}

func (f *fakeEmbedder) EmbedDocument(ctx context.Context, chunk document.Chunk) ([]float32, error) {
	return f.vectors[chunk.ID], nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if f.failAll {
		return nil, errors.New("embedding service unavailable")
	}
	return f.vectors[query], nil
}

type fakeChunkStore struct {
	chunks map[string]document.Chunk
}

func (s *fakeChunkStore) Chunk(id string) (document.Chunk, bool) {
	c, ok := s.chunks[id]
	return c, ok
}

type fakeLLM struct {
	text  string
	calls int
}

func (f *fakeLLM) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	f.calls++
	return &agent.GenerateResponse{Message: message.NewMessage(message.RoleAssistant, f.text)}, nil
}
func (f *fakeLLM) SetTemperature(float64) {}
func (f *fakeLLM) SetMaxTokens(int64)     {}
func (f *fakeLLM) SetModel(string)        {}

var _ agent.LLMClient = (*fakeLLM)(nil)

func buildSeedOrchestrator(t *testing.T, llm *fakeLLM) *Orchestrator {
	t.Helper()

	chunks := map[string]document.Chunk{
		"hybrid-chunk": {ID: "hybrid-chunk", Content: "Hybrid search combines BM25 and semantic search with Reciprocal Rank Fusion"},
	}

	lexIdx := bm25.New()
	for _, c := range chunks {
		lexIdx.Add(c)
	}

	embed := &fakeEmbedder{vectors: map[string][]float32{
		"hybrid-chunk":            {0.7, 0.7, 0},
		"what is hybrid search?": {0.6, 0.6, 0},
	}}
	vecIdx := vectorindex.New()
	vecIdx.Add("hybrid-chunk", embed.vectors["hybrid-chunk"], nil)

	store := &fakeChunkStore{chunks: chunks}
	retriever := retrieval.New(lexIdx, vecIdx, store, embed)

	router := experiment.New(experiment.Config{
		ExperimentID: "default",
		Variants:     []string{"hybrid"},
		Split:        []float64{1.0},
		Confidence:   0.95,
	})

	cfg := config.Default()
	return New(retriever, nil, router, llm, embed, cache.NewInMemory(), cfg)
}

func TestRunReturnsAnswerForMatchingQuery(t *testing.T) {
	llm := &fakeLLM{text: "Hybrid search fuses lexical and semantic retrieval."}
	o := buildSeedOrchestrator(t, llm)

	answer := o.Run(context.Background(), Request{Question: "what is hybrid search?", MaxResults: 2, ForceVariant: retrieval.VariantHybrid})
	if answer.Status != StatusOK {
		t.Fatalf("expected ok status, got %q (%s)", answer.Status, answer.ErrorMessage)
	}
	if answer.Text == "" {
		t.Error("expected non-empty answer text")
	}
	if len(answer.Passages) == 0 {
		t.Error("expected at least one passage")
	}
	if answer.Confidence <= 0 {
		t.Error("expected positive confidence")
	}
	if llm.calls != 1 {
		t.Errorf("expected exactly one llm call, got %d", llm.calls)
	}
}

func TestRunReportsDegradedWhenSemanticBranchUnavailable(t *testing.T) {
	chunks := map[string]document.Chunk{
		"hybrid-chunk": {ID: "hybrid-chunk", Content: "Hybrid search combines BM25 and semantic search with Reciprocal Rank Fusion"},
	}
	lexIdx := bm25.New()
	for _, c := range chunks {
		lexIdx.Add(c)
	}

	embed := &fakeEmbedder{failAll: true}
	vecIdx := vectorindex.New()
	store := &fakeChunkStore{chunks: chunks}
	retriever := retrieval.New(lexIdx, vecIdx, store, embed)

	router := experiment.New(experiment.Config{
		ExperimentID: "default",
		Variants:     []string{"hybrid"},
		Split:        []float64{1.0},
		Confidence:   0.95,
	})

	llm := &fakeLLM{text: "Hybrid search fuses lexical and semantic retrieval."}
	o := New(retriever, nil, router, llm, embed, cache.NewInMemory(), config.Default())

	answer := o.Run(context.Background(), Request{Question: "what is hybrid search?", ForceVariant: retrieval.VariantHybrid})
	if answer.Status != StatusDegraded {
		t.Errorf("expected degraded status when the semantic branch fails but lexical survives, got %q (error: %q)", answer.Status, answer.ErrorMessage)
	}
	if len(answer.Passages) == 0 {
		t.Error("expected the surviving lexical branch to still produce passages")
	}
}

func TestRunEmptyQuestionFails(t *testing.T) {
	o := buildSeedOrchestrator(t, &fakeLLM{text: "x"})
	answer := o.Run(context.Background(), Request{Question: "   "})
	if answer.Status != StatusFailed {
		t.Errorf("expected failed status for empty question, got %q", answer.Status)
	}
	if answer.ErrorMessage == "" {
		t.Error("expected error message set")
	}
}

func TestRunNoMatchingPassagesReturnsZeroConfidenceWithoutFailing(t *testing.T) {
	o := buildSeedOrchestrator(t, &fakeLLM{text: "x"})
	answer := o.Run(context.Background(), Request{Question: "completely unrelated gibberish zzzz", MaxResults: 2, ForceVariant: retrieval.VariantBaseline})
	if answer.Status != StatusOK {
		t.Fatalf("expected ok status even with no passages, got %q (%s)", answer.Status, answer.ErrorMessage)
	}
	if answer.Confidence != 0 {
		t.Errorf("expected zero confidence, got %v", answer.Confidence)
	}
}

func TestRunSecondIdenticalCallHitsCache(t *testing.T) {
	llm := &fakeLLM{text: "cached answer"}
	o := buildSeedOrchestrator(t, llm)

	req := Request{Question: "what is hybrid search?", MaxResults: 2, ForceVariant: retrieval.VariantHybrid}
	first := o.Run(context.Background(), req)
	if first.CacheHit {
		t.Error("did not expect cache hit on first call")
	}

	second := o.Run(context.Background(), req)
	if !second.CacheHit {
		t.Error("expected cache hit on second identical call")
	}
	if llm.calls != 1 {
		t.Errorf("expected llm called only once across both requests, got %d", llm.calls)
	}
}

func TestRunPersistsOutcomeToRecordStoreWhenAttached(t *testing.T) {
	llm := &fakeLLM{text: "hybrid search answer"}
	o := buildSeedOrchestrator(t, llm)
	records := &fakeRecordStore{}
	o.WithRecordStore(records)

	answer := o.Run(context.Background(), Request{Question: "what is hybrid search?", MaxResults: 2, ForceVariant: retrieval.VariantHybrid})
	if answer.Status != StatusOK {
		t.Fatalf("expected ok status, got %q (%s)", answer.Status, answer.ErrorMessage)
	}
	if len(records.outcomes) != 1 {
		t.Fatalf("expected exactly one outcome persisted, got %d", len(records.outcomes))
	}
	if records.outcomes[0].Variant != string(retrieval.VariantHybrid) {
		t.Errorf("expected recorded variant %q, got %q", retrieval.VariantHybrid, records.outcomes[0].Variant)
	}
}

func TestSubmitFeedbackPersistsRecord(t *testing.T) {
	o := buildSeedOrchestrator(t, &fakeLLM{text: "x"})
	records := &fakeRecordStore{}
	o.WithRecordStore(records)

	err := o.SubmitFeedback(context.Background(), recordstore.FeedbackRecord{
		ResultID: "ans-1",
		Kind:     recordstore.FeedbackThumbsUp,
		Value:    1,
	})
	if err != nil {
		t.Fatalf("SubmitFeedback failed: %v", err)
	}
	if len(records.feedback) != 1 {
		t.Fatalf("expected one feedback record, got %d", len(records.feedback))
	}
	if records.feedback[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be stamped")
	}
}

func TestSubmitFeedbackWithoutRecordStoreIsNoOp(t *testing.T) {
	o := buildSeedOrchestrator(t, &fakeLLM{text: "x"})
	if err := o.SubmitFeedback(context.Background(), recordstore.FeedbackRecord{ResultID: "ans-1"}); err != nil {
		t.Errorf("expected no-op without a record store, got error: %v", err)
	}
}
