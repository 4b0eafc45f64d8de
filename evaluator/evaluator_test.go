package evaluator

import (
	"context"
	"strings"
	"testing"

	"github.com/wirerag/ragcore/agent"
	"github.com/wirerag/ragcore/message"
	"github.com/wirerag/ragcore/rag/reranker"
)

// scriptedLLM returns a fixed response regardless of prompt, or routes by a
// substring match when responses is non-empty.
type scriptedLLM struct {
	responses map[string]string
	fallback  string
	calls     int
}

func (s *scriptedLLM) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	s.calls++
	prompt := req.Messages[len(req.Messages)-1].Text()
	for substr, resp := range s.responses {
		if strings.Contains(prompt, substr) {
			return &agent.GenerateResponse{Message: message.NewMessage(message.RoleAssistant, resp)}, nil
		}
	}
	return &agent.GenerateResponse{Message: message.NewMessage(message.RoleAssistant, s.fallback)}, nil
}

func (s *scriptedLLM) SetTemperature(float64) {}
func (s *scriptedLLM) SetMaxTokens(int64)     {}
func (s *scriptedLLM) SetModel(string)        {}

var _ agent.LLMClient = (*scriptedLLM)(nil)

func TestEvaluateAllHighScoresProducesHighOverall(t *testing.T) {
	llm := &scriptedLLM{
		fallback: "1.0",
		responses: map[string]string{
			"atomic factual claims": "the answer is fully supported by the contexts",
			"Answer (YES or NO):":   "YES",
			"Generate exactly 3 questions": "what is hybrid search\n" +
				"how does hybrid search work\n" +
				"what combines bm25 and vector search",
			"distinct aspects": "hybrid search\nbm25\nvector similarity",
		},
	}
	e := New(llm)

	m, err := e.Evaluate(context.Background(), "what is hybrid search", "hybrid search combines lexical and vector retrieval",
		[]string{"hybrid search combines BM25 and vector similarity"}, "")
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if m.AnswerFaithfulness != 1.0 || m.AnswerRelevancy != 1.0 {
		t.Errorf("expected faithfulness/relevancy 1.0, got %v/%v", m.AnswerFaithfulness, m.AnswerRelevancy)
	}
	if m.OverallScore < 0.8 {
		t.Errorf("expected high overall score, got %v", m.OverallScore)
	}
}

func TestEvaluateEmptyContextsZerosRelevancyAndFaithfulness(t *testing.T) {
	llm := &scriptedLLM{fallback: "1.0"}
	e := New(llm)

	m, err := e.Evaluate(context.Background(), "q", "some answer", nil, "")
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if m.ContextRelevancy != 0 || m.AnswerFaithfulness != 0 || m.ContextRecall != 0 {
		t.Errorf("expected zero scores with no contexts, got %+v", m)
	}
}

func TestEvaluateUnparsableJudgeResponseScoresHalfPerVote(t *testing.T) {
	llm := &scriptedLLM{fallback: "I cannot answer that"}
	e := New(llm)

	m, err := e.Evaluate(context.Background(), "q", "a", []string{"some context"}, "")
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if m.ContextRelevancy != 0.5 {
		t.Errorf("expected 0.5 from unparsable context relevancy rating, got %v", m.ContextRelevancy)
	}
}

func TestAnswerFaithfulnessZeroClaimsDefaultsTo075(t *testing.T) {
	llm := &scriptedLLM{fallback: ""} // extraction yields no lines at all
	e := New(llm)

	v, err := e.answerFaithfulness(context.Background(), "answer", []string{"some context"})
	if err != nil {
		t.Fatalf("answerFaithfulness returned error: %v", err)
	}
	if v != 0.75 {
		t.Errorf("expected 0.75 when no claims are extracted, got %v", v)
	}
}

func TestAnswerFaithfulnessScoresFractionOfVerifiedClaims(t *testing.T) {
	llm := &scriptedLLM{
		responses: map[string]string{
			"atomic factual claims":                        "hybrid search combines BM25 and vectors\nit uses reciprocal rank fusion",
			"Claim: hybrid search combines BM25 and vectors": "YES",
			"Claim: it uses reciprocal rank fusion":           "NO",
		},
		fallback: "NO",
	}

	e := New(llm)
	v, err := e.answerFaithfulness(context.Background(), "hybrid search combines BM25 and vectors and uses reciprocal rank fusion",
		[]string{"hybrid search combines BM25 with dense vector retrieval"})
	if err != nil {
		t.Fatalf("answerFaithfulness returned error: %v", err)
	}
	if v != 0.5 {
		t.Errorf("expected 0.5 (1 of 2 claims verified), got %v", v)
	}
}

func TestContextRecallFallsBackToTermCoverageWithoutGroundTruth(t *testing.T) {
	e := New(nil)
	v, err := e.contextRecall(context.Background(), "what is hybrid search", []string{"hybrid search is a retrieval technique"}, "")
	if err != nil {
		t.Fatalf("contextRecall returned error: %v", err)
	}
	if v <= 0 || v > 1 {
		t.Errorf("expected term-coverage recall in (0,1], got %v", v)
	}
}

func TestJudgeFailureDefaultsScoreWithoutError(t *testing.T) {
	e := New(nil) // nil llm -> judge always errors
	m, err := e.Evaluate(context.Background(), "q", "a", []string{"ctx"}, "")
	if err != nil {
		t.Fatalf("Evaluate should never surface judge errors, got: %v", err)
	}
	if m.AnswerRelevancy != defaultScore {
		t.Errorf("expected defaultScore fallback, got %v", m.AnswerRelevancy)
	}
}

func TestCheckThresholds(t *testing.T) {
	m := &Metrics{ContextRelevancy: 0.9, AnswerFaithfulness: 0.6, AnswerRelevancy: 0.85, ContextRecall: 0.5}
	thr := Thresholds{ContextRelevancy: 0.8, AnswerFaithfulness: 0.8, AnswerRelevancy: 0.8, ContextRecall: 0.7}

	results := CheckThresholds(m, thr)
	if !results["context_relevancy"] || results["answer_faithfulness"] || !results["answer_relevancy"] || results["context_recall"] {
		t.Errorf("unexpected threshold results: %+v", results)
	}
}

func TestAggregateMetrics(t *testing.T) {
	batch := []*Metrics{
		{OverallScore: 0.6},
		{OverallScore: 0.8},
		{OverallScore: 1.0},
	}
	agg := AggregateMetrics(batch)
	if agg.MeanOverallScore < 0.79 || agg.MeanOverallScore > 0.81 {
		t.Errorf("expected mean ~0.8, got %v", agg.MeanOverallScore)
	}
	if agg.MinOverallScore != 0.6 || agg.MaxOverallScore != 1.0 {
		t.Errorf("expected min/max 0.6/1.0, got %v/%v", agg.MinOverallScore, agg.MaxOverallScore)
	}
}

func TestAggregateMetricsEmptyBatch(t *testing.T) {
	agg := AggregateMetrics(nil)
	if agg.MeanOverallScore != 0 {
		t.Errorf("expected zero-value aggregate for empty batch, got %+v", agg)
	}
}

func TestContextRelevancyPrefersCrossEncoderOverLLMJudge(t *testing.T) {
	llm := &scriptedLLM{fallback: "0,0,0"} // would score 0 if the judge were consulted
	e := New(llm, WithCrossEncoder(reranker.NewCosineReranker()))

	v, err := e.contextRelevancy(context.Background(), "q", []string{"ctx1", "ctx2"})
	if err != nil {
		t.Fatalf("contextRelevancy returned error: %v", err)
	}
	if llm.calls != 0 {
		t.Errorf("expected cross-encoder path to skip the LLM judge, got %d calls", llm.calls)
	}
	if v <= 0 {
		t.Errorf("expected a non-zero sigmoid-normalized score, got %v", v)
	}
}

func TestBatchEvaluate(t *testing.T) {
	llm := &scriptedLLM{fallback: "0.8"}
	e := New(llm)

	queries := []string{"q1", "q2"}
	answers := []string{"a1", "a2"}
	contexts := [][]string{{"c1"}, {"c2"}}

	results, err := e.BatchEvaluate(context.Background(), queries, answers, contexts, nil)
	if err != nil {
		t.Fatalf("BatchEvaluate returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}
