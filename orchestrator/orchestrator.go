// Package orchestrator drives the end-to-end query flow (C11): cache
// lookup, variant assignment, hybrid retrieval, optional reranking, prompt
// assembly, LLM synthesis, confidence/cost accounting, cache store, and
// experiment outcome recording.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wirerag/ragcore/agent"
	"github.com/wirerag/ragcore/cache"
	"github.com/wirerag/ragcore/config"
	"github.com/wirerag/ragcore/experiment"
	"github.com/wirerag/ragcore/message"
	"github.com/wirerag/ragcore/pkg/logging"
	"github.com/wirerag/ragcore/prompt"
	"github.com/wirerag/ragcore/rag/embedder"
	"github.com/wirerag/ragcore/rag/reranker"
	"github.com/wirerag/ragcore/recordstore"
	"github.com/wirerag/ragcore/retrieval"
)

const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusDegraded = "degraded"

	noAnswerText = "No relevant information was found to answer this question."

	cacheNamespace = "answer"

	// defaultExperimentID groups outcome records when the caller runs a
	// single retrieval experiment rather than naming several.
	defaultExperimentID = "default"
)

// Request is a single incoming query.
type Request struct {
	Question     string
	MaxResults   int
	Filter       retrieval.Filter
	ForceVariant retrieval.Variant
	Identifier   string // user_id or session_id; stabilizes variant assignment
	Temperature  float64
	MaxTokens    int64
}

// Answer is the structured response handed back to callers; it is never
// accompanied by an error from Run — unrecoverable failures surface as
// Status == StatusFailed with ErrorMessage set.
type Answer struct {
	Text         string              `json:"text"`
	Passages     []retrieval.Passage `json:"passages"`
	Variant      retrieval.Variant   `json:"variant"`
	Confidence   float64             `json:"confidence"`
	LatencyMS    float64             `json:"latency_ms"`
	TokensUsed   int                 `json:"tokens_used"`
	CostUSD      float64             `json:"cost_usd"`
	Status       string              `json:"status"`
	ErrorMessage string              `json:"error_message,omitempty"`
	CacheHit     bool                `json:"cache_hit"`
}

// Orchestrator wires together the components a single query touches.
type Orchestrator struct {
	retriever *retrieval.Retriever
	reranker  reranker.Reranker
	router    *experiment.Router
	llm       agent.LLMClient
	embed     embedder.Embedder
	cache     cache.Cache
	cfg       config.Config
	logger    *slog.Logger
	records   recordstore.RecordStore // optional, set via WithRecordStore
}

// WithRecordStore attaches a durable record store so experiment outcomes
// and submitted feedback outlive the in-process router's memory. Optional;
// Run and SubmitFeedback work without one.
func (o *Orchestrator) WithRecordStore(rs recordstore.RecordStore) *Orchestrator {
	o.records = rs
	return o
}

// SubmitFeedback records user feedback on a previously returned answer.
// Best effort: if no record store is attached this is a no-op.
func (o *Orchestrator) SubmitFeedback(ctx context.Context, rec recordstore.FeedbackRecord) error {
	if o.records == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return o.records.SaveFeedback(ctx, rec)
}

// New constructs an Orchestrator. reranker may be nil, in which case
// variants that call for reranking simply skip that step.
func New(retriever *retrieval.Retriever, rr reranker.Reranker, router *experiment.Router, llm agent.LLMClient, embed embedder.Embedder, c cache.Cache, cfg config.Config) *Orchestrator {
	return &Orchestrator{
		retriever: retriever,
		reranker:  rr,
		router:    router,
		llm:       llm,
		embed:     embed,
		cache:     c,
		cfg:       cfg,
		logger:    logging.WithComponent("orchestrator"),
	}
}

// Run executes the ten-step synthesis flow for one request.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Answer {
	start := time.Now()
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return o.fail(start, "", fmt.Errorf("question cannot be empty"))
	}

	finalK := req.MaxResults
	if finalK <= 0 {
		finalK = o.cfg.FinalTopK
	}
	if finalK <= 0 {
		finalK = 5
	}

	variant := req.ForceVariant
	if variant == "" {
		variant = o.assignVariant(req)
	}

	params := retrieval.DefaultParams(variant, finalK)
	params.Filter = req.Filter

	cacheKey := o.cacheKey(question, params)
	if answer, hit := o.lookupCache(ctx, cacheKey); hit {
		answer.LatencyMS = float64(time.Since(start).Microseconds()) / 1000.0
		o.logger.Info("cache hit", "question", trimForLog(question, 100), "variant", variant)
		return answer
	}

	passages, degraded, err := o.retriever.RetrieveDegraded(ctx, question, params)
	if err != nil {
		return o.fail(start, variant, fmt.Errorf("retrieve: %w", err))
	}
	if degraded {
		o.logger.Warn("retrieval degraded: one branch unavailable", "question", trimForLog(question, 100), "variant", variant)
	}

	reranked := false
	if requiresRerank(variant) && o.reranker != nil && len(passages) > 0 {
		passages, err = o.rerank(ctx, question, passages)
		if err != nil {
			return o.fail(start, variant, fmt.Errorf("rerank: %w", err))
		}
		reranked = true
	}
	if len(passages) > finalK {
		passages = passages[:finalK]
	}

	if len(passages) == 0 {
		status := StatusOK
		if degraded {
			status = StatusDegraded
		}
		answer := &Answer{
			Text:       noAnswerText,
			Passages:   []retrieval.Passage{},
			Variant:    variant,
			Confidence: 0,
			Status:     status,
			LatencyMS:  float64(time.Since(start).Microseconds()) / 1000.0,
		}
		o.recordOutcome(req, variant, answer, true)
		return answer
	}

	msgs := prompt.Assemble(question, passages, prompt.WithCharBudget(o.cfg.MaxContextLength))
	genResp, err := o.generate(ctx, msgs, req)
	if err != nil {
		return o.fail(start, variant, fmt.Errorf("generate: %w", err))
	}

	tokensUsed := genResp.InputTokens + genResp.OutputTokens
	if tokensUsed == 0 {
		tokensUsed = estimateTokens(msgs) + estimateTokens([]*message.Message{genResp.Message})
	}

	status := StatusOK
	if degraded {
		status = StatusDegraded
	}
	answer := &Answer{
		Text:       genResp.Message.Text(),
		Passages:   passages,
		Variant:    variant,
		Confidence: confidenceFromPassages(passages),
		TokensUsed: tokensUsed,
		CostUSD:    o.costUSD(len(passages), reranked, tokensUsed),
		Status:     status,
	}
	answer.LatencyMS = float64(time.Since(start).Microseconds()) / 1000.0

	o.storeCache(ctx, cacheKey, answer)
	o.recordOutcome(req, variant, answer, true)

	o.logger.Info("query completed",
		"question", trimForLog(question, 100),
		"variant", variant,
		"passages", len(passages),
		"confidence", answer.Confidence,
		"cost_usd", answer.CostUSD,
		"latency_ms", answer.LatencyMS,
	)
	return answer
}

func (o *Orchestrator) fail(start time.Time, variant retrieval.Variant, err error) *Answer {
	o.logger.Error("query failed", "error", err)
	return &Answer{
		Passages:     []retrieval.Passage{},
		Variant:      variant,
		Status:       StatusFailed,
		ErrorMessage: err.Error(),
		LatencyMS:    float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

func (o *Orchestrator) assignVariant(req Request) retrieval.Variant {
	if o.router == nil {
		return retrieval.VariantHybrid
	}
	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Question
	}
	return retrieval.Variant(o.router.Assign(identifier))
}

func requiresRerank(v retrieval.Variant) bool {
	return v == retrieval.VariantReranked || v == retrieval.VariantHybrid || v == retrieval.VariantFinetuned
}

func (o *Orchestrator) rerank(ctx context.Context, question string, passages []retrieval.Passage) ([]retrieval.Passage, error) {
	var queryVector []float32
	if o.embed != nil {
		v, err := o.embed.EmbedQuery(ctx, question)
		if err == nil {
			queryVector = v
		}
	}

	candidates := make([]reranker.Candidate, len(passages))
	byChunkID := make(map[string]retrieval.Passage, len(passages))
	for i, p := range passages {
		candidates[i] = reranker.Candidate{Chunk: p.Chunk, Score: float32(p.FusedScore)}
		byChunkID[p.Chunk.ID] = p
	}

	ctx = reranker.ContextWithQuery(ctx, question)
	results, err := o.reranker.Rank(ctx, queryVector, candidates)
	if err != nil {
		return nil, err
	}

	out := make([]retrieval.Passage, 0, len(results))
	for _, r := range results {
		orig := byChunkID[r.Chunk.ID]
		orig.Chunk = r.Chunk
		orig.FusedScore = float64(r.Score)
		out = append(out, orig)
	}
	return out, nil
}

func (o *Orchestrator) generate(ctx context.Context, msgs []*message.Message, req Request) (*agent.GenerateResponse, error) {
	if o.llm == nil {
		return nil, fmt.Errorf("no llm client configured")
	}
	if req.Temperature > 0 {
		o.llm.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		o.llm.SetMaxTokens(req.MaxTokens)
	}
	resp, err := o.llm.Generate(ctx, &agent.GenerateRequest{Messages: msgs})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Message == nil {
		return nil, fmt.Errorf("empty llm response")
	}
	return resp, nil
}

func confidenceFromPassages(passages []retrieval.Passage) float64 {
	n := len(passages)
	if n > 3 {
		n = 3
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for _, p := range passages[:n] {
		sum += p.FusedScore
	}
	return clamp01(sum / float64(n))
}

func (o *Orchestrator) costUSD(retrievedCount int, reranked bool, tokensUsed int) float64 {
	ct := o.cfg.CostTable
	cost := ct.PerEmbedding + ct.PerVecSearch*float64(retrievedCount)
	if reranked {
		cost += ct.PerRerank * float64(retrievedCount)
	}
	cost += ct.TokenCost(o.cfg.LLMModel) * float64(tokensUsed)
	return cost
}

func (o *Orchestrator) cacheKey(question string, params retrieval.Params) string {
	normalized := cache.NormalizeQuery(question)
	return cache.Key(cacheNamespace, normalized, map[string]any{
		"variant": string(params.Variant),
		"method":  string(params.Method),
		"k_bm25":  params.KBM25,
		"k_vec":   params.KVec,
		"final_k": params.FinalK,
	})
}

func (o *Orchestrator) lookupCache(ctx context.Context, key string) (*Answer, bool) {
	if o.cache == nil {
		return nil, false
	}
	raw, ok, err := o.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var answer Answer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, false
	}
	answer.CacheHit = true
	return &answer, true
}

func (o *Orchestrator) storeCache(ctx context.Context, key string, answer *Answer) {
	if o.cache == nil {
		return
	}
	data, err := json.Marshal(answer)
	if err != nil {
		return
	}
	ttl := time.Duration(o.cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := o.cache.Set(ctx, key, string(data), ttl); err != nil {
		o.logger.Warn("cache store failed", "error", err)
	}
}

func (o *Orchestrator) recordOutcome(req Request, variant retrieval.Variant, answer *Answer, success bool) {
	if o.router != nil {
		o.router.RecordOutcome(experiment.Outcome{
			Variant:      string(variant),
			Success:      success,
			LatencyMS:    answer.LatencyMS,
			CostUSD:      answer.CostUSD,
			OverallScore: answer.Confidence,
		})
	}
	if o.records != nil {
		rec := recordstore.OutcomeRecord{
			ExperimentID: defaultExperimentID,
			Variant:      string(variant),
			Success:      success,
			LatencyMS:    answer.LatencyMS,
			CostUSD:      answer.CostUSD,
			OverallScore: answer.Confidence,
			CreatedAt:    time.Now(),
		}
		if err := o.records.SaveOutcome(context.Background(), rec); err != nil {
			o.logger.Warn("outcome persist failed", "error", err)
		}
	}
}

// estimateTokens is a rough fallback token estimate (~4 chars/token) used
// only when a provider's GenerateResponse doesn't report usage.
func estimateTokens(msgs []*message.Message) int {
	chars := 0
	for _, m := range msgs {
		if m != nil {
			chars += len(m.Text())
		}
	}
	return chars / 4
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func trimForLog(text string, limit int) string {
	if limit <= 0 || len([]rune(text)) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
