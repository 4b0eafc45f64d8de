// Package evaluator implements RAGAS-style quality metrics for a synthesized
// answer: context relevancy, answer faithfulness, answer relevancy, and
// context recall, each computed independently and defaulting to a neutral
// score rather than failing the whole evaluation when one metric errors.
package evaluator

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wirerag/ragcore/agent"
	"github.com/wirerag/ragcore/message"
	"github.com/wirerag/ragcore/rag/document"
	"github.com/wirerag/ragcore/rag/reranker"
)

// defaultScore is returned by a metric when its computation fails for any
// reason; it is deliberately in the middle of the range so a failed metric
// neither passes nor fails a threshold on its own.
const defaultScore = 0.7

// Metrics holds the four RAGAS scores for one synthesized answer plus a
// weighted overall score.
type Metrics struct {
	ContextRelevancy   float64
	AnswerFaithfulness float64
	AnswerRelevancy    float64
	ContextRecall      float64
	OverallScore       float64
	EvaluationMS       float64
}

// Thresholds names the minimum acceptable value for each metric.
type Thresholds struct {
	ContextRelevancy   float64
	AnswerFaithfulness float64
	AnswerRelevancy    float64
	ContextRecall      float64
}

// Evaluator runs the four metrics against an LLM judge, preferring a
// cross-encoder for context relevancy and answer relevancy when one is
// configured and falling back to the LLM judge otherwise (per §4.13).
type Evaluator struct {
	llm   agent.LLMClient
	cross reranker.Reranker
}

// Option customizes an Evaluator at construction time.
type Option func(*Evaluator)

// WithCrossEncoder attaches a cross-encoder reranker used to score
// (query, passage) and (query, answer) pairs for context relevancy and
// answer relevancy, preferred over the LLM-judge path whenever it succeeds.
func WithCrossEncoder(cross reranker.Reranker) Option {
	return func(e *Evaluator) {
		e.cross = cross
	}
}

// New constructs an Evaluator backed by llm, used to score each metric.
func New(llm agent.LLMClient, opts ...Option) *Evaluator {
	e := &Evaluator{llm: llm}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores a single query/answer/context triple, running all four
// metrics concurrently. groundTruth is optional; when empty, context recall
// scores the query aspects the judge extracts, and falls back to a
// term-coverage heuristic only when that extraction fails.
func (e *Evaluator) Evaluate(ctx context.Context, query, answer string, contexts []string, groundTruth string) (*Metrics, error) {
	m := &Metrics{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := e.contextRelevancy(gctx, query, contexts)
		m.ContextRelevancy = v
		return err
	})
	g.Go(func() error {
		v, err := e.answerFaithfulness(gctx, answer, contexts)
		m.AnswerFaithfulness = v
		return err
	})
	g.Go(func() error {
		v, err := e.answerRelevancy(gctx, query, answer)
		m.AnswerRelevancy = v
		return err
	})
	g.Go(func() error {
		v, err := e.contextRecall(gctx, query, contexts, groundTruth)
		m.ContextRecall = v
		return err
	})

	// Each metric swallows its own failures and falls back to defaultScore,
	// so Wait never actually returns an error; it's here to join the
	// goroutines before OverallScore reads their results.
	_ = g.Wait()

	m.OverallScore = weightedOverall(m.ContextRelevancy, m.AnswerFaithfulness, m.AnswerRelevancy, m.ContextRecall)
	return m, nil
}

// weightedOverall blends the four RAGAS metrics per the fixed weights
// 0.25 (context relevancy) + 0.30 (faithfulness) + 0.30 (answer relevancy)
// + 0.15 (context recall).
func weightedOverall(contextRelevancy, answerFaithfulness, answerRelevancy, contextRecall float64) float64 {
	return clamp01(0.25*contextRelevancy + 0.30*answerFaithfulness + 0.30*answerRelevancy + 0.15*contextRecall)
}

// BatchEvaluate runs Evaluate over a slice of results, one ground truth per
// result (ground truth may be empty string per-entry).
func (e *Evaluator) BatchEvaluate(ctx context.Context, queries, answers []string, contexts [][]string, groundTruths []string) ([]*Metrics, error) {
	out := make([]*Metrics, len(queries))
	for i := range queries {
		gt := ""
		if i < len(groundTruths) {
			gt = groundTruths[i]
		}
		m, err := e.Evaluate(ctx, queries[i], answers[i], contexts[i], gt)
		if err != nil {
			return nil, fmt.Errorf("batch evaluate index %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}

// CheckThresholds reports which metrics met their configured minimum.
func CheckThresholds(m *Metrics, t Thresholds) map[string]bool {
	return map[string]bool{
		"context_relevancy":   m.ContextRelevancy >= t.ContextRelevancy,
		"answer_faithfulness": m.AnswerFaithfulness >= t.AnswerFaithfulness,
		"answer_relevancy":    m.AnswerRelevancy >= t.AnswerRelevancy,
		"context_recall":      m.ContextRecall >= t.ContextRecall,
	}
}

// Aggregate summarizes mean/std/min/max overall score across a batch, plus
// per-metric means.
type Aggregate struct {
	MeanContextRelevancy   float64
	MeanAnswerFaithfulness float64
	MeanAnswerRelevancy    float64
	MeanContextRecall      float64
	MeanOverallScore       float64
	StdOverallScore        float64
	MinOverallScore        float64
	MaxOverallScore        float64
}

// AggregateMetrics computes Aggregate over a non-empty batch; callers must
// guard against an empty slice themselves since there's no meaningful
// zero-value aggregate.
func AggregateMetrics(batch []*Metrics) Aggregate {
	var a Aggregate
	if len(batch) == 0 {
		return a
	}

	n := float64(len(batch))
	var sumRelevancy, sumFaithfulness, sumAnswerRel, sumRecall, sumOverall float64
	a.MinOverallScore = batch[0].OverallScore
	a.MaxOverallScore = batch[0].OverallScore

	for _, m := range batch {
		sumRelevancy += m.ContextRelevancy
		sumFaithfulness += m.AnswerFaithfulness
		sumAnswerRel += m.AnswerRelevancy
		sumRecall += m.ContextRecall
		sumOverall += m.OverallScore
		if m.OverallScore < a.MinOverallScore {
			a.MinOverallScore = m.OverallScore
		}
		if m.OverallScore > a.MaxOverallScore {
			a.MaxOverallScore = m.OverallScore
		}
	}

	a.MeanContextRelevancy = sumRelevancy / n
	a.MeanAnswerFaithfulness = sumFaithfulness / n
	a.MeanAnswerRelevancy = sumAnswerRel / n
	a.MeanContextRecall = sumRecall / n
	a.MeanOverallScore = sumOverall / n

	var sqDiff float64
	for _, m := range batch {
		d := m.OverallScore - a.MeanOverallScore
		sqDiff += d * d
	}
	a.StdOverallScore = math.Sqrt(sqDiff / n)

	return a
}

func (e *Evaluator) contextRelevancy(ctx context.Context, query string, contexts []string) (float64, error) {
	if len(contexts) == 0 {
		return 0, nil
	}

	if e.cross != nil {
		if v, ok := e.crossEncoderMeanScore(ctx, query, contexts); ok {
			return v, nil
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Given the question and retrieved contexts, evaluate how relevant each context is to answering the question.\nRate each context as relevant (1) or not relevant (0).\n\nQuestion: %s\n\nContexts:\n", query)
	for i, c := range contexts {
		fmt.Fprintf(&b, "\n%d. %s", i+1, truncate(c, 500))
	}
	b.WriteString("\n\nProvide relevancy scores as a comma-separated list (e.g., 1,0,1,1,0):")

	resp, err := e.judge(ctx, b.String())
	if err != nil {
		return defaultScore, nil
	}

	parts := strings.Split(strings.TrimSpace(resp), ",")
	var sum float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			v = 0.5
		}
		sum += v
	}
	if len(parts) == 0 {
		return 0.5, nil
	}
	return clamp01(sum / float64(len(parts))), nil
}

// answerFaithfulness extracts the atomic claims made in the answer, then asks
// the judge to verify each against the concatenated top-3 contexts; the score
// is the fraction verified. An answer with no extractable claims defaults to
// 0.75 rather than 0, since "no checkable claims" isn't the same as "wrong".
func (e *Evaluator) answerFaithfulness(ctx context.Context, answer string, contexts []string) (float64, error) {
	if len(contexts) == 0 || answer == "" {
		return 0, nil
	}

	top := contexts
	if len(top) > 3 {
		top = top[:3]
	}
	combined := truncate(strings.Join(top, "\n"), 1500)

	claims, err := e.extractClaims(ctx, answer)
	if err != nil {
		return defaultScore, nil
	}
	if len(claims) == 0 {
		return 0.75, nil
	}

	var verified int
	for _, claim := range claims {
		ok, err := e.verifyClaim(ctx, claim, combined)
		if err == nil && ok {
			verified++
		}
	}
	return clamp01(float64(verified) / float64(len(claims))), nil
}

func (e *Evaluator) extractClaims(ctx context.Context, answer string) ([]string, error) {
	prompt := fmt.Sprintf(`List the atomic factual claims made in the following answer, one claim per line and no other text.

Answer:
%s

Claims:`, truncate(answer, 2000))

	resp, err := e.judge(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return extractLines(resp, 0), nil
}

func (e *Evaluator) verifyClaim(ctx context.Context, claim, context string) (bool, error) {
	prompt := fmt.Sprintf(`Given the context, determine whether the claim is fully supported by it. Respond with only YES or NO.

Context:
%s

Claim: %s

Answer (YES or NO):`, context, claim)

	resp, err := e.judge(ctx, prompt)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToUpper(resp), "YES"), nil
}

// answerRelevancy prefers scoring the answer directly against the query with
// the cross-encoder; when no cross-encoder is configured or it fails, it
// generates 3 questions the answer would plausibly respond to and scores
// those against the original query instead.
func (e *Evaluator) answerRelevancy(ctx context.Context, query, answer string) (float64, error) {
	if answer == "" {
		return 0, nil
	}

	if e.cross != nil {
		if v, ok := e.crossEncoderMeanScore(ctx, query, []string{answer}); ok {
			return v, nil
		}
	}

	return e.answerRelevancyFromGeneratedQuestions(ctx, query, answer)
}

func (e *Evaluator) answerRelevancyFromGeneratedQuestions(ctx context.Context, query, answer string) (float64, error) {
	prompt := fmt.Sprintf(`Generate exactly 3 questions that the following answer would be a good, complete response to. One question per line, no numbering or extra text.

Answer:
%s

Questions:`, truncate(answer, 2000))

	resp, err := e.judge(ctx, prompt)
	if err != nil {
		return defaultScore, nil
	}

	questions := extractLines(resp, 3)
	if len(questions) == 0 {
		return defaultScore, nil
	}

	if e.cross != nil {
		if v, ok := e.crossEncoderMeanScore(ctx, query, questions); ok {
			return v, nil
		}
	}

	// No cross-encoder available at all: degrade to the same lexical
	// term-coverage measure context recall uses without ground truth.
	return clamp01(termCoverage(query, questions)), nil
}

func (e *Evaluator) contextRecall(ctx context.Context, query string, contexts []string, groundTruth string) (float64, error) {
	if len(contexts) == 0 {
		return 0, nil
	}

	if groundTruth == "" {
		return e.contextRecallFromAspects(ctx, query, contexts), nil
	}

	combined := truncate(strings.Join(contexts, "\n"), 1500)
	prompt := fmt.Sprintf(`Given the ground truth answer and retrieved contexts, evaluate what percentage of information needed for the ground truth is present in the contexts.

Ground Truth: %s

Contexts:
%s

Rate the recall from 0 to 1 where:
- 1.0 = All information needed for the ground truth is in the contexts
- 0.5 = Some important information is present
- 0.0 = Critical information is missing from the contexts

Recall score (0-1):`, groundTruth, combined)

	resp, err := e.judge(ctx, prompt)
	if err != nil {
		return clamp01(termCoverage(query, contexts)), nil
	}
	return clamp01(parseLeadingFloat(resp, 0.5)), nil
}

// contextRecallFromAspects asks the judge to extract up to 5 aspects the
// query expects a complete answer to cover, then scores the fraction of
// those aspects mentioned in any context. It falls back to termCoverage
// when extraction itself fails or yields nothing to check.
func (e *Evaluator) contextRecallFromAspects(ctx context.Context, query string, contexts []string) float64 {
	prompt := fmt.Sprintf(`Extract up to 5 distinct aspects or sub-questions that a complete answer to the following question would need to address. One aspect per line, no numbering or extra text.

Question: %s

Aspects:`, query)

	resp, err := e.judge(ctx, prompt)
	if err != nil {
		return clamp01(termCoverage(query, contexts))
	}

	aspects := extractLines(resp, 5)
	if len(aspects) == 0 {
		return clamp01(termCoverage(query, contexts))
	}

	combined := strings.ToLower(strings.Join(contexts, "\n"))
	var covered int
	for _, a := range aspects {
		if aspectMentioned(a, combined) {
			covered++
		}
	}
	return clamp01(float64(covered) / float64(len(aspects)))
}

// aspectMentioned reports whether aspect is present in combined (already
// lowercased) as a case-insensitive substring, or whether any of the
// aspect's first 3 words appears in combined.
func aspectMentioned(aspect, combined string) bool {
	a := strings.ToLower(strings.TrimSpace(aspect))
	if a == "" {
		return false
	}
	if strings.Contains(combined, a) {
		return true
	}
	words := strings.Fields(a)
	if len(words) > 3 {
		words = words[:3]
	}
	for _, w := range words {
		if strings.Contains(combined, w) {
			return true
		}
	}
	return false
}

// extractLines splits an LLM response into one trimmed, list-marker-stripped
// item per non-empty line, capped at max items (0 means unlimited).
func extractLines(resp string, max int) []string {
	lines := strings.Split(resp, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = stripListPrefix(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		out = append(out, l)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

// stripListPrefix removes a leading "- ", "* ", "1.", or "1)" list marker.
func stripListPrefix(s string) string {
	s = strings.TrimPrefix(s, "- ")
	s = strings.TrimPrefix(s, "* ")
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		s = strings.TrimSpace(s[i+1:])
	}
	return s
}

// termCoverage is the ground-truth-free fallback for context recall: the
// fraction of the query's distinct lowercased terms that appear in at least
// one context.
func termCoverage(query string, contexts []string) float64 {
	queryTerms := map[string]struct{}{}
	for _, t := range strings.Fields(strings.ToLower(query)) {
		queryTerms[t] = struct{}{}
	}
	if len(queryTerms) == 0 {
		return 0.5
	}

	covered := map[string]struct{}{}
	for _, c := range contexts {
		for _, t := range strings.Fields(strings.ToLower(c)) {
			if _, ok := queryTerms[t]; ok {
				covered[t] = struct{}{}
			}
		}
	}
	return float64(len(covered)) / float64(len(queryTerms))
}

// crossEncoderMeanScore scores each text against query with the configured
// cross-encoder, sigmoid-normalizes each raw score, and returns the mean.
// The second return is false if the cross-encoder call itself fails, telling
// the caller to fall back to the LLM judge.
func (e *Evaluator) crossEncoderMeanScore(ctx context.Context, query string, texts []string) (float64, bool) {
	candidates := make([]reranker.Candidate, len(texts))
	for i, t := range texts {
		candidates[i] = reranker.Candidate{Chunk: document.Chunk{Content: t}}
	}

	results, err := e.cross.Rank(reranker.ContextWithQuery(ctx, query), nil, candidates)
	if err != nil || len(results) == 0 {
		return 0, false
	}

	var sum float64
	for _, r := range results {
		sum += sigmoid(float64(r.Score))
	}
	return clamp01(sum / float64(len(results))), true
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (e *Evaluator) judge(ctx context.Context, prompt string) (string, error) {
	if e.llm == nil {
		return "", fmt.Errorf("evaluator: no llm client configured")
	}
	msgs := []*message.Message{message.NewMessage(message.RoleUser, prompt)}
	resp, err := e.llm.Generate(ctx, &agent.GenerateRequest{Messages: msgs})
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Message == nil {
		return "", fmt.Errorf("evaluator: empty judge response")
	}
	return resp.Message.Text(), nil
}

func parseLeadingFloat(s string, def float64) float64 {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return def
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return def
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
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
