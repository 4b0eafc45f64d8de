package experiment

import (
	"fmt"
	"math"
	"testing"
)

func TestAssignIsStableAcrossRepeatedCalls(t *testing.T) {
	variants := []string{"baseline", "reranked", "hybrid", "finetuned"}
	split := []float64{0.25, 0.25, 0.25, 0.25}

	first := Assign("user_42", "default", variants, split)
	for i := 0; i < 1000; i++ {
		got := Assign("user_42", "default", variants, split)
		if got != first {
			t.Fatalf("call %d: expected stable assignment %q, got %q", i, first, got)
		}
	}
}

func TestAssignFrequenciesMatchConfiguredSplitWithinTolerance(t *testing.T) {
	variants := []string{"baseline", "reranked", "hybrid", "finetuned"}
	split := []float64{0.25, 0.25, 0.25, 0.25}

	counts := make(map[string]int, len(variants))
	const n = 40000
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("user_%d", i)
		v := Assign(id, "default", variants, split)
		counts[v]++
	}

	for i, variant := range variants {
		got := float64(counts[variant]) / float64(n)
		want := split[i]
		if math.Abs(got-want) > 0.1 {
			t.Errorf("variant %s: observed frequency %v, want within 0.1 of %v", variant, got, want)
		}
	}
}

func TestRouterStatsComputesRatesAndInterval(t *testing.T) {
	r := New(Config{
		ExperimentID: "default",
		Variants:     []string{"baseline", "hybrid"},
		Split:        []float64{0.5, 0.5},
		Confidence:   0.95,
	})

	for i := 0; i < 10; i++ {
		r.RecordOutcome(Outcome{Variant: "baseline", Success: i < 5, LatencyMS: 100, CostUSD: 0.01, OverallScore: 0.5})
	}
	for i := 0; i < 10; i++ {
		r.RecordOutcome(Outcome{Variant: "hybrid", Success: i < 9, LatencyMS: 120, CostUSD: 0.02, OverallScore: 0.8})
	}

	stats := r.Stats()
	if len(stats) != 2 {
		t.Fatalf("expected 2 variant stats, got %d", len(stats))
	}

	byVariant := make(map[string]Stats, len(stats))
	for _, s := range stats {
		byVariant[s.Variant] = s
	}

	baseline := byVariant["baseline"]
	if baseline.SuccessRate != 0.5 {
		t.Errorf("baseline success rate = %v, want 0.5", baseline.SuccessRate)
	}
	if baseline.CI95Lower < 0 || baseline.CI95Upper > 1 || baseline.CI95Lower > baseline.CI95Upper {
		t.Errorf("invalid baseline CI: [%v, %v]", baseline.CI95Lower, baseline.CI95Upper)
	}

	hybrid := byVariant["hybrid"]
	if hybrid.SuccessRate != 0.9 {
		t.Errorf("hybrid success rate = %v, want 0.9", hybrid.SuccessRate)
	}
}

func TestWilsonScoreIntervalBounded(t *testing.T) {
	lower, upper := WilsonScoreInterval(9, 10, 0.95)
	if lower < 0 || upper > 1 || lower > upper {
		t.Errorf("invalid interval: [%v, %v]", lower, upper)
	}

	lower, upper = WilsonScoreInterval(0, 0, 0.95)
	if lower != 0 || upper != 0 {
		t.Errorf("expected zero interval for zero trials, got [%v, %v]", lower, upper)
	}
}

func TestWinningVariantRequiresSignificance(t *testing.T) {
	stats := []Stats{
		{Variant: "baseline", AvgOverallScore: 0.5, Significant: false},
		{Variant: "hybrid", AvgOverallScore: 0.9, Significant: false},
	}
	if _, ok := WinningVariant(stats); ok {
		t.Error("expected no winner when nothing is significant")
	}

	stats[1].Significant = true
	winner, ok := WinningVariant(stats)
	if !ok || winner != "hybrid" {
		t.Errorf("expected hybrid to win, got %q, ok=%v", winner, ok)
	}
}
