package config

import "testing"

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	c := Default()

	if c.ChunkSize != 512 || c.ChunkOverlap != 50 {
		t.Errorf("chunk defaults = %d/%d, want 512/50", c.ChunkSize, c.ChunkOverlap)
	}
	if c.BM25K1 != 1.2 || c.BM25B != 0.75 {
		t.Errorf("bm25 defaults = %v/%v, want 1.2/0.75", c.BM25K1, c.BM25B)
	}
	if c.RRFK != 60 {
		t.Errorf("rrf_k default = %d, want 60", c.RRFK)
	}
	if len(c.ABVariants) != 4 || len(c.ABSplit) != 4 {
		t.Fatalf("expected 4 ab variants/splits, got %d/%d", len(c.ABVariants), len(c.ABSplit))
	}
	var sum float64
	for _, s := range c.ABSplit {
		sum += s
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("ab_split sums to %v, want ~1.0", sum)
	}
	if c.CacheTTLSeconds != 3600 {
		t.Errorf("cache_ttl_seconds default = %d, want 3600", c.CacheTTLSeconds)
	}
	if c.FeedbackTTLDays != 30 || c.ExperimentResultTTLDays != 7 {
		t.Errorf("record ttl defaults = %d/%d, want 30/7", c.FeedbackTTLDays, c.ExperimentResultTTLDays)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "256")
	t.Setenv("BM25_K1", "1.6")
	t.Setenv("AB_VARIANTS", "baseline,hybrid")

	c := Load()
	if c.ChunkSize != 256 {
		t.Errorf("expected CHUNK_SIZE override to take effect, got %d", c.ChunkSize)
	}
	if c.BM25K1 != 1.6 {
		t.Errorf("expected BM25_K1 override to take effect, got %v", c.BM25K1)
	}
	if len(c.ABVariants) != 2 || c.ABVariants[1] != "hybrid" {
		t.Errorf("expected AB_VARIANTS override to take effect, got %v", c.ABVariants)
	}
}

func TestValidateCatchesOutOfRangeValues(t *testing.T) {
	c := Default()
	c.ChunkSize = 0
	c.BM25B = 2
	c.CacheBackend = "memcached"

	errs := c.Validate()
	if len(errs) == 0 {
		t.Fatal("expected validation errors for invalid config")
	}
}

func TestCostTableTokenCostFallsBackToDefault(t *testing.T) {
	ct := CostTable{PerLLMToken: 0.001, PerModelTokenCost: map[string]float64{"gpt-4": 0.01}}
	if got := ct.TokenCost("gpt-4"); got != 0.01 {
		t.Errorf("expected model override 0.01, got %v", got)
	}
	if got := ct.TokenCost("unknown-model"); got != 0.001 {
		t.Errorf("expected default 0.001, got %v", got)
	}
}

func TestSplitTokensIs60_40(t *testing.T) {
	input, output := SplitTokens(100)
	if input != 60 || output != 40 {
		t.Errorf("SplitTokens(100) = %d/%d, want 60/40", input, output)
	}
}
