package cache

import (
	"context"
	"testing"
	"time"
)

func TestNormalizeQueryCollapsesWhitespaceAndCase(t *testing.T) {
	cases := map[string]string{
		"What is Hybrid Search?":     "what is hybrid search",
		"  multiple   spaces  here ": "multiple spaces here",
		"trailing marks!!!":          "trailing marks",
		"“curly quotes”":             "\"curly quotes\"",
	}
	for in, want := range cases {
		if got := NormalizeQuery(in); got != want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeyIsStableAndNamespaced(t *testing.T) {
	params := map[string]any{"variant": "hybrid", "final_k": 5}
	k1 := Key("answer", NormalizeQuery("What is hybrid search?"), params)
	k2 := Key("answer", NormalizeQuery("what is hybrid search"), params)
	if k1 != k2 {
		t.Errorf("expected stable key across normalized-equivalent queries, got %q != %q", k1, k2)
	}
	if len(k1) != len("answer:")+16 {
		t.Errorf("expected 16 hex chars after namespace prefix, got %q (len %d)", k1, len(k1))
	}

	k3 := Key("answer", NormalizeQuery("what is hybrid search"), map[string]any{"variant": "baseline", "final_k": 5})
	if k1 == k3 {
		t.Error("expected different params to produce different keys")
	}
}

func TestKeyParamOrderDoesNotAffectResult(t *testing.T) {
	q := NormalizeQuery("test query")
	a := Key("ns", q, map[string]any{"a": 1, "b": 2})
	b := Key("ns", q, map[string]any{"b": 2, "a": 1})
	if a != b {
		t.Error("expected map key iteration order not to affect the resulting cache key")
	}
}

func TestInMemoryGetSetRoundTrip(t *testing.T) {
	c := NewInMemory()
	ctx := context.Background()

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Error("expected miss on empty cache")
	}
	if c.Misses() != 1 {
		t.Errorf("expected 1 miss recorded, got %d", c.Misses())
	}

	if err := c.Set(ctx, "k", "v", time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || val != "v" {
		t.Fatalf("Get after Set = %q, %v, %v; want v, true, nil", val, ok, err)
	}
	if c.Hits() != 1 {
		t.Errorf("expected 1 hit recorded, got %d", c.Hits())
	}
}

func TestInMemoryEntryExpiresAfterTTL(t *testing.T) {
	c := NewInMemory()
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected entry to have expired")
	}
}

func TestInMemoryZeroTTLNeverExpires(t *testing.T) {
	c := NewInMemory()
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Error("expected zero-TTL entry to persist")
	}
}
