package chunking

import "testing"

func TestNewDefaultsToSemanticChunker(t *testing.T) {
	c, err := New("", 512, 50)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := c.(*SemanticChunker); !ok {
		t.Errorf("expected empty strategy to default to *SemanticChunker, got %T", c)
	}
}

func TestNewSelectsMarkdownStrategy(t *testing.T) {
	c, err := New(StrategyMarkdown, 120, 20)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := c.(*SimpleChunker); !ok {
		t.Errorf("expected markdown strategy to build *SimpleChunker, got %T", c)
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	if _, err := New("not-a-real-strategy", 512, 50); err == nil {
		t.Error("expected an error for an unknown strategy")
	}
}
