package prompt

import (
	"strings"
	"testing"

	"github.com/wirerag/ragcore/message"
	"github.com/wirerag/ragcore/rag/document"
	"github.com/wirerag/ragcore/retrieval"
)

func TestAssembleProducesTwoMessages(t *testing.T) {
	passages := []retrieval.Passage{
		{Chunk: document.Chunk{Content: "BM25 is a lexical ranking function."}},
		{Chunk: document.Chunk{Content: "Vector search uses dense embeddings."}},
	}

	msgs := Assemble("what is hybrid search?", passages)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != message.RoleSystem {
		t.Errorf("expected first message to be system role, got %s", msgs[0].Role)
	}
	if msgs[1].Role != message.RoleUser {
		t.Errorf("expected second message to be user role, got %s", msgs[1].Role)
	}
	if !strings.Contains(msgs[1].Text(), "what is hybrid search?") {
		t.Errorf("expected user message to contain the question")
	}
	if !strings.Contains(msgs[1].Text(), "[1]") {
		t.Errorf("expected user message to contain a numbered source marker")
	}
}

func TestAssembleTruncatesAtCharBudget(t *testing.T) {
	longPassage := strings.Repeat("x", 5000)
	passages := []retrieval.Passage{
		{Chunk: document.Chunk{Content: longPassage}},
	}

	msgs := Assemble("q", passages, WithCharBudget(100))
	if !strings.Contains(msgs[1].Text(), "...") {
		t.Error("expected truncated context to end with an ellipsis marker")
	}
}

func TestAssembleEmptyPassagesStillProducesQuestion(t *testing.T) {
	msgs := Assemble("q", nil)
	if !strings.Contains(msgs[1].Text(), "Question: q") {
		t.Errorf("expected question to be present even with no passages, got %q", msgs[1].Text())
	}
}
