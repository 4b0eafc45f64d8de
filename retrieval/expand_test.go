package retrieval

import "testing"

func TestExpandQueryAddsQuestionVariantsForNonQuestions(t *testing.T) {
	got := ExpandQuery("hybrid search")
	want := []string{"hybrid search", "What is hybrid search?", "How does hybrid search work?"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExpandQuerySkipsQuestionVariantsForExistingQuestions(t *testing.T) {
	got := ExpandQuery("what is hybrid search?")
	if len(got) != 1 || got[0] != "what is hybrid search?" {
		t.Errorf("expected only original query preserved, got %v", got)
	}
}

func TestExpandQueryAddsTermSubQueryForLongerQueries(t *testing.T) {
	got := ExpandQuery("explain hybrid retrieval systems in depth")
	last := got[len(got)-1]
	if last != "explain hybrid retrieval systems depth" {
		t.Errorf("expected important-term sub-query, got %q", last)
	}
}

func TestExpandQuerySkipsSubQueryWhenFewerThanTwoImportantTerms(t *testing.T) {
	got := ExpandQuery("is it a cat or a dog")
	for _, q := range got {
		if q == "cat dog" {
			t.Errorf("did not expect a sub-query variant, got %v", got)
		}
	}
}

func TestReformulateQueryPrependsContext(t *testing.T) {
	if got := ReformulateQuery("and what about vectors?", "we discussed BM25 scoring."); got != "we discussed BM25 scoring. and what about vectors?" {
		t.Errorf("unexpected reformulation: %q", got)
	}
}

func TestReformulateQueryNoContextReturnsOriginal(t *testing.T) {
	if got := ReformulateQuery("what is bm25?", ""); got != "what is bm25?" {
		t.Errorf("expected unchanged query, got %q", got)
	}
}
