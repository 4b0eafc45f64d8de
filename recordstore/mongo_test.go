package recordstore

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestMongoStore requires a running MongoDB server. Set RAGCORE_TEST_MONGODB_URI
// to run it against a real database.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("RAGCORE_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("RAGCORE_TEST_MONGODB_URI not set, skipping MongoDB record store tests")
	}

	ctx := context.Background()
	store, err := NewMongoStore(ctx, &MongoConfig{
		URI:            uri,
		Database:       "ragcore_test",
		FeedbackColl:   "feedback_test",
		ExperimentColl: "experiment_outcomes_test",
	})
	if err != nil {
		t.Skipf("failed to connect to MongoDB: %v", err)
	}
	defer store.Close(ctx)

	t.Run("save and list outcomes", func(t *testing.T) {
		rec := OutcomeRecord{
			ExperimentID: "exp-1",
			Variant:      "hybrid",
			Success:      true,
			LatencyMS:    120,
			CostUSD:      0.002,
			OverallScore: 0.8,
			CreatedAt:    time.Now(),
		}
		if err := store.SaveOutcome(ctx, rec); err != nil {
			t.Fatalf("SaveOutcome failed: %v", err)
		}

		outcomes, err := store.ListOutcomes(ctx, "exp-1")
		if err != nil {
			t.Fatalf("ListOutcomes failed: %v", err)
		}
		if len(outcomes) == 0 {
			t.Fatal("expected at least one outcome")
		}
		if outcomes[0].Variant != "hybrid" {
			t.Errorf("expected variant hybrid, got %q", outcomes[0].Variant)
		}
	})

	t.Run("save feedback", func(t *testing.T) {
		rec := FeedbackRecord{
			ResultID:  "ans-1",
			Kind:      FeedbackThumbsUp,
			Value:     1,
			CreatedAt: time.Now(),
		}
		if err := store.SaveFeedback(ctx, rec); err != nil {
			t.Errorf("SaveFeedback failed: %v", err)
		}
	})
}
