package recordstore

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestPostgresStore requires a running PostgreSQL server. Set
// RAGCORE_TEST_POSTGRES_DSN-style env vars (see PostgresConfigFromEnv) to run
// it against a real database.
func TestPostgresStore(t *testing.T) {
	if os.Getenv("RAGCORE_TEST_POSTGRES") == "" {
		t.Skip("RAGCORE_TEST_POSTGRES not set, skipping Postgres record store tests")
	}

	config := PostgresConfigFromEnv()
	config.DBName = "ragcore_test"

	store, err := NewPostgresStore(config)
	if err != nil {
		t.Skipf("failed to connect to Postgres: %v", err)
	}
	defer store.Close(context.Background())

	ctx := context.Background()

	t.Run("save and list outcomes", func(t *testing.T) {
		rec := OutcomeRecord{
			ExperimentID: "exp-pg-1",
			Variant:      "baseline",
			Success:      true,
			LatencyMS:    80,
			CostUSD:      0.001,
			OverallScore: 0.6,
			CreatedAt:    time.Now(),
		}
		if err := store.SaveOutcome(ctx, rec); err != nil {
			t.Fatalf("SaveOutcome failed: %v", err)
		}

		outcomes, err := store.ListOutcomes(ctx, "exp-pg-1")
		if err != nil {
			t.Fatalf("ListOutcomes failed: %v", err)
		}
		if len(outcomes) == 0 {
			t.Fatal("expected at least one outcome")
		}
	})

	t.Run("delete expired removes nothing fresh", func(t *testing.T) {
		if err := store.DeleteExpired(ctx); err != nil {
			t.Errorf("DeleteExpired failed: %v", err)
		}
		outcomes, err := store.ListOutcomes(ctx, "exp-pg-1")
		if err != nil {
			t.Fatalf("ListOutcomes failed: %v", err)
		}
		if len(outcomes) == 0 {
			t.Error("expected fresh outcome to survive DeleteExpired")
		}
	})
}
