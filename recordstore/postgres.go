package recordstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	cfg "github.com/wirerag/ragcore/config"
	ragerrors "github.com/wirerag/ragcore/errors"
)

// PostgresConfig holds PostgreSQL connection configuration for the record
// store.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresConfigFromEnv loads configuration from environment variables,
// falling back to sensible local defaults.
func PostgresConfigFromEnv() *PostgresConfig {
	port := 5432
	if v := os.Getenv("RAGCORE_POSTGRES_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	return &PostgresConfig{
		Host:     getenvDefault("RAGCORE_POSTGRES_HOST", "localhost"),
		Port:     port,
		User:     getenvDefault("RAGCORE_POSTGRES_USER", "postgres"),
		Password: os.Getenv("RAGCORE_POSTGRES_PASSWORD"),
		DBName:   getenvDefault("RAGCORE_POSTGRES_DB", "ragcore"),
		SSLMode:  getenvDefault("RAGCORE_POSTGRES_SSLMODE", "disable"),
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// PostgresStore implements RecordStore over PostgreSQL. Postgres has no
// native TTL; expiry is enforced by filtering reads on created_at and by a
// periodic DeleteExpired sweep the caller schedules.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL and ensures both tables exist.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	if config == nil {
		config = PostgresConfigFromEnv()
	}

	if err := cfg.ValidatePostgresConfig(config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode); err != nil {
		return nil, ragerrors.New(ragerrors.KindConfiguration, fmt.Errorf("invalid postgres configuration: %w", err))
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS feedback_records (
		id SERIAL PRIMARY KEY,
		result_id VARCHAR(255) NOT NULL,
		kind VARCHAR(32) NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		comment TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback_records(created_at);
	CREATE INDEX IF NOT EXISTS idx_feedback_result_id ON feedback_records(result_id);

	CREATE TABLE IF NOT EXISTS experiment_outcomes (
		id SERIAL PRIMARY KEY,
		experiment_id VARCHAR(255) NOT NULL,
		variant VARCHAR(255) NOT NULL,
		success BOOLEAN NOT NULL,
		latency_ms DOUBLE PRECISION NOT NULL,
		cost_usd DOUBLE PRECISION NOT NULL,
		overall_score DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_created_at ON experiment_outcomes(created_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_experiment_id ON experiment_outcomes(experiment_id);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// SaveFeedback inserts a feedback record.
func (s *PostgresStore) SaveFeedback(ctx context.Context, rec FeedbackRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback_records (result_id, kind, value, comment, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ResultID, string(rec.Kind), rec.Value, rec.Comment, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// SaveOutcome inserts an experiment outcome record.
func (s *PostgresStore) SaveOutcome(ctx context.Context, rec OutcomeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO experiment_outcomes (experiment_id, variant, success, latency_ms, cost_usd, overall_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ExperimentID, rec.Variant, rec.Success, rec.LatencyMS, rec.CostUSD, rec.OverallScore, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// ListOutcomes returns non-expired outcomes for an experiment, most recent
// first.
func (s *PostgresStore) ListOutcomes(ctx context.Context, experimentID string) ([]OutcomeRecord, error) {
	cutoff := time.Now().Add(-ExperimentResultTTL)
	rows, err := s.db.QueryContext(ctx,
		`SELECT experiment_id, variant, success, latency_ms, cost_usd, overall_score, created_at
		 FROM experiment_outcomes WHERE experiment_id = $1 AND created_at >= $2 ORDER BY created_at DESC`,
		experimentID, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRecord
	for rows.Next() {
		var rec OutcomeRecord
		if err := rows.Scan(&rec.ExperimentID, &rec.Variant, &rec.Success, &rec.LatencyMS, &rec.CostUSD, &rec.OverallScore, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteExpired removes feedback and outcome rows past their TTL. Postgres
// has no background expiry so a caller schedules this periodically.
func (s *PostgresStore) DeleteExpired(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM feedback_records WHERE created_at < $1`, time.Now().Add(-FeedbackTTL)); err != nil {
		return fmt.Errorf("delete expired feedback: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM experiment_outcomes WHERE created_at < $1`, time.Now().Add(-ExperimentResultTTL)); err != nil {
		return fmt.Errorf("delete expired outcomes: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close(ctx context.Context) error {
	return s.db.Close()
}

var _ RecordStore = (*PostgresStore)(nil)
