// Package recordstore persists the two record kinds that live past a
// single request: user feedback and experiment outcomes, each under its
// own TTL, backed by either MongoDB or PostgreSQL.
package recordstore

import (
	"context"
	"time"
)

// FeedbackKind names what a feedback value is rating.
type FeedbackKind string

const (
	FeedbackThumbsUp   FeedbackKind = "thumbs_up"
	FeedbackThumbsDown FeedbackKind = "thumbs_down"
	FeedbackRating     FeedbackKind = "rating"
)

// FeedbackTTL is the retention window for feedback records (§3).
const FeedbackTTL = 30 * 24 * time.Hour

// ExperimentResultTTL is the retention window for experiment outcome
// records (§3).
const ExperimentResultTTL = 7 * 24 * time.Hour

// FeedbackRecord is one piece of user feedback on an answer.
type FeedbackRecord struct {
	ResultID  string
	Kind      FeedbackKind
	Value     float64
	Comment   string
	CreatedAt time.Time
}

// OutcomeRecord is one completed request's experiment outcome, the record
// form of experiment.Outcome kept for ExperimentStats once the in-process
// router's own memory is gone.
type OutcomeRecord struct {
	ExperimentID string
	Variant      string
	Success      bool
	LatencyMS    float64
	CostUSD      float64
	OverallScore float64
	CreatedAt    time.Time
}

// RecordStore is the capability both backends satisfy.
type RecordStore interface {
	SaveFeedback(ctx context.Context, rec FeedbackRecord) error
	SaveOutcome(ctx context.Context, rec OutcomeRecord) error
	ListOutcomes(ctx context.Context, experimentID string) ([]OutcomeRecord, error)
	Close(ctx context.Context) error
}
