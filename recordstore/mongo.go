package recordstore

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds MongoDB connection configuration for the record store.
type MongoConfig struct {
	URI            string
	Database       string
	FeedbackColl   string
	ExperimentColl string
}

// MongoConfigFromEnv builds a MongoConfig from environment variables,
// defaulting to a local single-node deployment.
func MongoConfigFromEnv() *MongoConfig {
	cfg := &MongoConfig{
		URI:            "mongodb://localhost:27017",
		Database:       "ragcore",
		FeedbackColl:   "feedback",
		ExperimentColl: "experiment_outcomes",
	}
	if v := os.Getenv("RAGCORE_MONGO_URI"); v != "" {
		cfg.URI = v
	}
	if v := os.Getenv("RAGCORE_MONGO_DATABASE"); v != "" {
		cfg.Database = v
	}
	return cfg
}

type mongoFeedback struct {
	ResultID  string    `bson:"result_id"`
	Kind      string    `bson:"kind"`
	Value     float64   `bson:"value"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoOutcome struct {
	ExperimentID string    `bson:"experiment_id"`
	Variant      string    `bson:"variant"`
	Success      bool      `bson:"success"`
	LatencyMS    float64   `bson:"latency_ms"`
	CostUSD      float64   `bson:"cost_usd"`
	OverallScore float64   `bson:"overall_score"`
	CreatedAt    time.Time `bson:"created_at"`
}

// MongoStore implements RecordStore over MongoDB, with TTL indexes pruning
// each collection automatically.
type MongoStore struct {
	client     *mongo.Client
	feedback   *mongo.Collection
	experiment *mongo.Collection
}

// NewMongoStore connects to MongoDB and ensures TTL indexes exist on both
// collections.
func NewMongoStore(ctx context.Context, cfg *MongoConfig) (*MongoStore, error) {
	if cfg == nil {
		cfg = MongoConfigFromEnv()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	store := &MongoStore{
		client:     client,
		feedback:   db.Collection(cfg.FeedbackColl),
		experiment: db.Collection(cfg.ExperimentColl),
	}

	if err := store.ensureTTLIndex(ctx, store.feedback, int32(FeedbackTTL.Seconds())); err != nil {
		return nil, fmt.Errorf("create feedback ttl index: %w", err)
	}
	if err := store.ensureTTLIndex(ctx, store.experiment, int32(ExperimentResultTTL.Seconds())); err != nil {
		return nil, fmt.Errorf("create experiment ttl index: %w", err)
	}

	return store, nil
}

func (s *MongoStore) ensureTTLIndex(ctx context.Context, coll *mongo.Collection, ttlSeconds int32) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(ttlSeconds),
	}
	_, err := coll.Indexes().CreateOne(ctx, indexModel)
	return err
}

// SaveFeedback inserts a feedback record.
func (s *MongoStore) SaveFeedback(ctx context.Context, rec FeedbackRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	doc := mongoFeedback{
		ResultID:  rec.ResultID,
		Kind:      string(rec.Kind),
		Value:     rec.Value,
		Comment:   rec.Comment,
		CreatedAt: rec.CreatedAt,
	}
	_, err := s.feedback.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// SaveOutcome inserts an experiment outcome record.
func (s *MongoStore) SaveOutcome(ctx context.Context, rec OutcomeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	doc := mongoOutcome{
		ExperimentID: rec.ExperimentID,
		Variant:      rec.Variant,
		Success:      rec.Success,
		LatencyMS:    rec.LatencyMS,
		CostUSD:      rec.CostUSD,
		OverallScore: rec.OverallScore,
		CreatedAt:    rec.CreatedAt,
	}
	_, err := s.experiment.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// ListOutcomes returns outcomes for an experiment, most recent first.
func (s *MongoStore) ListOutcomes(ctx context.Context, experimentID string) ([]OutcomeRecord, error) {
	cursor, err := s.experiment.Find(ctx,
		bson.M{"experiment_id": experimentID},
		options.Find().SetSort(bson.M{"created_at": -1}),
	)
	if err != nil {
		return nil, fmt.Errorf("find outcomes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoOutcome
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode outcomes: %w", err)
	}

	out := make([]OutcomeRecord, len(docs))
	for i, d := range docs {
		out[i] = OutcomeRecord{
			ExperimentID: d.ExperimentID,
			Variant:      d.Variant,
			Success:      d.Success,
			LatencyMS:    d.LatencyMS,
			CostUSD:      d.CostUSD,
			OverallScore: d.OverallScore,
			CreatedAt:    d.CreatedAt,
		}
	}
	return out, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ RecordStore = (*MongoStore)(nil)
