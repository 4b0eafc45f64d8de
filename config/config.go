package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds every recognized option for the retrieval/synthesis stack.
// Every field has a default applied by Load when the corresponding
// environment variable is unset.
type Config struct {
	ChunkSize     int
	ChunkOverlap  int
	ChunkStrategy string

	EmbeddingModel         string
	EmbeddingDim           int
	EmbeddingBatchSize     int

	BM25K1 float64
	BM25B  float64

	SearchTopK  int
	FinalTopK   int
	HybridAlpha float64
	RRFK        int

	RerankerModel string
	RerankerTopK  int

	MaxContextLength int

	LLMModel    string
	Temperature float64
	MaxTokens   int

	ABVariants   []string
	ABSplit      []float64
	ABConfidence float64

	CacheTTLSeconds int

	RagasEnabled              bool
	RagasThresholdRelevancy   float64
	RagasThresholdFaithfulness float64
	RagasThresholdAnswerRel   float64
	RagasThresholdRecall      float64

	CostTable CostTable

	QueryExpansionEnabled bool

	BanditEnabled          bool
	BanditExplorationRate  float64

	FeedbackTTLDays         int
	ExperimentResultTTLDays int

	LogFormat string
	LogLevel  string

	OTelServiceName       string
	OTelExporterEndpoint  string

	CacheBackend       string
	RecordStoreBackend string
}

// CostTable prices each unit of work that contributes to an Answer's
// cost_usd; a model-keyed override lets different LLM models have their own
// per-token price, falling back to a flat default otherwise.
type CostTable struct {
	PerEmbedding float64
	PerVecSearch float64
	PerRerank    float64
	PerLLMToken  float64

	PerModelTokenCost map[string]float64
}

// TokenCost returns the per-token price for model, falling back to the
// table's default when the model has no override.
func (t CostTable) TokenCost(model string) float64 {
	if t.PerModelTokenCost != nil {
		if v, ok := t.PerModelTokenCost[model]; ok {
			return v
		}
	}
	return t.PerLLMToken
}

// SplitTokens divides a total token count 60/40 between input and output
// when a provider doesn't report the split itself.
func SplitTokens(total int) (input, output int) {
	input = total * 60 / 100
	output = total - input
	return input, output
}

// Default returns a Config with every value set to the spec's documented
// default.
func Default() Config {
	return Config{
		ChunkSize:     512,
		ChunkOverlap:  50,
		ChunkStrategy: "semantic",

		EmbeddingModel:     "sentence-transformers/all-MiniLM-L6-v2",
		EmbeddingDim:       384,
		EmbeddingBatchSize: 32,

		BM25K1: 1.2,
		BM25B:  0.75,

		SearchTopK:  20,
		FinalTopK:   5,
		HybridAlpha: 0.5,
		RRFK:        60,

		RerankerModel: "cross-encoder/ms-marco-MiniLM-L-6-v2",
		RerankerTopK:  10,

		MaxContextLength: 2048,

		LLMModel:    "gpt-3.5-turbo",
		Temperature: 0.7,
		MaxTokens:   512,

		ABVariants:   []string{"baseline", "reranked", "hybrid", "finetuned"},
		ABSplit:      []float64{0.25, 0.25, 0.25, 0.25},
		ABConfidence: 0.95,

		CacheTTLSeconds: 3600,

		RagasEnabled:               true,
		RagasThresholdRelevancy:    0.8,
		RagasThresholdFaithfulness: 0.8,
		RagasThresholdAnswerRel:    0.8,
		RagasThresholdRecall:       0.7,

		QueryExpansionEnabled: false,

		BanditEnabled:         false,
		BanditExplorationRate: 0.1,

		FeedbackTTLDays:         30,
		ExperimentResultTTLDays: 7,

		LogFormat: "json",
		LogLevel:  "info",

		OTelServiceName: "ragcore",

		CacheBackend:       "inmemory",
		RecordStoreBackend: "mongo",
	}
}

// Load starts from Default and overrides any field whose environment
// variable is set, matching the teacher's plain os.Getenv configuration
// style (no config-file library appears anywhere in the retrieved pack).
func Load() Config {
	c := Default()

	c.ChunkSize = envInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = envInt("CHUNK_OVERLAP", c.ChunkOverlap)
	c.ChunkStrategy = envString("CHUNK_STRATEGY", c.ChunkStrategy)

	c.EmbeddingModel = envString("EMBEDDING_MODEL", c.EmbeddingModel)
	c.EmbeddingDim = envInt("EMBEDDING_DIM", c.EmbeddingDim)
	c.EmbeddingBatchSize = envInt("EMBEDDING_BATCH_SIZE", c.EmbeddingBatchSize)

	c.BM25K1 = envFloat("BM25_K1", c.BM25K1)
	c.BM25B = envFloat("BM25_B", c.BM25B)

	c.SearchTopK = envInt("SEARCH_TOP_K", c.SearchTopK)
	c.FinalTopK = envInt("FINAL_TOP_K", c.FinalTopK)
	c.HybridAlpha = envFloat("HYBRID_ALPHA", c.HybridAlpha)
	c.RRFK = envInt("RRF_K", c.RRFK)

	c.RerankerModel = envString("RERANKER_MODEL", c.RerankerModel)
	c.RerankerTopK = envInt("RERANKER_TOP_K", c.RerankerTopK)

	c.MaxContextLength = envInt("MAX_CONTEXT_LENGTH", c.MaxContextLength)

	c.LLMModel = envString("LLM_MODEL", c.LLMModel)
	c.Temperature = envFloat("TEMPERATURE", c.Temperature)
	c.MaxTokens = envInt("MAX_TOKENS", c.MaxTokens)

	if v := os.Getenv("AB_VARIANTS"); v != "" {
		c.ABVariants = strings.Split(v, ",")
	}
	if v := os.Getenv("AB_SPLIT"); v != "" {
		c.ABSplit = parseFloatList(v, c.ABSplit)
	}
	c.ABConfidence = envFloat("AB_CONFIDENCE", c.ABConfidence)

	c.CacheTTLSeconds = envInt("CACHE_TTL_SECONDS", c.CacheTTLSeconds)

	c.RagasEnabled = envBool("RAGAS_ENABLED", c.RagasEnabled)
	c.RagasThresholdRelevancy = envFloat("RAGAS_THRESHOLD_CONTEXT_RELEVANCY", c.RagasThresholdRelevancy)
	c.RagasThresholdFaithfulness = envFloat("RAGAS_THRESHOLD_ANSWER_FAITHFULNESS", c.RagasThresholdFaithfulness)
	c.RagasThresholdAnswerRel = envFloat("RAGAS_THRESHOLD_ANSWER_RELEVANCY", c.RagasThresholdAnswerRel)
	c.RagasThresholdRecall = envFloat("RAGAS_THRESHOLD_CONTEXT_RECALL", c.RagasThresholdRecall)

	c.CostTable.PerEmbedding = envFloat("COST_PER_EMBEDDING", c.CostTable.PerEmbedding)
	c.CostTable.PerVecSearch = envFloat("COST_PER_VEC_SEARCH", c.CostTable.PerVecSearch)
	c.CostTable.PerRerank = envFloat("COST_PER_RERANK", c.CostTable.PerRerank)
	c.CostTable.PerLLMToken = envFloat("COST_PER_LLM_TOKEN", c.CostTable.PerLLMToken)

	c.QueryExpansionEnabled = envBool("QUERY_EXPANSION_ENABLED", c.QueryExpansionEnabled)

	c.BanditEnabled = envBool("BANDIT_ENABLED", c.BanditEnabled)
	c.BanditExplorationRate = envFloat("BANDIT_EXPLORATION_RATE", c.BanditExplorationRate)

	c.FeedbackTTLDays = envInt("FEEDBACK_TTL_DAYS", c.FeedbackTTLDays)
	c.ExperimentResultTTLDays = envInt("EXPERIMENT_RESULT_TTL_DAYS", c.ExperimentResultTTLDays)

	c.LogFormat = envString("LOG_FORMAT", c.LogFormat)
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)

	c.OTelServiceName = envString("OTEL_SERVICE_NAME", c.OTelServiceName)
	c.OTelExporterEndpoint = envString("OTEL_EXPORTER_ENDPOINT", c.OTelExporterEndpoint)

	c.CacheBackend = envString("CACHE_BACKEND", c.CacheBackend)
	c.RecordStoreBackend = envString("RECORD_STORE_BACKEND", c.RecordStoreBackend)

	return c
}

// Validate runs the shared Validator over the fields with documented
// ranges, returning every violation found rather than stopping at the
// first one.
func (c Config) Validate() []ValidationError {
	v := NewValidator()
	v.RequirePositive("chunk_size", c.ChunkSize)
	v.ValidateRange("chunk_overlap", c.ChunkOverlap, 0, c.ChunkSize-1)
	v.RequirePositive("embedding_dim", c.EmbeddingDim)
	v.RequirePositive("embedding_batch_size", c.EmbeddingBatchSize)
	v.ValidateFloatRange("bm25_b", c.BM25B, 0, 1)
	v.RequirePositive("search_top_k", c.SearchTopK)
	v.RequirePositive("final_top_k", c.FinalTopK)
	v.ValidateFloatRange("hybrid_alpha", c.HybridAlpha, 0, 1)
	v.ValidateFloatRange("ab_confidence", c.ABConfidence, 0, 1)
	v.RequirePositive("cache_ttl_seconds", c.CacheTTLSeconds)
	v.ValidateOneOf("cache_backend", c.CacheBackend, "inmemory", "redis")
	v.ValidateOneOf("record_store_backend", c.RecordStoreBackend, "mongo", "postgres")
	return v.errors
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func parseFloatList(v string, def []float64) []float64 {
	parts := strings.Split(v, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return def
		}
		out = append(out, f)
	}
	return out
}
