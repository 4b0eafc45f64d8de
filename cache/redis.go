package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig mirrors the shape of a connection config elsewhere in this
// module: address, password, db index, key prefix. It has no TTL field.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis implements Cache on top of a redis.Client. Counters are
// process-local (not shared across instances hitting the same Redis).
type Redis struct {
	client *redis.Client
	prefix string
	hits   int64
	misses int64
}

// NewRedis constructs a Redis-backed cache. A nil config connects to
// localhost:6379 with no password, db 0.
func NewRedis(config *RedisConfig) *Redis {
	if config == nil {
		config = &RedisConfig{Addr: "localhost:6379", Prefix: "ragcore:cache:"}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return &Redis{client: client, prefix: config.Prefix}
}

// Get returns the cached value for key, if present.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		atomic.AddInt64(&r.misses, 1)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	atomic.AddInt64(&r.hits, 1)
	return val, true, nil
}

// Set stores value under key with the given TTL (0 means no expiry).
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

// Hits returns the cumulative hit count observed by this process.
func (r *Redis) Hits() int64 {
	return atomic.LoadInt64(&r.hits)
}

// Misses returns the cumulative miss count observed by this process.
func (r *Redis) Misses() int64 {
	return atomic.LoadInt64(&r.misses)
}

// Ping checks the Redis connection is alive.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)
