// Package cache implements the answer cache (C12): a normalized-query keyed
// store with TTL and hit/miss counters, satisfied by both an in-memory
// default and a Redis-backed implementation.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// Cache is the interface both backends satisfy.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Hits() int64
	Misses() int64
}

// NormalizeQuery lower-cases, collapses internal whitespace, strips
// trailing "?!.", and unifies quote characters, matching the normalization
// the spec requires for cache hit rate.
func NormalizeQuery(query string) string {
	q := strings.ToLower(query)
	q = strings.ReplaceAll(q, "‘", "'")
	q = strings.ReplaceAll(q, "’", "'")
	q = strings.ReplaceAll(q, "“", "\"")
	q = strings.ReplaceAll(q, "”", "\"")
	q = strings.Join(strings.Fields(q), " ")
	q = strings.TrimRight(q, "?!.")
	return q
}

// Key builds a namespaced cache key from a normalized query and a params
// map: md5(normalized_query || sorted_params_json), truncated to 16 hex
// chars, prefixed with namespace.
func Key(namespace, normalizedQuery string, params map[string]any) string {
	sortedParams := marshalSorted(params)
	sum := md5.Sum([]byte(normalizedQuery + sortedParams))
	digest := hex.EncodeToString(sum[:])[:16]
	return namespace + ":" + digest
}

func marshalSorted(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		v, _ := json.Marshal(params[k])
		b.WriteByte('"')
		b.WriteString(k)
		b.WriteString("\":")
		b.Write(v)
	}
	b.WriteByte('}')
	return b.String()
}

// InMemory is the default Cache backend: a mutex-protected map with
// per-entry expiry checked lazily on Get.
type InMemory struct {
	mu      sync.Mutex
	entries map[string]entry
	hits    int64
	misses  int64
}

type entry struct {
	value    string
	expireAt time.Time
}

// NewInMemory constructs an empty in-memory cache.
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]entry)}
}

// Get returns the value for key if present and unexpired.
func (c *InMemory) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || (!e.expireAt.IsZero() && time.Now().After(e.expireAt)) {
		c.misses++
		if ok {
			delete(c.entries, key)
		}
		return "", false, nil
	}
	c.hits++
	return e.value, true, nil
}

// Set stores value under key with the given TTL (0 means no expiry).
func (c *InMemory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expireAt time.Time
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}
	c.entries[key] = entry{value: value, expireAt: expireAt}
	return nil
}

// Hits returns the cumulative hit count.
func (c *InMemory) Hits() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// Misses returns the cumulative miss count.
func (c *InMemory) Misses() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}

var _ Cache = (*InMemory)(nil)
