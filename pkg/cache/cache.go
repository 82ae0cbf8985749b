// Package cache provides the public caching interface for router responses.
// Backends include a bounded in-memory LRU store and Redis.
package cache

import (
	"context"
	"time"

	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// Type represents the type of cache backend.
type Type string

const (
	TypeLocal Type = "local" // In-memory LRU cache
	TypeRedis Type = "redis" // Redis cache
)

// Cache defines the interface for all cache implementations.
// Entries are stored serialized; decoding failures are reported as errors
// so the caller can drop the entry and proceed as a miss.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the given TTL. A non-positive
	// TTL means the value is already expired: nothing is stored and any
	// existing entry under the key is removed.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// Ping checks if the cache is healthy.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats holds cache statistics for monitoring.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// Entry is a cached chain resolution: the response together with its
// provenance. Entries are never updated in place; a recomputation always
// writes a fresh entry.
type Entry struct {
	Response  *types.ChatResponse `json:"response"`
	Provider  string              `json:"provider"`
	CreatedAt time.Time           `json:"created_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// Expired reports whether the entry's TTL has elapsed at the given time.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// KeyGenerator produces a deterministic fingerprint for a request.
type KeyGenerator interface {
	Generate(req *types.ChatRequest) string
}
