// Package caches provides convenience constructors for the cache backends
// used in library mode.
package caches

import (
	"github.com/sentinelmux/sentinelmux/caches/redis"
	intcache "github.com/sentinelmux/sentinelmux/internal/cache"
	"github.com/sentinelmux/sentinelmux/pkg/cache"
)

// Type re-exports the backend type for convenience.
type Type = cache.Type

// Cache type constants.
const (
	TypeLocal = cache.TypeLocal
	TypeRedis = cache.TypeRedis
)

// MemoryConfig configures the in-memory LRU backend.
type MemoryConfig = intcache.MemoryCacheConfig

// RedisConfig configures the Redis backend.
type RedisConfig = redis.Config

// NewMemory creates an in-memory LRU cache.
func NewMemory(cfg MemoryConfig) cache.Cache {
	return intcache.NewMemoryCache(cfg)
}

// NewMemoryDefault creates an in-memory LRU cache with default settings.
func NewMemoryDefault() cache.Cache {
	return intcache.NewMemoryCache(intcache.DefaultMemoryCacheConfig())
}

// NewRedis creates a Redis cache. It fails when the server cannot be
// reached at construction time.
func NewRedis(cfg RedisConfig) (cache.Cache, error) {
	return redis.New(cfg)
}
