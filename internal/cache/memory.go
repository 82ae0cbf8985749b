package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	pkgcache "github.com/sentinelmux/sentinelmux/pkg/cache"
)

// MemoryCache implements an in-memory cache with LRU + TTL eviction.
// Expired entries are treated as absent on lookup and purged opportunistically
// by a background sweep; when the entry count reaches capacity the least
// recently used entry is evicted.
type MemoryCache struct {
	mu sync.Mutex

	data map[string]*list.Element // key -> element in lru
	lru  *list.List               // front = most recently used
	ttls map[string]int64         // key -> expiration (unix nano)

	maxEntries    int
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

type memoryEntry struct {
	key        string
	value      []byte
	expiration int64 // unix nano, 0 = no expiry
}

// MemoryCacheConfig holds configuration for MemoryCache.
type MemoryCacheConfig struct {
	MaxEntries      int           // Maximum number of entries (default: 1000)
	CleanupInterval time.Duration // Sweep interval (default: 1 minute)
}

// DefaultMemoryCacheConfig returns sensible defaults.
func DefaultMemoryCacheConfig() MemoryCacheConfig {
	return MemoryCacheConfig{
		MaxEntries:      1000,
		CleanupInterval: time.Minute,
	}
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache(cfg MemoryCacheConfig) *MemoryCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	c := &MemoryCache{
		data:        make(map[string]*list.Element),
		lru:         list.New(),
		ttls:        make(map[string]int64),
		maxEntries:  cfg.MaxEntries,
		stopCleanup: make(chan struct{}),
	}

	c.cleanupTicker = time.NewTicker(cfg.CleanupInterval)
	go c.cleanupLoop()

	return c
}

func (c *MemoryCache) cleanupLoop() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.evictExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// evictExpired removes all expired entries.
func (c *MemoryCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for key, exp := range c.ttls {
		if exp > 0 && exp <= now {
			if el, ok := c.data[key]; ok {
				c.lru.Remove(el)
				delete(c.data, key)
			}
			delete(c.ttls, key)
		}
	}
}

func (c *MemoryCache) removeLocked(key string) {
	if el, ok := c.data[key]; ok {
		c.lru.Remove(el)
		delete(c.data, key)
	}
	delete(c.ttls, key)
}

// Get retrieves a value from the cache. Expired entries are treated as
// absent and deleted lazily.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	el, ok := c.data[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, nil
	}

	entry := el.Value.(*memoryEntry)
	if entry.expiration > 0 && entry.expiration <= time.Now().UnixNano() {
		c.removeLocked(key)
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, nil
	}

	c.lru.MoveToFront(el)
	result := make([]byte, len(entry.value))
	copy(result, entry.value)
	c.mu.Unlock()

	c.hits.Add(1)
	return result, nil
}

// Set stores a value in the cache, evicting the LRU entry at capacity.
// A non-positive ttl means the value is already expired: nothing is stored
// and any existing entry under the key is removed.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		c.mu.Lock()
		c.removeLocked(key)
		c.mu.Unlock()
		return nil
	}
	expiration := time.Now().Add(ttl).UnixNano()

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.data[key]; ok {
		// A fresh computation replaces the entry wholesale.
		c.lru.Remove(el)
		delete(c.data, key)
	}

	for len(c.data) >= c.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*memoryEntry).key)
	}

	el := c.lru.PushFront(&memoryEntry{key: key, value: valueCopy, expiration: expiration})
	c.data[key] = el
	c.ttls[key] = expiration

	c.sets.Add(1)
	return nil
}

// Delete removes a key from the cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
	return nil
}

// Ping always returns nil for the memory cache.
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine and releases resources.
func (c *MemoryCache) Close() error {
	c.cleanupTicker.Stop()
	close(c.stopCleanup)
	return nil
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() pkgcache.Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return pkgcache.Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		HitRate: hitRate,
	}
}

// Len returns the number of entries in the cache.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
