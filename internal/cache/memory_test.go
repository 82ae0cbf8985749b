package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, cfg MemoryCacheConfig) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(cfg)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := newTestCache(t, DefaultMemoryCacheConfig())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryCacheGetMiss(t *testing.T) {
	c := newTestCache(t, DefaultMemoryCacheConfig())

	got, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := newTestCache(t, DefaultMemoryCacheConfig())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got, "expired entry must read as a miss")
}

func TestMemoryCacheNonPositiveTTL(t *testing.T) {
	c := newTestCache(t, DefaultMemoryCacheConfig())
	ctx := context.Background()

	for _, ttl := range []time.Duration{0, -time.Second} {
		require.NoError(t, c.Set(ctx, "k", []byte("v"), ttl))

		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, got, "entry written with ttl %v must read as a miss", ttl)
	}

	// Writing with a non-positive TTL also removes any live entry.
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "k", []byte("v2"), 0))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	c := newTestCache(t, MemoryCacheConfig{MaxEntries: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
	}

	// Touch k0 so k1 becomes least recently used.
	_, err := c.Get(ctx, "k0")
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k3", []byte("v"), time.Minute))
	assert.Equal(t, 3, c.Len())

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got, "least recently used entry must be evicted")

	got, err = c.Get(ctx, "k0")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := newTestCache(t, DefaultMemoryCacheConfig())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCacheStats(t *testing.T) {
	c := newTestCache(t, DefaultMemoryCacheConfig())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	c.Get(ctx, "k")
	c.Get(ctx, "k")
	c.Get(ctx, "absent")

	stats := c.Stats()
	assert.EqualValues(t, 2, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.EqualValues(t, 1, stats.Sets)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	c := newTestCache(t, MemoryCacheConfig{MaxEntries: 100})
	ctx := context.Background()

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%50)
				c.Set(ctx, key, []byte("v"), time.Minute)
				c.Get(ctx, key)
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}
	assert.LessOrEqual(t, c.Len(), 100)
}
