package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.Namespace = "test"

	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c, mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Minute))

	val, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), val)
}

func TestRedisCache_GetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	val, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, val)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Second))

	mr.FastForward(2 * time.Second)

	val, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestRedisCache_NonPositiveTTL(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	for _, ttl := range []time.Duration{0, -time.Second} {
		require.NoError(t, c.Set(ctx, "key1", []byte("value1"), ttl))

		val, err := c.Get(ctx, "key1")
		require.NoError(t, err)
		assert.Nil(t, val, "entry written with ttl %v must read as a miss", ttl)
	}

	// Writing with a non-positive TTL also removes any live entry.
	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Minute))
	require.NoError(t, c.Set(ctx, "key1", []byte("value2"), 0))

	val, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestNewDefaultsTimeouts(t *testing.T) {
	mr := miniredis.RunT(t)

	// Only the address and namespace set: the connectivity ping must still
	// run under a usable deadline.
	c, err := New(Config{Addr: mr.Addr(), Namespace: "test"})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping(context.Background()))
}

func TestRedisCache_Delete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Minute))
	require.NoError(t, c.Delete(ctx, "key1"))

	val, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestRedisCache_NamespacePrefix(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Minute))
	assert.True(t, mr.Exists("test:key1"))
}
