package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelmux/sentinelmux/pkg/types"
)

func success(latency time.Duration, cost float64) types.Outcome {
	return types.Outcome{Success: true, Latency: latency, Cost: cost, Timestamp: time.Now()}
}

func failure(kind string) types.Outcome {
	return types.Outcome{Success: false, ErrorKind: kind, Timestamp: time.Now()}
}

func TestCollectorNoDataIsExplicit(t *testing.T) {
	c := NewCollector(10)

	_, ok := c.Stats("unknown")
	assert.False(t, ok, "a provider with no outcomes must not report stats")
}

func TestCollectorAggregates(t *testing.T) {
	c := NewCollector(10)
	c.Record("p", success(100*time.Millisecond, 0.002))
	c.Record("p", success(300*time.Millisecond, 0.004))
	c.Record("p", failure("provider_timeout"))

	stats, ok := c.Stats("p")
	require.True(t, ok)
	assert.EqualValues(t, 3, stats.Requests)
	assert.EqualValues(t, 2, stats.Successes)
	assert.EqualValues(t, 1, stats.Failures)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 0.001)
	assert.InDelta(t, 200, stats.AvgLatencyMs, 0.001, "failed attempts do not contribute latency")
	assert.InDelta(t, 0.003, stats.AvgCost, 0.0001)
}

func TestCollectorIsolatesProviders(t *testing.T) {
	c := NewCollector(10)
	c.Record("a", failure("provider_unavailable"))
	c.Record("b", success(50*time.Millisecond, 0))

	a, ok := c.Stats("a")
	require.True(t, ok)
	assert.EqualValues(t, 0, a.Successes)

	b, ok := c.Stats("b")
	require.True(t, ok)
	assert.EqualValues(t, 1, b.Successes)
	assert.EqualValues(t, 0, b.Failures)
}

func TestCollectorWindowEvictsOldest(t *testing.T) {
	c := NewCollector(4)

	// Fill the window with failures, then push successes until the
	// failures age out.
	for i := 0; i < 4; i++ {
		c.Record("p", failure("provider_unavailable"))
	}
	for i := 0; i < 4; i++ {
		c.Record("p", success(10*time.Millisecond, 0))
	}

	stats, ok := c.Stats("p")
	require.True(t, ok)
	assert.EqualValues(t, 4, stats.Requests, "window is bounded")
	assert.InDelta(t, 1.0, stats.SuccessRate, 0.001, "old failures no longer count")
}

func TestCollectorProviders(t *testing.T) {
	c := NewCollector(10)
	c.Record("b", success(1, 0))
	c.Record("a", success(1, 0))

	assert.Equal(t, []string{"a", "b"}, c.Providers())
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector(10)
	c.Record("p", success(1, 0))
	c.Reset()

	_, ok := c.Stats("p")
	assert.False(t, ok)
}
