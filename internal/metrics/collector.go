// Package metrics records per-request outcomes and derives rolling-window
// aggregates per provider. Prometheus counterparts of the same signals are
// defined in prometheus.go.
package metrics

import (
	"sort"
	"sync"

	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// DefaultWindowSize is the number of trailing outcomes kept per provider.
const DefaultWindowSize = 128

// Collector keeps a bounded trailing history of outcomes per provider.
// The window policy is last-N outcomes; aggregation always operates over
// whatever currently sits in the window. Safe for concurrent use.
type Collector struct {
	mu     sync.RWMutex
	window int
	byProv map[string][]types.Outcome
}

// NewCollector creates a collector with the given window size.
func NewCollector(windowSize int) *Collector {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Collector{
		window: windowSize,
		byProv: make(map[string][]types.Outcome),
	}
}

// Record appends one outcome to the provider's window. Recording is
// append-only; the oldest outcome falls off when the window is full.
func (c *Collector) Record(providerName string, outcome types.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := c.byProv[providerName]
	if len(history) >= c.window {
		copy(history, history[1:])
		history[len(history)-1] = outcome
	} else {
		history = append(history, outcome)
	}
	c.byProv[providerName] = history
}

// Stats returns the rolling-window aggregate for a provider. ok is false
// when no outcomes have been recorded in the window, so callers can
// distinguish "never tried" from "always failed".
func (c *Collector) Stats(providerName string) (router.ProviderStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := c.byProv[providerName]
	if len(history) == 0 {
		return router.ProviderStats{}, false
	}

	var stats router.ProviderStats
	var latencySum, costSum float64
	for _, o := range history {
		stats.Requests++
		if o.Success {
			stats.Successes++
			// Failures are excluded from the latency and cost averages:
			// a timed-out attempt would otherwise drag the average toward
			// the timeout bound.
			latencySum += float64(o.Latency.Milliseconds())
			costSum += o.Cost
		} else {
			stats.Failures++
		}
	}

	stats.SuccessRate = float64(stats.Successes) / float64(stats.Requests)
	if stats.Successes > 0 {
		n := float64(stats.Successes)
		stats.AvgLatencyMs = latencySum / n
		stats.AvgCost = costSum / n
	}
	return stats, true
}

// Providers returns the names of all providers with recorded outcomes, in
// sorted order.
func (c *Collector) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.byProv))
	for name := range c.byProv {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops all recorded history. Used by tests.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byProv = make(map[string][]types.Outcome)
}

var _ router.StatsSource = (*Collector)(nil)
