package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sentinelmux/sentinelmux/pkg/types"
)

const namespace = "sentinelmux"

// LatencyBuckets defines histogram buckets for request latency (seconds).
var LatencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1.0, 1.5, 2.0, 3.0, 4.0, 5.0,
	7.5, 10.0, 15.0, 20.0, 30.0, 60.0, 120.0,
}

var (
	// RequestsTotal counts attempts per provider and result.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total provider attempts",
		},
		[]string{"provider", "status"},
	)

	// FailuresTotal counts failed attempts by error kind.
	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Failed provider attempts by error kind",
		},
		[]string{"provider", "kind"},
	)

	// RequestLatency tracks attempt latency per provider.
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Provider attempt latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"provider"},
	)

	// TokensTotal counts input/output tokens per provider.
	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_tokens_total",
			Help:      "Token usage per provider",
		},
		[]string{"provider", "direction"},
	)

	// EstimatedCostTotal accumulates estimated spend per provider (USD).
	EstimatedCostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_estimated_cost_usd_total",
			Help:      "Estimated cost per provider in USD",
		},
		[]string{"provider"},
	)

	// CacheEvents counts response cache hits and misses.
	CacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_events_total",
			Help:      "Response cache hits and misses",
		},
		[]string{"event"},
	)
)

// ObserveOutcome publishes one attempt outcome to Prometheus.
func ObserveOutcome(o *types.Outcome) {
	status := "success"
	if !o.Success {
		status = "failure"
		FailuresTotal.WithLabelValues(o.Provider, o.ErrorKind).Inc()
	}
	RequestsTotal.WithLabelValues(o.Provider, status).Inc()
	RequestLatency.WithLabelValues(o.Provider).Observe(float64(o.Latency) / float64(time.Second))

	in, out := o.Tokens()
	if in > 0 {
		TokensTotal.WithLabelValues(o.Provider, "input").Add(float64(in))
	}
	if out > 0 {
		TokensTotal.WithLabelValues(o.Provider, "output").Add(float64(out))
	}
	if o.Cost > 0 {
		EstimatedCostTotal.WithLabelValues(o.Provider).Add(o.Cost)
	}
}

// ObserveCache publishes a cache hit or miss.
func ObserveCache(hit bool) {
	if hit {
		CacheEvents.WithLabelValues("hit").Inc()
	} else {
		CacheEvents.WithLabelValues("miss").Inc()
	}
}
