// Package router defines the public routing strategy contracts. Concrete
// strategy implementations live in the routers package.
package router

import (
	"context"

	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// Strategy defines the routing strategy type.
type Strategy string

const (
	// StrategyCost orders providers by ascending declared unit cost;
	// zero-cost providers first, ties broken by recent success rate.
	StrategyCost Strategy = "cost"

	// StrategyPerformance orders providers by ascending observed average
	// latency; providers with no data rank after providers with data, in
	// declared speed-class order.
	StrategyPerformance Strategy = "performance"

	// StrategyReliability orders providers by descending observed success
	// rate; providers with no data receive a neutral prior.
	StrategyReliability Strategy = "reliability"

	// StrategyAdaptive combines normalized cost, latency, and success-rate
	// scores with fixed configured weights.
	StrategyAdaptive Strategy = "adaptive"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyCost, StrategyPerformance, StrategyReliability, StrategyAdaptive:
		return true
	}
	return false
}

// ProviderStats is the rolling-window aggregate for one provider, derived
// from recorded outcomes. Invariant: Successes <= Requests.
type ProviderStats struct {
	Requests     int64
	Successes    int64
	Failures     int64
	SuccessRate  float64
	AvgLatencyMs float64
	AvgCost      float64
}

// StatsSource supplies rolling-window stats to the strategy engine.
// ok is false when the provider has no outcomes in the window, so rankers
// can distinguish "never tried" from "always failed".
type StatsSource interface {
	Stats(providerName string) (ProviderStats, bool)
}

// ProbeSource reports advisory availability from background probing.
// Unknown providers are treated as available.
type ProbeSource interface {
	Available(providerName string) bool
}

// Ranker produces an ordered candidate list for one strategy. Rankings are
// deterministic for a fixed stats snapshot.
type Ranker interface {
	// Rank returns the providers to try, best first.
	Rank(ctx context.Context, req *types.ChatRequest) []provider.Descriptor

	// Strategy returns the strategy this ranker implements.
	Strategy() Strategy
}

// AdaptiveWeights are the fixed weights for the adaptive strategy. They are
// configuration, not learned online.
type AdaptiveWeights struct {
	Cost        float64 `yaml:"cost"`
	Latency     float64 `yaml:"latency"`
	Reliability float64 `yaml:"reliability"`
}

// Config contains strategy engine configuration.
type Config struct {
	// Strategy is the default strategy when the caller does not override.
	Strategy Strategy

	// Weights configure the adaptive strategy.
	Weights AdaptiveWeights

	// NeutralSuccessPrior is the success rate assumed for providers with no
	// recorded outcomes under the reliability strategy. Neither best nor
	// worst, so untested providers are not starved.
	NeutralSuccessPrior float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Strategy: StrategyAdaptive,
		Weights: AdaptiveWeights{
			Cost:        0.3,
			Latency:     0.3,
			Reliability: 0.4,
		},
		NeutralSuccessPrior: 0.5,
	}
}
