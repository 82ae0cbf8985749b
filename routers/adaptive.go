package routers

import (
	"context"

	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// AdaptiveRanker combines normalized cost, latency, and success-rate scores
// with fixed configured weights. Weights are configuration, not learned
// online; a pluggable scoring function is the extension point for anything
// smarter.
type AdaptiveRanker struct {
	*BaseRanker
}

// NewAdaptiveRanker creates an adaptive ranker.
func NewAdaptiveRanker(base *BaseRanker) *AdaptiveRanker {
	return &AdaptiveRanker{BaseRanker: base}
}

// Strategy returns the strategy this ranker implements.
func (r *AdaptiveRanker) Strategy() router.Strategy { return router.StrategyAdaptive }

// Rank returns the candidate list, best combined score first.
func (r *AdaptiveRanker) Rank(ctx context.Context, req *types.ChatRequest) []provider.Descriptor {
	list := r.candidates()
	if len(list) == 0 {
		return list
	}

	// Normalization bounds across the current candidate set.
	var maxCost, maxLatency float64
	for _, d := range list {
		if d.CostPer1KOutputTokens > maxCost {
			maxCost = d.CostPer1KOutputTokens
		}
		if stats, ok := r.statsFor(d.Name); ok && stats.AvgLatencyMs > maxLatency {
			maxLatency = stats.AvgLatencyMs
		}
	}

	weights := r.config.Weights
	score := make(map[string]float64, len(list))
	for _, d := range list {
		costScore := 1.0
		if maxCost > 0 {
			costScore = 1.0 - d.CostPer1KOutputTokens/maxCost
		}

		// Neutral latency score for providers with no data, same idea as
		// the reliability prior.
		latencyScore := 0.5
		if stats, ok := r.statsFor(d.Name); ok && maxLatency > 0 {
			latencyScore = 1.0 - stats.AvgLatencyMs/maxLatency
		}

		relScore := r.successRateOrPrior(d.Name)

		score[d.Name] = weights.Cost*costScore + weights.Latency*latencyScore + weights.Reliability*relScore
	}

	sortByScore(list, score)
	return r.demoteUnavailable(list)
}
