package routers

import (
	"context"

	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// ReliabilityRanker orders providers by descending observed success rate.
// Providers with no data receive the configured neutral prior so untested
// providers are neither favored nor starved.
type ReliabilityRanker struct {
	*BaseRanker
}

// NewReliabilityRanker creates a reliability ranker.
func NewReliabilityRanker(base *BaseRanker) *ReliabilityRanker {
	return &ReliabilityRanker{BaseRanker: base}
}

// Strategy returns the strategy this ranker implements.
func (r *ReliabilityRanker) Strategy() router.Strategy { return router.StrategyReliability }

// Rank returns the candidate list, most reliable first.
func (r *ReliabilityRanker) Rank(ctx context.Context, req *types.ChatRequest) []provider.Descriptor {
	list := r.candidates()

	score := make(map[string]float64, len(list))
	for _, d := range list {
		score[d.Name] = r.successRateOrPrior(d.Name)
	}

	sortByScore(list, score)
	return r.demoteUnavailable(list)
}
