package routers

import (
	"context"
	"fmt"

	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// Engine dispatches ranking to the strategy implementations. One engine is
// built per client over the fixed descriptor registry.
type Engine struct {
	config  router.Config
	rankers map[router.Strategy]router.Ranker
}

// NewEngine creates an engine with all built-in strategies.
func NewEngine(config router.Config, descriptors []provider.Descriptor, stats router.StatsSource, probes router.ProbeSource) *Engine {
	if config.NeutralSuccessPrior <= 0 || config.NeutralSuccessPrior > 1 {
		config.NeutralSuccessPrior = router.DefaultConfig().NeutralSuccessPrior
	}
	if !config.Strategy.Valid() {
		config.Strategy = router.DefaultConfig().Strategy
	}

	base := NewBaseRanker(config, descriptors, stats, probes)
	return &Engine{
		config: config,
		rankers: map[router.Strategy]router.Ranker{
			router.StrategyCost:        NewCostRanker(base),
			router.StrategyPerformance: NewPerformanceRanker(base),
			router.StrategyReliability: NewReliabilityRanker(base),
			router.StrategyAdaptive:    NewAdaptiveRanker(base),
		},
	}
}

// Rank produces the ordered candidate list for the given strategy. An empty
// strategy uses the configured default.
func (e *Engine) Rank(ctx context.Context, req *types.ChatRequest, strategy router.Strategy) ([]provider.Descriptor, error) {
	if strategy == "" {
		strategy = e.config.Strategy
	}
	ranker, ok := e.rankers[strategy]
	if !ok {
		return nil, fmt.Errorf("unknown routing strategy: %s", strategy)
	}
	return ranker.Rank(ctx, req), nil
}

// DefaultStrategy returns the engine's configured default strategy.
func (e *Engine) DefaultStrategy() router.Strategy { return e.config.Strategy }
