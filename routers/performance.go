package routers

import (
	"context"
	"sort"

	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// PerformanceRanker orders providers by ascending observed average latency.
// Providers with no recorded outcomes rank after providers with data, in
// declared speed-class order, so a new fast provider gets a chance without
// preempting proven-fast ones.
type PerformanceRanker struct {
	*BaseRanker
}

// NewPerformanceRanker creates a performance ranker.
func NewPerformanceRanker(base *BaseRanker) *PerformanceRanker {
	return &PerformanceRanker{BaseRanker: base}
}

// Strategy returns the strategy this ranker implements.
func (r *PerformanceRanker) Strategy() router.Strategy { return router.StrategyPerformance }

// Rank returns the candidate list, fastest observed first.
func (r *PerformanceRanker) Rank(ctx context.Context, req *types.ChatRequest) []provider.Descriptor {
	list := r.candidates()

	measured := make([]provider.Descriptor, 0, len(list))
	untested := make([]provider.Descriptor, 0)
	latency := make(map[string]float64, len(list))

	for _, d := range list {
		// A provider with recorded outcomes but no successes has no latency
		// signal either; it goes to the untested group.
		if stats, ok := r.statsFor(d.Name); ok && stats.Successes > 0 {
			latency[d.Name] = stats.AvgLatencyMs
			measured = append(measured, d)
		} else {
			untested = append(untested, d)
		}
	}

	sort.SliceStable(measured, func(i, j int) bool {
		li, lj := latency[measured[i].Name], latency[measured[j].Name]
		if li != lj {
			return li < lj
		}
		return measured[i].Name < measured[j].Name
	})

	sort.SliceStable(untested, func(i, j int) bool {
		si, sj := provider.SpeedRank(untested[i].SpeedClass), provider.SpeedRank(untested[j].SpeedClass)
		if si != sj {
			return si < sj
		}
		return untested[i].Name < untested[j].Name
	})

	return r.demoteUnavailable(append(measured, untested...))
}
