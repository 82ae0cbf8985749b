package routers

import (
	"context"
	"sort"

	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// CostRanker orders providers by ascending declared unit cost: zero-cost
// providers first, ties broken by descending recent success rate.
type CostRanker struct {
	*BaseRanker
}

// NewCostRanker creates a cost ranker.
func NewCostRanker(base *BaseRanker) *CostRanker {
	return &CostRanker{BaseRanker: base}
}

// Strategy returns the strategy this ranker implements.
func (r *CostRanker) Strategy() router.Strategy { return router.StrategyCost }

// Rank returns the candidate list, cheapest first.
func (r *CostRanker) Rank(ctx context.Context, req *types.ChatRequest) []provider.Descriptor {
	list := r.candidates()

	rate := make(map[string]float64, len(list))
	for _, d := range list {
		rate[d.Name] = r.successRateOrPrior(d.Name)
	}

	sort.SliceStable(list, func(i, j int) bool {
		ci, cj := list[i].CostPer1KOutputTokens, list[j].CostPer1KOutputTokens
		if ci != cj {
			return ci < cj
		}
		ri, rj := rate[list[i].Name], rate[list[j].Name]
		if ri != rj {
			return ri > rj
		}
		return list[i].Name < list[j].Name
	})

	return r.demoteUnavailable(list)
}
