// Package routers implements the routing strategies. All rankers implement
// the router.Ranker interface from pkg/router and are deterministic for a
// fixed stats snapshot: the final tie-break is always the provider name.
package routers

import (
	"sort"

	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
)

// BaseRanker provides common functionality for all routing strategies.
// Specific strategies embed this and implement the ordering logic.
type BaseRanker struct {
	config      router.Config
	descriptors []provider.Descriptor
	stats       router.StatsSource
	probes      router.ProbeSource
}

// NewBaseRanker creates a base ranker over a fixed descriptor registry.
func NewBaseRanker(config router.Config, descriptors []provider.Descriptor, stats router.StatsSource, probes router.ProbeSource) *BaseRanker {
	return &BaseRanker{
		config:      config,
		descriptors: descriptors,
		stats:       stats,
		probes:      probes,
	}
}

// candidates returns a fresh copy of the registry for this ranking pass.
func (b *BaseRanker) candidates() []provider.Descriptor {
	out := make([]provider.Descriptor, len(b.descriptors))
	copy(out, b.descriptors)
	return out
}

// statsFor returns the window aggregate for a provider; ok is false when
// the provider has no recorded outcomes.
func (b *BaseRanker) statsFor(name string) (router.ProviderStats, bool) {
	if b.stats == nil {
		return router.ProviderStats{}, false
	}
	return b.stats.Stats(name)
}

// successRateOrPrior returns the observed success rate, or the configured
// neutral prior when the provider has no data.
func (b *BaseRanker) successRateOrPrior(name string) float64 {
	if stats, ok := b.statsFor(name); ok {
		return stats.SuccessRate
	}
	return b.config.NeutralSuccessPrior
}

// demoteUnavailable moves providers whose last probe failed to the tail,
// preserving relative order inside each group. Probe results are advisory:
// a dead-looking provider is deprioritized, never removed.
func (b *BaseRanker) demoteUnavailable(list []provider.Descriptor) []provider.Descriptor {
	if b.probes == nil {
		return list
	}

	alive := make([]provider.Descriptor, 0, len(list))
	dead := make([]provider.Descriptor, 0)
	for _, d := range list {
		if b.probes.Available(d.Name) {
			alive = append(alive, d)
		} else {
			dead = append(dead, d)
		}
	}
	return append(alive, dead...)
}

// sortByScore sorts descriptors by descending score with a name tie-break.
func sortByScore(list []provider.Descriptor, score map[string]float64) {
	sort.SliceStable(list, func(i, j int) bool {
		si, sj := score[list[i].Name], score[list[j].Name]
		if si != sj {
			return si > sj
		}
		return list[i].Name < list[j].Name
	})
}
