package sentinelmux

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sentinelmux/sentinelmux/internal/metrics"
	"github.com/sentinelmux/sentinelmux/pkg/cache"
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/providers"
)

const (
	defaultCacheTTL       = 5 * time.Minute
	defaultAttemptTimeout = 30 * time.Second

	// defaultDeterminismThreshold is the highest sampling temperature at
	// which responses are still considered reproducible enough to cache.
	defaultDeterminismThreshold = 0.2
)

type options struct {
	providers      []provider.Provider
	routerConfig   router.Config
	probes         router.ProbeSource
	cache          cache.Cache
	cacheDisabled  bool
	keygen         cache.KeyGenerator
	cachePrefix    string
	cacheTTL       time.Duration
	detThreshold   float64
	attemptTimeout time.Duration
	metricsWindow  int
	logger         *slog.Logger
}

func defaultOptions() *options {
	return &options{
		routerConfig:   router.DefaultConfig(),
		cachePrefix:    "sentinelmux",
		cacheTTL:       defaultCacheTTL,
		detThreshold:   defaultDeterminismThreshold,
		attemptTimeout: defaultAttemptTimeout,
		metricsWindow:  metrics.DefaultWindowSize,
		logger:         slog.Default(),
	}
}

// Option configures a Client.
type Option func(*options) error

// WithProvider instantiates and registers a provider from configuration
// using the built-in type registry.
func WithProvider(cfg provider.Config) Option {
	return func(o *options) error {
		p, err := providers.Create(cfg)
		if err != nil {
			return fmt.Errorf("provider %q: %w", cfg.Name, err)
		}
		o.providers = append(o.providers, p)
		return nil
	}
}

// WithProviderInstance registers an already constructed provider. Useful for
// custom adapters and for tests.
func WithProviderInstance(p provider.Provider) Option {
	return func(o *options) error {
		o.providers = append(o.providers, p)
		return nil
	}
}

// WithStrategy sets the default routing strategy.
func WithStrategy(s router.Strategy) Option {
	return func(o *options) error {
		if !s.Valid() {
			return fmt.Errorf("unknown routing strategy %q", s)
		}
		o.routerConfig.Strategy = s
		return nil
	}
}

// WithAdaptiveWeights sets the weights used by the adaptive strategy.
func WithAdaptiveWeights(w router.AdaptiveWeights) Option {
	return func(o *options) error {
		if w.Cost < 0 || w.Latency < 0 || w.Reliability < 0 {
			return fmt.Errorf("adaptive weights must not be negative")
		}
		o.routerConfig.Weights = w
		return nil
	}
}

// WithNeutralSuccessPrior sets the success rate assumed for providers with
// no recorded outcomes.
func WithNeutralSuccessPrior(prior float64) Option {
	return func(o *options) error {
		if prior < 0 || prior > 1 {
			return fmt.Errorf("neutral success prior must be in [0, 1]")
		}
		o.routerConfig.NeutralSuccessPrior = prior
		return nil
	}
}

// WithProbeSource wires an availability source into ranking. Providers whose
// latest probe failed are demoted to the end of every ranking.
func WithProbeSource(src router.ProbeSource) Option {
	return func(o *options) error {
		o.probes = src
		return nil
	}
}

// WithCache replaces the default in-memory cache.
func WithCache(c cache.Cache) Option {
	return func(o *options) error {
		o.cache = c
		o.cacheDisabled = c == nil
		return nil
	}
}

// WithoutCache disables response caching entirely.
func WithoutCache() Option {
	return func(o *options) error {
		o.cache = nil
		o.cacheDisabled = true
		return nil
	}
}

// WithCacheTTL sets the lifetime of cached responses.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) error {
		if ttl <= 0 {
			return fmt.Errorf("cache TTL must be positive")
		}
		o.cacheTTL = ttl
		return nil
	}
}

// WithKeyGenerator replaces the default request fingerprinting. The default
// generator hashes the full message sequence and sampling parameters; a
// custom one can widen or narrow what counts as the same request.
func WithKeyGenerator(g cache.KeyGenerator) Option {
	return func(o *options) error {
		if g == nil {
			return fmt.Errorf("key generator must not be nil")
		}
		o.keygen = g
		return nil
	}
}

// WithCachePrefix sets the namespace prefix for cache keys.
func WithCachePrefix(prefix string) Option {
	return func(o *options) error {
		o.cachePrefix = prefix
		return nil
	}
}

// WithDeterminismThreshold sets the highest temperature at which responses
// are cached. Requests without an explicit temperature are never cached.
func WithDeterminismThreshold(t float64) Option {
	return func(o *options) error {
		if t < 0 {
			return fmt.Errorf("determinism threshold must not be negative")
		}
		o.detThreshold = t
		return nil
	}
}

// WithAttemptTimeout bounds each individual provider attempt. The caller's
// context deadline still applies; the effective bound is whichever expires
// first. Zero disables the per-attempt bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("attempt timeout must not be negative")
		}
		o.attemptTimeout = d
		return nil
	}
}

// WithMetricsWindow sets how many recent outcomes per provider feed the
// rolling statistics.
func WithMetricsWindow(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("metrics window must be positive")
		}
		o.metricsWindow = n
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}
