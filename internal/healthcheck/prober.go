// Package healthcheck periodically probes providers and memoizes the results
// so ranking can demote unreachable providers without issuing a network call
// per request.
package healthcheck

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
)

const (
	// DefaultInterval is the default time between probe rounds.
	DefaultInterval = 30 * time.Second

	// DefaultProbeTimeout bounds one probe call.
	DefaultProbeTimeout = 5 * time.Second
)

// Prober runs a background loop that probes each provider and caches the
// latest result. Results expire after two intervals, so a stalled loop
// degrades to "assume available" rather than pinning stale verdicts.
type Prober struct {
	providers []provider.Provider
	interval  time.Duration
	timeout   time.Duration
	results   *gocache.Cache
	logger    *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// Config holds prober settings.
type Config struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
}

// New creates a Prober for the given providers.
func New(providers []provider.Provider, cfg Config, logger *slog.Logger) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		providers: providers,
		interval:  cfg.Interval,
		timeout:   cfg.ProbeTimeout,
		results:   gocache.New(2*cfg.Interval, cfg.Interval),
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the probe loop. The first round runs immediately so rankings
// have fresh data from the start. Safe to call once.
func (p *Prober) Start() {
	p.startOnce.Do(func() {
		go p.loop()
	})
}

// Stop terminates the probe loop and waits for it to exit.
func (p *Prober) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		<-p.done
	})
}

// Available reports the latest probe verdict for a provider. Unknown or
// expired entries count as available: probes are advisory and must never
// remove a provider from rotation on their own.
func (p *Prober) Available(name string) bool {
	v, found := p.results.Get(name)
	if !found {
		return true
	}
	return v.(bool)
}

func (p *Prober) loop() {
	defer close(p.done)

	p.probeAll()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.probeAll()
		case <-p.stop:
			return
		}
	}
}

func (p *Prober) probeAll() {
	var wg sync.WaitGroup
	for _, prov := range p.providers {
		wg.Add(1)
		go func(prov provider.Provider) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			defer cancel()

			alive := prov.Probe(ctx)
			p.results.SetDefault(prov.Name(), alive)
			if !alive {
				p.logger.Warn("provider probe failed", "provider", prov.Name())
			}
		}(prov)
	}
	wg.Wait()
}

var _ router.ProbeSource = (*Prober)(nil)
