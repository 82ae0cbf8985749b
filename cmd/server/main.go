// Command server runs the sentinelmux HTTP gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelmux/sentinelmux"
	"github.com/sentinelmux/sentinelmux/caches/redis"
	"github.com/sentinelmux/sentinelmux/internal/api"
	intcache "github.com/sentinelmux/sentinelmux/internal/cache"
	"github.com/sentinelmux/sentinelmux/internal/config"
	"github.com/sentinelmux/sentinelmux/internal/healthcheck"
	"github.com/sentinelmux/sentinelmux/internal/observability"
	"github.com/sentinelmux/sentinelmux/pkg/cache"
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/providers"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	manager, err := config.NewManager(configPath, nil)
	if err != nil {
		return err
	}
	defer manager.Close()
	cfg := manager.Current()

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		Insecure:    true,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer tp.Shutdown(context.Background())

	provs := make([]provider.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := providers.Create(pc.ToProvider())
		if err != nil {
			return err
		}
		provs = append(provs, p)
	}

	store, err := buildCache(cfg.Cache)
	if err != nil {
		return err
	}

	var probeSrc router.ProbeSource
	opts := []sentinelmux.Option{
		sentinelmux.WithStrategy(router.Strategy(cfg.Routing.Strategy)),
		sentinelmux.WithAdaptiveWeights(cfg.Routing.AdaptiveWeights),
		sentinelmux.WithNeutralSuccessPrior(cfg.Routing.NeutralSuccessPrior),
		sentinelmux.WithCache(store),
		sentinelmux.WithCacheTTL(cfg.Cache.TTL),
		sentinelmux.WithCachePrefix(cfg.Cache.Prefix),
		sentinelmux.WithDeterminismThreshold(cfg.Cache.DeterminismThreshold),
		sentinelmux.WithAttemptTimeout(cfg.Fallback.AttemptTimeout),
		sentinelmux.WithMetricsWindow(cfg.Metrics.WindowSize),
		sentinelmux.WithLogger(logger),
	}
	for _, p := range provs {
		opts = append(opts, sentinelmux.WithProviderInstance(p))
	}
	if cfg.Probe.Enabled {
		prober := healthcheck.New(provs, healthcheck.Config{
			Interval:     cfg.Probe.Interval,
			ProbeTimeout: cfg.Probe.Timeout,
		}, logger)
		prober.Start()
		defer prober.Stop()
		probeSrc = prober
		opts = append(opts, sentinelmux.WithProbeSource(prober))
	}

	client, err := sentinelmux.New(opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	mux := http.NewServeMux()
	handler := api.NewHandler(client, probeSrc, logger)

	var middleware []func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		middleware = append(middleware, api.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	if cfg.Auth.Enabled {
		middleware = append(middleware, api.JWTAuth(cfg.Auth.JWTSecret, logger))
	}
	handler.RegisterRoutes(mux, middleware...)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch cache.Type(cfg.Backend) {
	case cache.TypeRedis:
		rc := redis.DefaultConfig()
		rc.Addr = cfg.Redis.Addr
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		rc.Namespace = cfg.Prefix
		return redis.New(rc)
	default:
		return intcache.NewMemoryCache(intcache.MemoryCacheConfig{
			MaxEntries: cfg.MaxEntries,
		}), nil
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
