package sentinelmux

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	intcache "github.com/sentinelmux/sentinelmux/internal/cache"
	"github.com/sentinelmux/sentinelmux/internal/metrics"
	"github.com/sentinelmux/sentinelmux/pkg/cache"
	"github.com/sentinelmux/sentinelmux/pkg/errors"
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/pkg/types"
	"github.com/sentinelmux/sentinelmux/routers"
)

// Client routes chat completion requests across the configured providers.
// It owns the cache, the metrics window, and the strategy engine. A Client
// is safe for concurrent use.
type Client struct {
	providers []provider.Provider
	byName    map[string]provider.Provider

	engine    *routers.Engine
	collector *metrics.Collector

	cache          cache.Cache
	keygen         cache.KeyGenerator
	cacheTTL       time.Duration
	detThreshold   float64
	attemptTimeout time.Duration

	logger *slog.Logger
	tracer trace.Tracer
}

// New creates a Client from the given options. At least one provider is
// required.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if len(o.providers) == 0 {
		return nil, fmt.Errorf("sentinelmux: at least one provider is required")
	}
	if o.cache == nil && !o.cacheDisabled {
		o.cache = intcache.NewMemoryCache(intcache.DefaultMemoryCacheConfig())
	}

	byName := make(map[string]provider.Provider, len(o.providers))
	descriptors := make([]provider.Descriptor, 0, len(o.providers))
	for _, p := range o.providers {
		name := p.Name()
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("sentinelmux: duplicate provider name %q", name)
		}
		byName[name] = p
		descriptors = append(descriptors, p.Describe())
	}

	collector := metrics.NewCollector(o.metricsWindow)
	engine := routers.NewEngine(o.routerConfig, descriptors, collector, o.probes)

	c := &Client{
		providers:      o.providers,
		byName:         byName,
		engine:         engine,
		collector:      collector,
		cache:          o.cache,
		cacheTTL:       o.cacheTTL,
		detThreshold:   o.detThreshold,
		attemptTimeout: o.attemptTimeout,
		logger:         o.logger,
		tracer:         otel.Tracer("sentinelmux"),
	}
	if c.cache != nil {
		c.keygen = o.keygen
		if c.keygen == nil {
			c.keygen = intcache.NewKeyGenerator(o.cachePrefix)
		}
	}
	return c, nil
}

// Complete routes one chat completion using the default strategy.
func (c *Client) Complete(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	return c.CompleteWithStrategy(ctx, req, c.engine.DefaultStrategy())
}

// CompleteWithStrategy routes one chat completion using the given strategy.
// The request is validated, served from cache when eligible, and otherwise
// attempted against each ranked provider in turn. On success the outcome is
// recorded and the response cached when the request is deterministic enough.
// When every provider fails the aggregate error lists each attempt in order.
func (c *Client) CompleteWithStrategy(ctx context.Context, req *types.ChatRequest, strategy router.Strategy) (*types.ChatResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	log := c.logger.With("request_id", requestID, "strategy", string(strategy))

	ctx, span := c.tracer.Start(ctx, "sentinelmux.complete",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("routing.strategy", string(strategy)),
		))
	defer span.End()

	// Cache lookup. Only requests under the determinism threshold are
	// eligible; corrupt entries are dropped and treated as misses.
	var cacheKey string
	cacheable := c.cache != nil && intcache.Cacheable(req, c.detThreshold)
	if cacheable {
		cacheKey = c.keygen.Generate(req)
		if resp := c.cacheLookup(ctx, log, cacheKey); resp != nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return resp, nil
		}
	}

	ranked, err := c.engine.Rank(ctx, req, strategy)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(ranked) == 0 {
		err := errors.NewUnavailableError("", "no providers configured")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	attempts := make([]errors.Attempt, 0, len(ranked))
	for i, desc := range ranked {
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, ctx.Err().Error())
			return nil, errors.FromTransport("", ctx.Err())
		}

		p, ok := c.byName[desc.Name]
		if !ok {
			// Ranked descriptor for an unregistered provider; skip.
			continue
		}

		resp, outcome := c.attempt(ctx, requestID, p, desc, req)
		c.collector.Record(desc.Name, outcome)
		metrics.ObserveOutcome(&outcome)

		if outcome.Success {
			log.Info("request completed",
				"provider", desc.Name,
				"attempt", i+1,
				"latency_ms", outcome.Latency.Milliseconds(),
				"cost", outcome.Cost)
			span.SetAttributes(attribute.String("provider.selected", desc.Name))
			if cacheable {
				c.cacheStore(ctx, log, cacheKey, desc.Name, resp)
			}
			return resp, nil
		}

		log.Warn("provider attempt failed",
			"provider", desc.Name,
			"attempt", i+1,
			"error_kind", outcome.ErrorKind,
			"error", outcome.ErrorMsg)
		attempts = append(attempts, errors.Attempt{
			Provider: desc.Name,
			Kind:     outcome.ErrorKind,
			Message:  outcome.ErrorMsg,
		})
	}

	err = &errors.AllFailedError{Attempts: attempts}
	log.Error("all providers failed", "attempts", len(attempts))
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

// attempt runs one provider call bounded by the attempt timeout (and by any
// earlier deadline already on ctx) and converts the result to an Outcome.
func (c *Client) attempt(ctx context.Context, requestID string, p provider.Provider, desc provider.Descriptor, req *types.ChatRequest) (*types.ChatResponse, types.Outcome) {
	attemptCtx := ctx
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.Complete(attemptCtx, req)
	latency := time.Since(start)

	outcome := types.Outcome{
		RequestID: requestID,
		Provider:  desc.Name,
		Latency:   latency,
		Timestamp: start,
	}
	if err != nil {
		var re *errors.RouteError
		if !stderrors.As(err, &re) {
			re = errors.FromTransport(desc.Name, err)
		}
		outcome.ErrorKind = re.Kind
		outcome.ErrorMsg = re.Message
		return nil, outcome
	}

	outcome.Success = true
	outcome.Response = resp
	if resp.Usage != nil {
		outcome.Cost = float64(resp.Usage.CompletionTokens) / 1000 * desc.CostPer1KOutputTokens
	}
	return resp, outcome
}

func (c *Client) cacheLookup(ctx context.Context, log *slog.Logger, key string) *types.ChatResponse {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn("cache get failed", "error", err)
		return nil
	}
	if data == nil {
		metrics.ObserveCache(false)
		return nil
	}

	var entry cache.Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Response == nil {
		// Corrupt entry: drop it and proceed as a miss.
		cerr := errors.NewCacheCorruptionError(fmt.Sprintf("key %s: undecodable entry", key))
		log.Warn("dropping corrupt cache entry", "error", cerr)
		if derr := c.cache.Delete(ctx, key); derr != nil {
			log.Warn("cache delete failed", "error", derr)
		}
		metrics.ObserveCache(false)
		return nil
	}

	// The backend enforces TTL, but an entry written with a longer backend
	// TTL than its envelope records must still not be served stale.
	if entry.Expired(time.Now()) {
		if derr := c.cache.Delete(ctx, key); derr != nil {
			log.Warn("cache delete failed", "error", derr)
		}
		metrics.ObserveCache(false)
		return nil
	}

	metrics.ObserveCache(true)
	log.Info("cache hit", "provider", entry.Provider)
	return entry.Response
}

func (c *Client) cacheStore(ctx context.Context, log *slog.Logger, key, providerName string, resp *types.ChatResponse) {
	now := time.Now()
	entry := cache.Entry{
		Response:  resp,
		Provider:  providerName,
		CreatedAt: now,
		ExpiresAt: now.Add(c.cacheTTL),
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		log.Warn("cache entry encode failed", "error", err)
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
		log.Warn("cache set failed", "error", err)
	}
}

// Providers returns the descriptors of all registered providers in
// registration order.
func (c *Client) Providers() []provider.Descriptor {
	out := make([]provider.Descriptor, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, p.Describe())
	}
	return out
}

// Stats returns the rolling-window statistics for one provider. The second
// return value is false when no outcomes have been recorded for it.
func (c *Client) Stats(providerName string) (router.ProviderStats, bool) {
	return c.collector.Stats(providerName)
}

// CacheStats returns cache hit/miss counters, zero values when caching is
// disabled.
func (c *Client) CacheStats() cache.Stats {
	if c.cache == nil {
		return cache.Stats{}
	}
	return c.cache.Stats()
}

// DefaultStrategy returns the strategy used by Complete.
func (c *Client) DefaultStrategy() router.Strategy {
	return c.engine.DefaultStrategy()
}

// Close releases the cache and any other resources held by the client.
func (c *Client) Close() error {
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

func validateRequest(req *types.ChatRequest) error {
	if req == nil {
		return errors.NewValidationError("request is nil")
	}
	if len(req.Messages) == 0 {
		return errors.NewValidationError("messages must not be empty")
	}
	for i, msg := range req.Messages {
		if !types.ValidRole(msg.Role) {
			return errors.NewValidationError(fmt.Sprintf("message %d: invalid role %q", i, msg.Role))
		}
		if msg.Content == "" {
			return errors.NewValidationError(fmt.Sprintf("message %d: content must not be empty", i))
		}
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return errors.NewValidationError("temperature must be between 0 and 2")
	}
	if req.MaxTokens < 0 {
		return errors.NewValidationError("max_tokens must not be negative")
	}
	if req.TopP != nil && (*req.TopP < 0 || *req.TopP > 1) {
		return errors.NewValidationError("top_p must be between 0 and 1")
	}
	return nil
}
