// Package config loads and validates the server configuration from YAML.
// Environment variable references (${VAR}) in the file are expanded before
// parsing, so secrets stay out of the file itself.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sentinelmux/sentinelmux/pkg/cache"
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
)

// Config is the root server configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Auth      AuthConfig       `yaml:"auth"`
	RateLimit RateLimitConfig  `yaml:"rate_limit"`
	Routing   RoutingConfig    `yaml:"routing"`
	Cache     CacheConfig      `yaml:"cache"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Fallback  FallbackConfig   `yaml:"fallback"`
	Probe     ProbeConfig      `yaml:"probe"`
	Tracing   TracingConfig    `yaml:"tracing"`
	Logging   LoggingConfig    `yaml:"logging"`
	Providers []ProviderConfig `yaml:"providers"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig holds gateway authentication settings.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
}

// RateLimitConfig holds per-gateway request rate limits.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// RoutingConfig holds strategy engine settings.
type RoutingConfig struct {
	Strategy            string                 `yaml:"strategy"`
	AdaptiveWeights     router.AdaptiveWeights `yaml:"adaptive_weights"`
	NeutralSuccessPrior float64                `yaml:"neutral_success_prior"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Backend              string        `yaml:"backend"`
	TTL                  time.Duration `yaml:"ttl"`
	MaxEntries           int           `yaml:"max_entries"`
	Prefix               string        `yaml:"prefix"`
	DeterminismThreshold float64       `yaml:"determinism_threshold"`
	Redis                RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MetricsConfig holds metrics collector settings.
type MetricsConfig struct {
	WindowSize int `yaml:"window_size"`
}

// FallbackConfig holds fallback executor settings.
type FallbackConfig struct {
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// ProbeConfig holds health prober settings.
type ProbeConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// TracingConfig holds OpenTelemetry export settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProviderConfig is the YAML shape of one provider entry.
type ProviderConfig struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	APIKey     string            `yaml:"api_key"`
	BaseURL    string            `yaml:"base_url"`
	Model      string            `yaml:"model"`
	Tags       []string          `yaml:"tags"`
	CostPer1K  float64           `yaml:"cost_per_1k"`
	SpeedClass string            `yaml:"speed_class"`
	Headers    map[string]string `yaml:"headers"`
	Timeout    time.Duration     `yaml:"timeout"`
}

// ToProvider converts the YAML shape to the provider package's Config.
func (p ProviderConfig) ToProvider() provider.Config {
	return provider.Config{
		Name:       p.Name,
		Type:       p.Type,
		APIKey:     p.APIKey,
		BaseURL:    p.BaseURL,
		Model:      p.Model,
		Tags:       p.Tags,
		CostPer1K:  p.CostPer1K,
		SpeedClass: p.SpeedClass,
		Headers:    p.Headers,
		Timeout:    p.Timeout,
	}
}

// Default returns the configuration used when a field is absent from the
// file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RPS:   50,
			Burst: 100,
		},
		Routing: RoutingConfig{
			Strategy: string(router.StrategyAdaptive),
			AdaptiveWeights: router.AdaptiveWeights{
				Cost:        0.3,
				Latency:     0.3,
				Reliability: 0.4,
			},
			NeutralSuccessPrior: 0.5,
		},
		Cache: CacheConfig{
			Backend:              string(cache.TypeLocal),
			TTL:                  5 * time.Minute,
			MaxEntries:           10000,
			Prefix:               "sentinelmux",
			DeterminismThreshold: 0.2,
		},
		Metrics: MetricsConfig{
			WindowSize: 128,
		},
		Fallback: FallbackConfig{
			AttemptTimeout: 30 * time.Second,
		},
		Probe: ProbeConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
			Timeout:  5 * time.Second,
		},
		Tracing: TracingConfig{
			SampleRatio: 0.1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads, expands, parses, and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate_limit.rps must be positive when rate limiting is enabled")
	}

	if s := router.Strategy(c.Routing.Strategy); !s.Valid() {
		return fmt.Errorf("routing.strategy %q is not one of cost, performance, reliability, adaptive", c.Routing.Strategy)
	}
	if p := c.Routing.NeutralSuccessPrior; p < 0 || p > 1 {
		return fmt.Errorf("routing.neutral_success_prior must be in [0, 1], got %g", p)
	}
	w := c.Routing.AdaptiveWeights
	if w.Cost < 0 || w.Latency < 0 || w.Reliability < 0 {
		return fmt.Errorf("routing.adaptive_weights must not be negative")
	}

	switch cache.Type(c.Cache.Backend) {
	case cache.TypeLocal:
	case cache.TypeRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of local, redis", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Cache.DeterminismThreshold < 0 {
		return fmt.Errorf("cache.determinism_threshold must not be negative")
	}

	if c.Metrics.WindowSize <= 0 {
		return fmt.Errorf("metrics.window_size must be positive")
	}
	if c.Fallback.AttemptTimeout < 0 {
		return fmt.Errorf("fallback.attempt_timeout must not be negative")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}
	seen := make(map[string]struct{}, len(c.Providers))
	for i, p := range c.Providers {
		if p.Type == "" && p.Name == "" {
			return fmt.Errorf("providers[%d]: name or type is required", i)
		}
		name := p.Name
		if name == "" {
			name = p.Type
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("providers[%d]: duplicate name %q", i, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
