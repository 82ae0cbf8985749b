// Package ollama provides the Ollama provider adapter for locally hosted
// models. Ollama serves an OpenAI-compatible API, requires no API key, and
// has zero per-token cost.
package ollama

import (
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/providers/openailike"
)

var info = openailike.Info{
	Name:                "ollama",
	DefaultBaseURL:      "http://localhost:11434/v1",
	AllowPrivateBaseURL: true,
	DefaultCostPer1K:    0,
	DefaultSpeedClass:   provider.SpeedSlow,
	DefaultTags:         []string{"local", "general"},
}

// New creates an Ollama provider.
func New(opts ...openailike.Option) *openailike.Provider {
	return openailike.New(info, opts...)
}

// NewFromConfig creates an Ollama provider from configuration.
func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	return openailike.NewFromConfig(info, cfg)
}
