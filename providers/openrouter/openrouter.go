// Package openrouter provides the OpenRouter provider adapter.
package openrouter

import (
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/providers/openailike"
)

var info = openailike.Info{
	Name:           "openrouter",
	DefaultBaseURL: "https://openrouter.ai/api/v1",
	ExtraHeaders: map[string]string{
		"HTTP-Referer": "https://github.com/sentinelmux/sentinelmux",
		"X-Title":      "sentinelmux",
	},
	DefaultCostPer1K:  0.002,
	DefaultSpeedClass: provider.SpeedStandard,
	DefaultTags:       []string{"general"},
}

// New creates an OpenRouter provider.
func New(opts ...openailike.Option) *openailike.Provider {
	return openailike.New(info, opts...)
}

// NewFromConfig creates an OpenRouter provider from configuration.
func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	return openailike.NewFromConfig(info, cfg)
}
