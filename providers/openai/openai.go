// Package openai provides the OpenAI provider adapter.
package openai

import (
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/providers/openailike"
)

var info = openailike.Info{
	Name:              "openai",
	DefaultBaseURL:    "https://api.openai.com/v1",
	DefaultCostPer1K:  0.01,
	DefaultSpeedClass: provider.SpeedStandard,
	DefaultTags:       []string{"general", "code"},
}

// New creates an OpenAI provider.
func New(opts ...openailike.Option) *openailike.Provider {
	return openailike.New(info, opts...)
}

// NewFromConfig creates an OpenAI provider from configuration.
func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	return openailike.NewFromConfig(info, cfg)
}
