// Package groq provides the Groq provider adapter. Groq exposes an
// OpenAI-compatible API backed by LPU inference hardware.
package groq

import (
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/providers/openailike"
)

var info = openailike.Info{
	Name:              "groq",
	DefaultBaseURL:    "https://api.groq.com/openai/v1",
	DefaultCostPer1K:  0.0008,
	DefaultSpeedClass: provider.SpeedFast,
	DefaultTags:       []string{"general", "fast"},
}

// New creates a Groq provider.
func New(opts ...openailike.Option) *openailike.Provider {
	return openailike.New(info, opts...)
}

// NewFromConfig creates a Groq provider from configuration.
func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	return openailike.NewFromConfig(info, cfg)
}
