// Package provider defines the public interface for AI backend adapters.
// Each backend (OpenAI, Anthropic, a local Ollama daemon, ...) implements
// this interface to normalize its wire format and failure modes.
package provider

import (
	"context"
	"time"

	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// Speed classes declared per provider at configuration time. Lower ranks
// sort earlier when no observed latency data exists.
const (
	SpeedFast     = "fast"
	SpeedStandard = "standard"
	SpeedSlow     = "slow"
)

// SpeedRank maps a declared speed class to its sort rank. Unknown classes
// rank as standard.
func SpeedRank(class string) int {
	switch class {
	case SpeedFast:
		return 0
	case SpeedSlow:
		return 2
	default:
		return 1
	}
}

// Descriptor identifies a backend for routing purposes. Descriptors are
// created at configuration time and read-only thereafter.
type Descriptor struct {
	// Name is the provider identifier (e.g. "openai", "ollama").
	Name string `json:"name"`

	// Tags are capability tags (e.g. "supports-vision", "supports-tools").
	Tags []string `json:"tags,omitempty"`

	// CostPer1KOutputTokens is the declared unit cost in USD. Zero means
	// free (local backends).
	CostPer1KOutputTokens float64 `json:"cost_per_1k_output_tokens"`

	// SpeedClass is the declared relative speed: fast, standard, or slow.
	SpeedClass string `json:"speed_class"`
}

// HasTag reports whether the descriptor carries the given capability tag.
func (d Descriptor) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Provider is the adapter contract for one backend chat completion service.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Describe returns the immutable routing descriptor for this backend.
	Describe() Descriptor

	// Complete performs one chat completion against the backend. Failures
	// of any kind (transport, malformed response, provider-reported error)
	// are returned as a *errors.RouteError; Complete never panics and never
	// returns an error outside the taxonomy. The call is bounded by ctx.
	Complete(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error)

	// Probe is a cheap advisory liveness check. It must return within the
	// deadline on ctx; the executor may still attempt Complete after a
	// failed probe.
	Probe(ctx context.Context) bool
}

// Config contains provider-specific configuration loaded at startup.
type Config struct {
	Name       string
	Type       string
	APIKey     string
	BaseURL    string
	Model      string
	Tags       []string
	CostPer1K  float64
	SpeedClass string
	Headers    map[string]string
	Timeout    time.Duration
}

// Factory creates provider instances from configuration.
type Factory func(cfg Config) (Provider, error)
