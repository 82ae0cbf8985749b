// Package providers maintains the registry of provider factories keyed by
// type name, so configuration files can instantiate adapters by type.
package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/providers/anthropic"
	"github.com/sentinelmux/sentinelmux/providers/groq"
	"github.com/sentinelmux/sentinelmux/providers/ollama"
	"github.com/sentinelmux/sentinelmux/providers/openai"
	"github.com/sentinelmux/sentinelmux/providers/openrouter"
)

var (
	mu        sync.RWMutex
	factories = make(map[string]provider.Factory)
)

func init() {
	Register("openai", openai.NewFromConfig)
	Register("anthropic", anthropic.NewFromConfig)
	Register("groq", groq.NewFromConfig)
	Register("openrouter", openrouter.NewFromConfig)
	Register("ollama", ollama.NewFromConfig)
}

// Register adds a provider factory under a type name. Later registrations
// replace earlier ones.
func Register(typ string, factory provider.Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[typ] = factory
}

// Create instantiates a provider from its configuration. The cfg.Type field
// selects the factory; empty Type falls back to cfg.Name.
func Create(cfg provider.Config) (provider.Provider, error) {
	typ := cfg.Type
	if typ == "" {
		typ = cfg.Name
	}

	mu.RLock()
	factory, ok := factories[typ]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider type %q (registered: %v)", typ, Types())
	}
	return factory(cfg)
}

// Types returns the registered type names in sorted order.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for typ := range factories {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}
