// Package sentinelmux routes chat completion requests across multiple AI
// providers with response caching, rolling per-provider metrics, pluggable
// routing strategies, and sequential fallback.
//
// Basic usage:
//
//	client, err := sentinelmux.New(
//		sentinelmux.WithProvider(provider.Config{Type: "groq", APIKey: os.Getenv("GROQ_API_KEY"), Model: "llama-3.3-70b-versatile"}),
//		sentinelmux.WithProvider(provider.Config{Type: "openai", APIKey: os.Getenv("OPENAI_API_KEY"), Model: "gpt-4o-mini"}),
//		sentinelmux.WithStrategy(router.StrategyCost),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.Complete(ctx, &types.ChatRequest{
//		Messages: []types.ChatMessage{{Role: types.RoleUser, Content: "hello"}},
//	})
package sentinelmux

import (
	"github.com/sentinelmux/sentinelmux/pkg/errors"
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// Common types re-exported so that basic use needs only this package.
type (
	ChatRequest  = types.ChatRequest
	ChatMessage  = types.ChatMessage
	ChatResponse = types.ChatResponse
	Outcome      = types.Outcome
	Usage        = types.Usage

	Provider   = provider.Provider
	Descriptor = provider.Descriptor

	Strategy       = router.Strategy
	ProviderStats  = router.ProviderStats
	RouteError     = errors.RouteError
	AllFailedError = errors.AllFailedError
)

// Routing strategies.
const (
	StrategyCost        = router.StrategyCost
	StrategyPerformance = router.StrategyPerformance
	StrategyReliability = router.StrategyReliability
	StrategyAdaptive    = router.StrategyAdaptive
)
