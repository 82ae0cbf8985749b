package api

import (
	"net/http"

	"github.com/goccy/go-json"
)

// RegisterRoutes registers the gateway endpoints on the given mux, wrapping
// the completion route with the supplied middleware in order.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, middleware ...func(http.Handler) http.Handler) {
	wrap := func(handler http.Handler) http.Handler {
		for i := len(middleware) - 1; i >= 0; i-- {
			handler = middleware[i](handler)
		}
		return handler
	}

	mux.Handle("POST /v1/chat/completions", wrap(http.HandlerFunc(h.ChatCompletions)))
	mux.Handle("GET /v1/providers", wrap(http.HandlerFunc(h.ListProviders)))
	mux.Handle("GET /v1/cache/stats", wrap(http.HandlerFunc(h.CacheStats)))

	// Liveness stays unauthenticated for load balancers.
	mux.HandleFunc("GET /healthz", h.Healthz)
}

func writeStatic(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
