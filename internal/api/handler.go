// Package api provides the HTTP gateway surface for the router.
package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sentinelmux/sentinelmux"
	"github.com/sentinelmux/sentinelmux/pkg/errors"
	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

const maxRequestBody = 10 << 20 // 10 MiB

// StrategyHeader carries a per-request routing strategy override. A strategy
// in the request body takes precedence over the header.
const StrategyHeader = "X-Routing-Strategy"

// Handler serves the gateway endpoints.
type Handler struct {
	client *sentinelmux.Client
	probes router.ProbeSource
	logger *slog.Logger
}

// NewHandler creates the gateway handler. probes feeds the per-provider
// availability in the health report and may be nil when probing is disabled.
func NewHandler(client *sentinelmux.Client, probes router.ProbeSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, probes: probes, logger: logger}
}

// ErrorResponse is the error envelope returned to gateway clients.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes the error payload.
type ErrorDetail struct {
	Message  string           `json:"message"`
	Kind     string           `json:"kind"`
	Attempts []errors.Attempt `json:"attempts,omitempty"`
}

// completionRequest is the gateway request body. The strategy field lets a
// caller override the configured default per request.
type completionRequest struct {
	Messages    []types.ChatMessage `json:"messages"`
	Temperature *float64            `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	TopP        *float64            `json:"top_p,omitempty"`
	Strategy    string              `json:"strategy,omitempty"`
}

// ChatCompletions handles POST /v1/chat/completions.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		h.writeError(w, errors.NewValidationError("read body: "+err.Error()))
		return
	}

	var in completionRequest
	if err := json.Unmarshal(body, &in); err != nil {
		h.writeError(w, errors.NewValidationError("parse body: "+err.Error()))
		return
	}

	req := &types.ChatRequest{
		Messages:    in.Messages,
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
		TopP:        in.TopP,
	}

	if in.Strategy == "" {
		in.Strategy = r.Header.Get(StrategyHeader)
	}
	strategy := router.Strategy(in.Strategy)
	if in.Strategy == "" {
		strategy = h.client.DefaultStrategy()
	} else if !strategy.Valid() {
		h.writeError(w, errors.NewValidationError("unknown strategy "+in.Strategy))
		return
	}

	resp, err := h.client.CompleteWithStrategy(r.Context(), req, strategy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// providerInfo is one entry of the provider listing, descriptor plus the
// rolling statistics when any outcomes have been recorded.
type providerInfo struct {
	Name      string                `json:"name"`
	Tags      []string              `json:"tags,omitempty"`
	CostPer1K float64               `json:"cost_per_1k_output_tokens"`
	Speed     string                `json:"speed_class"`
	Stats     *router.ProviderStats `json:"stats,omitempty"`
}

// ListProviders handles GET /v1/providers. The optional ?tag= query
// parameter narrows the listing to providers carrying that capability tag.
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	descriptors := h.client.Providers()
	out := make([]providerInfo, 0, len(descriptors))
	for _, d := range descriptors {
		if tag != "" && !d.HasTag(tag) {
			continue
		}
		info := providerInfo{
			Name:      d.Name,
			Tags:      d.Tags,
			CostPer1K: d.CostPer1KOutputTokens,
			Speed:     d.SpeedClass,
		}
		if stats, ok := h.client.Stats(d.Name); ok {
			info.Stats = &stats
		}
		out = append(out, info)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

// CacheStats handles GET /v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.client.CacheStats())
}

// healthResponse reports gateway liveness plus the latest advisory probe
// verdict per provider. Probe failures are advisory, so the overall status
// stays ok as long as the gateway itself is serving.
type healthResponse struct {
	Status    string          `json:"status"`
	Providers map[string]bool `json:"providers"`
}

// Healthz handles GET /healthz. Without a probe source every provider is
// reported available.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	out := healthResponse{Status: "ok", Providers: make(map[string]bool)}
	for _, d := range h.client.Providers() {
		available := true
		if h.probes != nil {
			available = h.probes.Available(d.Name)
		}
		out.Providers[d.Name] = available
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	detail := ErrorDetail{
		Message: err.Error(),
		Kind:    errors.KindOf(err),
	}
	status := http.StatusInternalServerError

	switch e := err.(type) {
	case *errors.RouteError:
		status = e.HTTPStatusCode()
	case *errors.AllFailedError:
		status = e.HTTPStatusCode()
		detail.Attempts = e.Attempts
	}

	h.writeJSON(w, status, ErrorResponse{Error: detail})
}
