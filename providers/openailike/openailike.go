// Package openailike provides a base adapter for OpenAI-compatible backends.
// Most chat completion services follow OpenAI's wire format with minor
// variations; this package reduces duplication by providing the common
// request/response/error mapping.
package openailike

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/sentinelmux/sentinelmux/pkg/errors"
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// Info contains the per-backend constants baked into each concrete provider.
type Info struct {
	// Name is the provider identifier (e.g. "groq", "openrouter").
	Name string

	// DefaultBaseURL is the default API endpoint.
	DefaultBaseURL string

	// APIKeyHeader is the header name for API key authentication.
	// Default: "Authorization" with "Bearer " prefix.
	APIKeyHeader string

	// APIKeyPrefix is the prefix for the API key value.
	APIKeyPrefix string

	// ChatEndpoint is the path for chat completions.
	// Default: "/chat/completions".
	ChatEndpoint string

	// ProbeEndpoint is the path used for the liveness probe.
	// Default: "/models".
	ProbeEndpoint string

	// ExtraHeaders are additional headers included in every request.
	ExtraHeaders map[string]string

	// AllowPrivateBaseURL permits loopback/private hosts (local backends).
	AllowPrivateBaseURL bool

	// DefaultCostPer1K is the declared cost per 1K output tokens in USD.
	DefaultCostPer1K float64

	// DefaultSpeedClass is the declared relative speed class.
	DefaultSpeedClass string

	// DefaultTags are the default capability tags.
	DefaultTags []string
}

// Provider implements a generic OpenAI-compatible backend adapter.
type Provider struct {
	info       Info
	apiKey     string
	baseURL    string
	model      string
	headers    map[string]string
	httpClient *http.Client
	descriptor provider.Descriptor
}

// New creates a new OpenAI-like provider instance.
func New(info Info, opts ...Option) *Provider {
	p := &Provider{
		info:    info,
		baseURL: info.DefaultBaseURL,
		headers: make(map[string]string),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
		},
		descriptor: provider.Descriptor{
			Name:                  info.Name,
			Tags:                  info.DefaultTags,
			CostPer1KOutputTokens: info.DefaultCostPer1K,
			SpeedClass:            info.DefaultSpeedClass,
		},
	}
	if p.descriptor.SpeedClass == "" {
		p.descriptor.SpeedClass = provider.SpeedStandard
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig creates a provider from a Config struct.
func NewFromConfig(info Info, cfg provider.Config) (provider.Provider, error) {
	opts := []Option{
		WithAPIKey(cfg.APIKey),
		WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		if err := provider.ValidateBaseURL(cfg.BaseURL, info.AllowPrivateBaseURL); err != nil {
			return nil, err
		}
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.Name != "" {
		opts = append(opts, WithName(cfg.Name))
	}
	if cfg.CostPer1K > 0 {
		opts = append(opts, WithCostPer1K(cfg.CostPer1K))
	}
	if cfg.SpeedClass != "" {
		opts = append(opts, WithSpeedClass(cfg.SpeedClass))
	}
	if len(cfg.Tags) > 0 {
		opts = append(opts, WithTags(cfg.Tags...))
	}

	p := New(info, opts...)
	for k, v := range cfg.Headers {
		p.headers[k] = v
	}
	return p, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.descriptor.Name
}

// Describe returns the routing descriptor.
func (p *Provider) Describe() provider.Descriptor {
	return p.descriptor
}

// wireRequest is the OpenAI chat completion request body.
type wireRequest struct {
	Model       string              `json:"model"`
	Messages    []types.ChatMessage `json:"messages"`
	Temperature *float64            `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	TopP        *float64            `json:"top_p,omitempty"`
}

// wireResponse is the OpenAI chat completion response body. Optional fields
// (usage in particular) may be absent and must not fail the request.
type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *types.Usage `json:"usage,omitempty"`
}

// Complete performs one chat completion against the backend. Every failure
// mode is returned as a *errors.RouteError.
func (p *Provider) Complete(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	httpReq, err := p.buildRequest(ctx, req)
	if err != nil {
		return nil, errors.NewUnknownError(p.Name(), "build request: "+err.Error())
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.FromTransport(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, p.mapError(resp.StatusCode, body)
	}

	return p.parseResponse(resp)
}

// Probe is a cheap liveness check against the backend's model listing
// endpoint. Bounded by ctx; any 2xx-4xx answer counts as alive since the
// service is at least reachable and responding.
func (p *Provider) Probe(ctx context.Context) bool {
	endpoint := p.info.ProbeEndpoint
	if endpoint == "" {
		endpoint = "/models"
	}

	url := strings.TrimSuffix(p.baseURL, "/") + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	p.setAuthHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode < 500
}

func (p *Provider) buildRequest(ctx context.Context, req *types.ChatRequest) (*http.Request, error) {
	body, err := json.Marshal(wireRequest{
		Model:       p.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
	})
	if err != nil {
		return nil, err
	}

	endpoint := p.info.ChatEndpoint
	if endpoint == "" {
		endpoint = "/chat/completions"
	}

	url := strings.TrimSuffix(p.baseURL, "/") + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	p.setAuthHeaders(httpReq)
	return httpReq, nil
}

func (p *Provider) setAuthHeaders(httpReq *http.Request) {
	apiKeyHeader := p.info.APIKeyHeader
	if apiKeyHeader == "" {
		apiKeyHeader = "Authorization"
	}
	apiKeyPrefix := p.info.APIKeyPrefix
	if apiKeyPrefix == "" && apiKeyHeader == "Authorization" {
		apiKeyPrefix = "Bearer "
	}
	if p.apiKey != "" {
		httpReq.Header.Set(apiKeyHeader, apiKeyPrefix+p.apiKey)
	}

	for k, v := range p.info.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}
}

func (p *Provider) parseResponse(resp *http.Response) (*types.ChatResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewMalformedResponseError(p.Name(), "read response: "+err.Error())
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, errors.NewMalformedResponseError(p.Name(), "unmarshal response: "+err.Error())
	}
	if len(wire.Choices) == 0 {
		return nil, errors.NewMalformedResponseError(p.Name(), "response contains no choices")
	}

	return &types.ChatResponse{
		ID:           wire.ID,
		Model:        wire.Model,
		Content:      wire.Choices[0].Message.Content,
		FinishReason: wire.Choices[0].FinishReason,
		Usage:        wire.Usage,
	}, nil
}

// mapError converts a provider error response to a standardized error.
func (p *Provider) mapError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	name := p.Name()
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewAuthError(name, message)
	case http.StatusTooManyRequests:
		return errors.NewRateLimitError(name, message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.NewTimeoutError(name, message)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return errors.NewUnavailableError(name, message)
	default:
		return errors.NewUnknownError(name, message)
	}
}

var _ provider.Provider = (*Provider)(nil)
