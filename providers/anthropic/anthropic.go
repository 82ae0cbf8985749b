// Package anthropic provides the Anthropic provider adapter. Anthropic's
// Messages API differs from the OpenAI wire format: system prompts travel in
// a dedicated field, max_tokens is mandatory, and content arrives as typed
// blocks, so this adapter maps the formats directly instead of going through
// the openailike base.
package anthropic

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

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
)

// Provider implements the Anthropic Messages API.
type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	headers    map[string]string
	httpClient *http.Client
	descriptor provider.Descriptor
}

// Option configures a Provider.
type Option func(*Provider)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(p *Provider) { p.apiKey = key }
}

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithModel sets the model requested from the backend.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.httpClient = client }
}

// WithName overrides the provider name.
func WithName(name string) Option {
	return func(p *Provider) { p.descriptor.Name = name }
}

// WithCostPer1K sets the declared cost per 1K output tokens.
func WithCostPer1K(cost float64) Option {
	return func(p *Provider) { p.descriptor.CostPer1KOutputTokens = cost }
}

// WithSpeedClass sets the declared speed class.
func WithSpeedClass(class string) Option {
	return func(p *Provider) { p.descriptor.SpeedClass = class }
}

// WithTags sets the capability tags.
func WithTags(tags ...string) Option {
	return func(p *Provider) { p.descriptor.Tags = tags }
}

// New creates an Anthropic provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL: defaultBaseURL,
		headers: make(map[string]string),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
		},
		descriptor: provider.Descriptor{
			Name:                  "anthropic",
			Tags:                  []string{"general", "code", "long-context"},
			CostPer1KOutputTokens: 0.015,
			SpeedClass:            provider.SpeedStandard,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig creates an Anthropic provider from configuration.
func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	opts := []Option{
		WithAPIKey(cfg.APIKey),
		WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		if err := provider.ValidateBaseURL(cfg.BaseURL, false); err != nil {
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

	p := New(opts...)
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

type wireRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete performs one chat completion against the Messages API.
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

// Probe checks the model listing endpoint for liveness.
func (p *Provider) Probe(ctx context.Context) bool {
	url := strings.TrimSuffix(p.baseURL, "/") + "/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	p.setHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode < 500
}

func (p *Provider) buildRequest(ctx context.Context, req *types.ChatRequest) (*http.Request, error) {
	wire := wireRequest{
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	if wire.MaxTokens <= 0 {
		wire.MaxTokens = defaultMaxTokens
	}

	// System messages move into the dedicated field; multiple system
	// messages are concatenated in order.
	var system []string
	for _, msg := range req.Messages {
		if msg.Role == types.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		wire.Messages = append(wire.Messages, wireMessage{Role: msg.Role, Content: msg.Content})
	}
	wire.System = strings.Join(system, "\n\n")

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}

	url := strings.TrimSuffix(p.baseURL, "/") + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	p.setHeaders(httpReq)
	return httpReq, nil
}

func (p *Provider) setHeaders(httpReq *http.Request) {
	if p.apiKey != "" {
		httpReq.Header.Set("x-api-key", p.apiKey)
	}
	httpReq.Header.Set("anthropic-version", apiVersion)
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

	var text strings.Builder
	for _, block := range wire.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, errors.NewMalformedResponseError(p.Name(), "response contains no text content")
	}

	return &types.ChatResponse{
		ID:           wire.ID,
		Model:        wire.Model,
		Content:      text.String(),
		FinishReason: mapStopReason(wire.StopReason),
		Usage: &types.Usage{
			PromptTokens:     wire.Usage.InputTokens,
			CompletionTokens: wire.Usage.OutputTokens,
			TotalTokens:      wire.Usage.InputTokens + wire.Usage.OutputTokens,
		},
	}, nil
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}

func (p *Provider) mapError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
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
