package openailike

import "net/http"

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

// WithName overrides the provider name, allowing multiple registry entries
// of the same type.
func WithName(name string) Option {
	return func(p *Provider) { p.descriptor.Name = name }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.httpClient = client }
}

// WithHeader adds a custom header to every request.
func WithHeader(key, value string) Option {
	return func(p *Provider) { p.headers[key] = value }
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
