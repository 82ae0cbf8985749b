package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelmux/sentinelmux"
	"github.com/sentinelmux/sentinelmux/pkg/errors"
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/router"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

type stubProvider struct {
	name string
	tags []string
	err  error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Describe() provider.Descriptor {
	return provider.Descriptor{Name: s.name, Tags: s.tags, SpeedClass: provider.SpeedStandard}
}

func (s *stubProvider) Complete(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &types.ChatResponse{ID: "resp-1", Content: "pong"}, nil
}

func (s *stubProvider) Probe(ctx context.Context) bool { return true }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubProbes reports the named providers as down and everything else as up.
type stubProbes struct {
	down map[string]bool
}

func (s *stubProbes) Available(providerName string) bool { return !s.down[providerName] }

func newTestServer(t *testing.T, p *stubProvider, middleware ...func(http.Handler) http.Handler) *httptest.Server {
	t.Helper()
	return newTestServerProbes(t, []*stubProvider{p}, nil, middleware...)
}

func newTestServerProbes(t *testing.T, provs []*stubProvider, probes router.ProbeSource, middleware ...func(http.Handler) http.Handler) *httptest.Server {
	t.Helper()

	opts := []sentinelmux.Option{sentinelmux.WithoutCache()}
	for _, p := range provs {
		opts = append(opts, sentinelmux.WithProviderInstance(p))
	}
	client, err := sentinelmux.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	mux := http.NewServeMux()
	NewHandler(client, probes, testLogger()).RegisterRoutes(mux, middleware...)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func completionsBody() string {
	return `{"messages":[{"role":"user","content":"ping"}]}`
}

func TestChatCompletions(t *testing.T) {
	srv := newTestServer(t, &stubProvider{name: "stub"})

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(completionsBody()))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out types.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "pong", out.Content)
}

func TestChatCompletionsValidation(t *testing.T) {
	srv := newTestServer(t, &stubProvider{name: "stub"})

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(`{"messages":[]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, errors.KindValidation, out.Error.Kind)
}

func TestChatCompletionsUnknownStrategy(t *testing.T) {
	srv := newTestServer(t, &stubProvider{name: "stub"})

	body := `{"messages":[{"role":"user","content":"x"}],"strategy":"psychic"}`
	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatCompletionsStrategyHeader(t *testing.T) {
	srv := newTestServer(t, &stubProvider{name: "stub"})

	t.Run("valid header", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/chat/completions", strings.NewReader(completionsBody()))
		req.Header.Set(StrategyHeader, "cost")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown header strategy", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/chat/completions", strings.NewReader(completionsBody()))
		req.Header.Set(StrategyHeader, "psychic")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("body overrides header", func(t *testing.T) {
		body := `{"messages":[{"role":"user","content":"x"}],"strategy":"reliability"}`
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/chat/completions", strings.NewReader(body))
		req.Header.Set(StrategyHeader, "psychic")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestChatCompletionsAllFailed(t *testing.T) {
	srv := newTestServer(t, &stubProvider{
		name: "stub",
		err:  errors.NewUnavailableError("stub", "backend down"),
	})

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(completionsBody()))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var out ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, errors.KindAllFailed, out.Error.Kind)
	require.Len(t, out.Error.Attempts, 1)
	assert.Equal(t, "stub", out.Error.Attempts[0].Provider)
}

func TestListProviders(t *testing.T) {
	srv := newTestServer(t, &stubProvider{name: "stub"})

	resp, err := http.Get(srv.URL + "/v1/providers")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Providers []providerInfo `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Providers, 1)
	assert.Equal(t, "stub", out.Providers[0].Name)
	assert.Nil(t, out.Providers[0].Stats, "no traffic yet")
}

func TestListProvidersTagFilter(t *testing.T) {
	srv := newTestServerProbes(t, []*stubProvider{
		{name: "visionary", tags: []string{"supports-vision"}},
		{name: "plain"},
	}, nil)

	resp, err := http.Get(srv.URL + "/v1/providers?tag=supports-vision")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Providers []providerInfo `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Providers, 1)
	assert.Equal(t, "visionary", out.Providers[0].Name)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &stubProvider{name: "stub"})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, map[string]bool{"stub": true}, out.Providers, "no probe source means every provider reports available")
}

func TestHealthzReportsProbeVerdicts(t *testing.T) {
	srv := newTestServerProbes(t, []*stubProvider{
		{name: "alive"},
		{name: "flaky"},
	}, &stubProbes{down: map[string]bool{"flaky": true}})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, map[string]bool{"alive": true, "flaky": false}, out.Providers)
}

func signToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	srv := newTestServer(t, &stubProvider{name: "stub"}, JWTAuth(secret, testLogger()))

	t.Run("missing token", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(completionsBody()))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/chat/completions", strings.NewReader(completionsBody()))
		req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret"))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/chat/completions", strings.NewReader(completionsBody()))
		req.Header.Set("Authorization", "Bearer "+signToken(t, secret))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("healthz stays open", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, &stubProvider{name: "stub"}, RateLimit(1, 2))

	statuses := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(completionsBody()))
		require.NoError(t, err)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Contains(t, statuses, http.StatusOK)
	assert.Contains(t, statuses, http.StatusTooManyRequests)
}
