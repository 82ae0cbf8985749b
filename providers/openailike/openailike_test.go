package openailike

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelmux/sentinelmux/pkg/errors"
	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

func testInfo() Info {
	return Info{
		Name:              "testbackend",
		DefaultCostPer1K:  0.001,
		DefaultSpeedClass: provider.SpeedFast,
	}
}

func chatRequest() *types.ChatRequest {
	return &types.ChatRequest{
		Messages: []types.ChatMessage{{Role: types.RoleUser, Content: "hello"}},
	}
}

func okBody() map[string]any {
	return map[string]any{
		"id":    "chatcmpl-123",
		"model": "test-model",
		"choices": []map[string]any{{
			"message":       map[string]any{"role": "assistant", "content": "hi there"},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 8,
			"total_tokens":      20,
		},
	}
}

func TestCompleteSuccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody wireRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(okBody())
	}))
	defer srv.Close()

	p := New(testInfo(),
		WithBaseURL(srv.URL),
		WithAPIKey("sk-test"),
		WithModel("test-model"),
	)

	resp, err := p.Complete(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "test-model", gotBody.Model)

	assert.Equal(t, "chatcmpl-123", resp.ID)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 8, resp.Usage.CompletionTokens)
}

func TestCompleteMapsErrorStatuses(t *testing.T) {
	cases := []struct {
		status int
		kind   string
	}{
		{http.StatusUnauthorized, errors.KindAuthFailure},
		{http.StatusForbidden, errors.KindAuthFailure},
		{http.StatusTooManyRequests, errors.KindRateLimited},
		{http.StatusGatewayTimeout, errors.KindTimeout},
		{http.StatusServiceUnavailable, errors.KindUnavailable},
		{http.StatusInternalServerError, errors.KindUnknown},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "backend says no", "type": "test"},
			})
		}))

		p := New(testInfo(), WithBaseURL(srv.URL))
		_, err := p.Complete(context.Background(), chatRequest())
		srv.Close()

		require.Error(t, err, "status %d", tc.status)
		var re *errors.RouteError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, tc.kind, re.Kind, "status %d", tc.status)
		assert.Equal(t, "backend says no", re.Message)
		assert.Equal(t, "testbackend", re.Provider)
	}
}

func TestCompleteMalformedResponse(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"no choices", `{"id":"x","choices":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			p := New(testInfo(), WithBaseURL(srv.URL))
			_, err := p.Complete(context.Background(), chatRequest())
			assert.Equal(t, errors.KindMalformedResponse, errors.KindOf(err))
		})
	}
}

func TestCompleteUnreachableBackend(t *testing.T) {
	p := New(testInfo(), WithBaseURL("http://127.0.0.1:1"))

	_, err := p.Complete(context.Background(), chatRequest())
	assert.Equal(t, errors.KindUnavailable, errors.KindOf(err))
}

func TestCompleteContextDeadline(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	p := New(testInfo(), WithBaseURL(srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Complete(ctx, chatRequest())
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
}

func TestProbe(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	p := New(testInfo(), WithBaseURL(srv.URL))
	assert.True(t, p.Probe(context.Background()))
	assert.Equal(t, "/models", gotPath)
}

func TestProbeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(testInfo(), WithBaseURL(srv.URL))
	assert.False(t, p.Probe(context.Background()))
}

func TestProbeUnreachable(t *testing.T) {
	p := New(testInfo(), WithBaseURL("http://127.0.0.1:1"))
	assert.False(t, p.Probe(context.Background()))
}

func TestDescriptorOverrides(t *testing.T) {
	p := New(testInfo(),
		WithName("custom"),
		WithCostPer1K(0.05),
		WithSpeedClass(provider.SpeedSlow),
		WithTags("special"),
	)

	d := p.Describe()
	assert.Equal(t, "custom", d.Name)
	assert.Equal(t, 0.05, d.CostPer1KOutputTokens)
	assert.Equal(t, provider.SpeedSlow, d.SpeedClass)
	assert.Equal(t, []string{"special"}, d.Tags)
}

func TestNewFromConfigRejectsPrivateBaseURL(t *testing.T) {
	_, err := NewFromConfig(testInfo(), provider.Config{
		BaseURL: "http://169.254.169.254/v1",
	})
	assert.Error(t, err)
}
