// Package types defines the core data structures exchanged between the
// router, provider adapters, cache, and metrics collector. Provider wire
// formats vary; everything is normalized into these shapes at the adapter
// boundary.
package types

import (
	"time"

	"github.com/goccy/go-json"
)

// Message roles accepted in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn in the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the unified input for all provider adapters.
// It is treated as immutable once submitted to the router.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

// ValidRole reports whether role is one of the accepted message roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Clone returns a deep copy of the request so callers can keep mutating
// their own value after submission.
func (r *ChatRequest) Clone() *ChatRequest {
	if r == nil {
		return nil
	}
	cp := &ChatRequest{
		Messages:  make([]ChatMessage, len(r.Messages)),
		MaxTokens: r.MaxTokens,
	}
	copy(cp.Messages, r.Messages)
	if r.Temperature != nil {
		t := *r.Temperature
		cp.Temperature = &t
	}
	if r.TopP != nil {
		p := *r.TopP
		cp.TopP = &p
	}
	return cp
}

// Usage contains token counts reported by the backend. Backends that omit
// usage fields yield zero values; zero means unknown, never an error.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the normalized result of a successful completion.
type ChatResponse struct {
	ID           string `json:"id,omitempty"`
	Model        string `json:"model,omitempty"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// Outcome records the result of one attempt against one provider, or the
// final user-facing result of a Complete call. Outcomes are append-only:
// once created they are never mutated.
type Outcome struct {
	RequestID string        `json:"request_id,omitempty"`
	Provider  string        `json:"provider"`
	Success   bool          `json:"success"`
	Response  *ChatResponse `json:"response,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	ErrorMsg  string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency_ns"`
	Cost      float64       `json:"cost"`
	Cached    bool          `json:"cached,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Tokens returns the input/output token counts from the attempt, zero when
// the backend did not report usage.
func (o *Outcome) Tokens() (input, output int) {
	if o.Response == nil || o.Response.Usage == nil {
		return 0, 0
	}
	return o.Response.Usage.PromptTokens, o.Response.Usage.CompletionTokens
}

// MarshalBinary lets Outcome values be stored directly in byte-oriented
// backends such as Redis.
func (o *Outcome) MarshalBinary() ([]byte, error) {
	return json.Marshal(o)
}
