// Package model provides the model-service abstraction over upstream LLM
// providers and the process-wide factory that caches one service per
// registered provider.
//
// A Service adapts one provider family's wire protocol to a common contract:
// initialize once, then generate full or streamed responses. Prompt assembly
// and persona fallback are shared across families (see prompt.go); only the
// wire format differs per family.
package model

import (
	"context"
	"errors"
	"iter"
)

var (
	// ErrUninitialized indicates a generation call before Init completed.
	ErrUninitialized = errors.New("model not initialized, call Init first")

	// ErrUnknownFamily indicates the provider family matches no registered
	// service constructor.
	ErrUnknownFamily = errors.New("unknown model provider family")
)

// Message roles in a prompt. History entries with any other role are skipped
// during prompt assembly.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry of a prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stream yields response chunks in arrival order. The sequence is finite and
// non-restartable; concatenating the yielded chunks gives the full response.
// A non-nil error terminates the sequence.
type Stream = iter.Seq2[string, error]

// Service is the per-provider adapter over one upstream chat model.
//
// Init must be called, and must succeed, before any generation call;
// generating on an uninitialized service fails with ErrUninitialized.
// Implementations are safe for concurrent use after Init: the held
// connection state is immutable once built, and streaming requests bind
// their own transport per call instead of reconfiguring a shared handle.
type Service interface {
	// Init builds the underlying chat-model connection from the credential
	// and configuration the service was constructed with.
	Init(ctx context.Context) error

	// Generate sends the message, preceded by the assembled history, and
	// returns the complete response text.
	Generate(ctx context.Context, message string, history []Message) (string, error)

	// GenerateStream is like Generate but yields the response incrementally
	// as chunks arrive from the upstream connection. Pre-stream failures are
	// returned directly; mid-stream failures are yielded through the
	// iterator.
	GenerateStream(ctx context.Context, message string, history []Message) (Stream, error)
}

// Settings are the configuration knobs shared by all families, extracted
// from the provider's free-form config map.
type Settings struct {
	ModelName     string
	Temperature   float64
	MaxTokens     int
	SystemMessage string
	Streaming     bool
	BaseURL       string
}

// settingsFromConfig extracts Settings from a provider config map, applying
// the given family defaults for absent keys. JSON numbers arrive as float64.
func settingsFromConfig(config map[string]any, defaultModel string, defaultMaxTokens int) Settings {
	s := Settings{
		ModelName:   defaultModel,
		Temperature: 0.7,
		MaxTokens:   defaultMaxTokens,
	}
	if config == nil {
		return s
	}

	if v, ok := config["model_name"].(string); ok && v != "" {
		s.ModelName = v
	}
	if v, ok := configNumber(config["temperature"]); ok {
		s.Temperature = v
	}
	if v, ok := configNumber(config["max_tokens"]); ok && v > 0 {
		s.MaxTokens = int(v)
	}
	if v, ok := config["system_message"].(string); ok {
		s.SystemMessage = v
	}
	if v, ok := config["streaming"].(bool); ok {
		s.Streaming = v
	}
	if v, ok := config["base_url"].(string); ok && v != "" {
		s.BaseURL = v
	}
	return s
}

// configNumber accepts the numeric types a JSONB round trip or a literal Go
// map can produce.
func configNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
