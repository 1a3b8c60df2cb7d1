package model

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aiworld/gateway/internal/sse"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com/v1"
	anthropicMessagesPath = "/messages"

	// anthropicVersion pins the Messages API wire format, versioned via
	// header independently of the URL.
	anthropicVersion = "2023-06-01"

	defaultAnthropicModel     = "claude-2.1"
	defaultAnthropicMaxTokens = 1024

	anthropicPersona = "You are Claude, a helpful AI assistant."
)

// anthropicRequest is the Messages API payload. Unlike the OpenAI format,
// the system directive is a top-level field and max_tokens is mandatory.
type anthropicRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// anthropicStreamEvent covers the event types of a Messages API stream;
// only content_block_delta carries text.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// anthropicService implements Service for Anthropic's Messages API.
type anthropicService struct {
	apiKey  string
	config  map[string]any
	baseURL string

	// Built by Init; immutable afterwards.
	settings     Settings
	syncClient   *http.Client
	streamClient *http.Client
	initialized  bool
}

// NewAnthropic constructs a Service for the Anthropic family.
func NewAnthropic(apiKey string, config map[string]any) Service {
	return &anthropicService{
		apiKey:  apiKey,
		config:  config,
		baseURL: anthropicBaseURL,
	}
}

func (s *anthropicService) Init(_ context.Context) error {
	s.settings = settingsFromConfig(s.config, defaultAnthropicModel, defaultAnthropicMaxTokens)
	if s.settings.BaseURL != "" {
		s.baseURL = s.settings.BaseURL
	}

	s.syncClient = &http.Client{Timeout: syncTimeout}
	s.streamClient = &http.Client{}
	s.initialized = true
	return nil
}

// headers returns the Anthropic auth headers. The credential travels in
// x-api-key, not a Bearer token, so the generic Authorization argument
// stays empty.
func (s *anthropicService) headers() []headerOption {
	return []headerOption{
		{key: "x-api-key", value: s.apiKey},
		{key: "anthropic-version", value: anthropicVersion},
	}
}

// buildRequest translates the shared prompt into the Messages API shape:
// the system entry moves to the top-level field, the rest stays in order.
func (s *anthropicService) buildRequest(message string, history []Message, stream bool) anthropicRequest {
	prompt := buildPrompt(s.settings, anthropicPersona, message, history)

	req := anthropicRequest{
		Model:       s.settings.ModelName,
		Temperature: s.settings.Temperature,
		MaxTokens:   s.settings.MaxTokens,
		Stream:      stream,
	}
	for _, m := range prompt {
		if m.Role == RoleSystem {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, m)
	}
	return req
}

func (s *anthropicService) Generate(ctx context.Context, message string, history []Message) (string, error) {
	if !s.initialized {
		return "", ErrUninitialized
	}

	var resp anthropicResponse
	url := s.baseURL + anthropicMessagesPath
	req := s.buildRequest(message, history, false)
	if err := postJSON(ctx, s.syncClient, url, "", req, &resp, s.headers()...); err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: no text content in response")
}

func (s *anthropicService) GenerateStream(ctx context.Context, message string, history []Message) (Stream, error) {
	if !s.initialized {
		return nil, ErrUninitialized
	}

	url := s.baseURL + anthropicMessagesPath
	req := s.buildRequest(message, history, true)
	res, err := postStream(ctx, s.streamClient, url, "", req, s.headers()...)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	scanner := sse.NewScanner(res.Body)

	return func(yield func(string, error) bool) {
		defer func() { _ = res.Body.Close() }()

		for {
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}

			payload, err := scanner.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("anthropic: %w", err))
				return
			}

			var event anthropicStreamEvent
			if err := unmarshalChunk(payload, &event); err != nil {
				yield("", fmt.Errorf("anthropic: parsing stream event: %w", err))
				return
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta.Text == "" {
					continue
				}
				if !yield(event.Delta.Text, nil) {
					return
				}
			case "message_stop":
				return
			default:
				// message_start, ping, content_block_start etc. carry no text.
			}
		}
	}, nil
}
