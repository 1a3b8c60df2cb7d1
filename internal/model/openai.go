package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aiworld/gateway/internal/sse"
)

const (
	openaiBaseURL          = "https://api.openai.com/v1"
	perplexityBaseURL      = "https://api.perplexity.ai"
	chatCompletionsPath    = "/chat/completions"
	defaultOpenAIModel     = "gpt-3.5-turbo"
	defaultPerplexityModel = "pplx-7b-chat"

	// syncTimeout bounds non-streaming upstream calls. Streaming calls rely
	// on request-context cancellation instead of a wall-clock deadline.
	syncTimeout = 60 * time.Second

	defaultPersona = "You are a helpful AI assistant."
)

// chatCompletionRequest is the OpenAI-compatible chat completions payload,
// also spoken by Perplexity.
type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// openAICompatService implements Service for the OpenAI chat-completions
// wire format. Both the OpenAI and Perplexity families use it; they differ
// only in endpoint and defaults.
type openAICompatService struct {
	family  Family
	apiKey  string
	config  map[string]any
	baseURL string

	// Built by Init; immutable afterwards.
	settings     Settings
	syncClient   *http.Client
	streamClient *http.Client
	initialized  bool
}

// NewOpenAI constructs a Service for the OpenAI family.
func NewOpenAI(apiKey string, config map[string]any) Service {
	return &openAICompatService{
		family:  FamilyOpenAI,
		apiKey:  apiKey,
		config:  config,
		baseURL: openaiBaseURL,
	}
}

// NewPerplexity constructs a Service for the Perplexity family, which speaks
// the OpenAI-compatible protocol at its own endpoint.
func NewPerplexity(apiKey string, config map[string]any) Service {
	return &openAICompatService{
		family:  FamilyPerplexity,
		apiKey:  apiKey,
		config:  config,
		baseURL: perplexityBaseURL,
	}
}

func (s *openAICompatService) Init(_ context.Context) error {
	defaultModel := defaultOpenAIModel
	if s.family == FamilyPerplexity {
		defaultModel = defaultPerplexityModel
	}
	s.settings = settingsFromConfig(s.config, defaultModel, 0)
	if s.settings.BaseURL != "" {
		s.baseURL = s.settings.BaseURL
	}

	s.syncClient = &http.Client{Timeout: syncTimeout}
	s.streamClient = &http.Client{}
	s.initialized = true
	return nil
}

func (s *openAICompatService) Generate(ctx context.Context, message string, history []Message) (string, error) {
	if !s.initialized {
		return "", ErrUninitialized
	}

	req := chatCompletionRequest{
		Model:       s.settings.ModelName,
		Messages:    buildPrompt(s.settings, defaultPersona, message, history),
		Temperature: s.settings.Temperature,
		MaxTokens:   s.settings.MaxTokens,
	}

	var resp chatCompletionResponse
	url := s.baseURL + chatCompletionsPath
	if err := postJSON(ctx, s.syncClient, url, s.apiKey, req, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", s.family, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", s.family)
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *openAICompatService) GenerateStream(ctx context.Context, message string, history []Message) (Stream, error) {
	if !s.initialized {
		return nil, ErrUninitialized
	}

	req := chatCompletionRequest{
		Model:       s.settings.ModelName,
		Messages:    buildPrompt(s.settings, defaultPersona, message, history),
		Temperature: s.settings.Temperature,
		MaxTokens:   s.settings.MaxTokens,
		Stream:      true,
	}

	url := s.baseURL + chatCompletionsPath
	res, err := postStream(ctx, s.streamClient, url, s.apiKey, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.family, err)
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
				yield("", fmt.Errorf("%s: %w", s.family, err))
				return
			}

			var chunk chatCompletionChunk
			if err := unmarshalChunk(payload, &chunk); err != nil {
				yield("", fmt.Errorf("%s: parsing stream chunk: %w", s.family, err))
				return
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}, nil
}
