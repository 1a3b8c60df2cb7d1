// Package chat orchestrates a single chat exchange: resolve the provider,
// bind its model service, assemble prior conversation history, generate or
// stream the response, and persist the resulting turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aiworld/gateway/internal/config"
	"github.com/aiworld/gateway/internal/log"
	"github.com/aiworld/gateway/internal/model"
	"github.com/aiworld/gateway/internal/store"
)

// Store is the persistence surface the orchestrator needs.
type Store interface {
	GetProvider(ctx context.Context, id int64) (*store.Provider, error)
	CreateTurn(ctx context.Context, arg store.CreateTurnParams) (*store.Turn, error)
	ListTurnsByConversation(ctx context.Context, conversationID uuid.UUID) ([]store.Turn, error)
	ListTurnsByProvider(ctx context.Context, providerID int64, conversationID *uuid.UUID) ([]store.Turn, error)
}

// Models resolves a ready-to-use model service for a registered provider.
// Implemented by model.Factory.
type Models interface {
	Get(ctx context.Context, providerID int64, family, apiKey string, cfg map[string]any) (model.Service, error)
}

// Secrets resolves an upstream API key by provider family.
// Implemented by config.Secrets.
type Secrets interface {
	APIKey(family string) (string, error)
}

// Sink receives streamed output. Implemented by sse.Writer.
type Sink interface {
	WriteMessage(ctx context.Context, chunk string) error
	WriteError(code, message string) error
}

// Request is one chat exchange to perform against a registered provider.
// A zero ConversationID starts a new conversation.
type Request struct {
	ProviderID     int64
	Message        string
	ConversationID uuid.UUID
	Metadata       map[string]any
	Stream         bool
}

func (r Request) validate() error {
	if r.ProviderID <= 0 {
		return fmt.Errorf("%w: provider_id is required", ErrValidation)
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("%w: message must not be empty", ErrValidation)
	}
	return nil
}

// Result is the outcome of a completed synchronous exchange.
type Result struct {
	Turn     *store.Turn
	Provider *store.Provider
}

// Service is the chat orchestrator.
type Service struct {
	store   Store
	models  Models
	secrets Secrets
	logger  log.Logger
}

// New builds a chat Service.
func New(st Store, models Models, secrets Secrets, logger log.Logger) *Service {
	return &Service{
		store:   st,
		models:  models,
		secrets: secrets,
		logger:  logger,
	}
}

// session carries the resolved state shared by Send and Stream.
type session struct {
	provider       *store.Provider
	service        model.Service
	history        []model.Message
	conversationID uuid.UUID
}

// resolve looks up the provider, binds its credential and model service, and
// loads prior history when the request continues an existing conversation.
func (s *Service) resolve(ctx context.Context, req Request) (*session, error) {
	provider, err := s.store.GetProvider(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: provider %d", ErrNotFound, req.ProviderID)
		}
		return nil, fmt.Errorf("%w: load provider: %v", ErrPersistence, err)
	}

	apiKey, err := s.secrets.APIKey(provider.Family)
	if err != nil {
		if errors.Is(err, config.ErrUnknownSecretFamily) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	svc, err := s.models.Get(ctx, provider.ID, provider.Family, apiKey, provider.Config)
	if err != nil {
		if errors.Is(err, model.ErrUnknownFamily) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	sess := &session{
		provider:       provider,
		service:        svc,
		conversationID: req.ConversationID,
	}

	if req.ConversationID != uuid.Nil {
		turns, err := s.store.ListTurnsByConversation(ctx, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("%w: load history: %v", ErrPersistence, err)
		}
		sess.history = flattenHistory(turns)
	} else {
		sess.conversationID = uuid.New()
	}
	return sess, nil
}

// Send performs one synchronous exchange: generate the full response, persist
// the turn, and return it. Nothing is persisted when generation fails.
func (s *Service) Send(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	sess, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, err := sess.service.Generate(ctx, req.Message, sess.history)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	turn, err := s.store.CreateTurn(ctx, store.CreateTurnParams{
		ProviderID:       sess.provider.ID,
		ConversationID:   sess.conversationID,
		UserMessage:      req.Message,
		AssistantMessage: answer,
		Metadata:         req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: save turn: %v", ErrPersistence, err)
	}

	s.logger.Info("chat turn completed",
		"provider_id", sess.provider.ID,
		"conversation_id", sess.conversationID,
		"response_chars", len(answer))

	return &Result{Turn: turn, Provider: sess.provider}, nil
}

// StreamSession is an opened streaming exchange. Obtain one from Stream,
// then drain it with Forward.
type StreamSession struct {
	Provider       *store.Provider
	ConversationID uuid.UUID

	svc     *Service
	req     Request
	stream  model.Stream
	drained bool
}

// Stream opens a streaming exchange. All resolution failures, including the
// initial upstream connection, are returned here so the caller can still
// answer with a plain HTTP error before any event bytes go out.
func (s *Service) Stream(ctx context.Context, req Request) (*StreamSession, error) {
	if !req.Stream {
		return nil, fmt.Errorf("%w: stream must be true", ErrValidation)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	sess, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	stream, err := sess.service.GenerateStream(ctx, req.Message, sess.history)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return &StreamSession{
		Provider:       sess.provider,
		ConversationID: sess.conversationID,
		svc:            s,
		req:            req,
		stream:         stream,
	}, nil
}

// Forward drains the upstream stream into the sink one chunk per message
// event, then persists the accumulated turn. Chunks already delivered cannot
// be retracted, so a persistence failure after delivery is reported through
// an error event and returned; the stream itself still completed.
func (ss *StreamSession) Forward(ctx context.Context, sink Sink) error {
	if ss.drained {
		return fmt.Errorf("%w: stream already consumed", ErrValidation)
	}
	ss.drained = true

	var full strings.Builder
	for chunk, err := range ss.stream {
		if err != nil {
			_ = sink.WriteError("upstream_error", err.Error())
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		full.WriteString(chunk)
		if werr := sink.WriteMessage(ctx, chunk); werr != nil {
			return fmt.Errorf("write chunk: %w", werr)
		}
	}

	_, err := ss.svc.store.CreateTurn(ctx, store.CreateTurnParams{
		ProviderID:       ss.Provider.ID,
		ConversationID:   ss.ConversationID,
		UserMessage:      ss.req.Message,
		AssistantMessage: full.String(),
		Metadata:         ss.req.Metadata,
	})
	if err != nil {
		ss.svc.logger.Error("failed to save streamed turn",
			"provider_id", ss.Provider.ID,
			"conversation_id", ss.ConversationID,
			"error", err)
		_ = sink.WriteError("persistence_error", "response delivered but could not be saved")
		return fmt.Errorf("%w: save turn: %v", ErrPersistence, err)
	}

	ss.svc.logger.Info("chat stream completed",
		"provider_id", ss.Provider.ID,
		"conversation_id", ss.ConversationID,
		"response_chars", full.Len())
	return nil
}

// History returns a provider's persisted turns in ascending creation order,
// optionally narrowed to one conversation. An unknown provider is an error;
// a known provider with no turns yields an empty slice.
func (s *Service) History(ctx context.Context, providerID int64, conversationID *uuid.UUID) ([]store.Turn, error) {
	if _, err := s.store.GetProvider(ctx, providerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: provider %d", ErrNotFound, providerID)
		}
		return nil, fmt.Errorf("%w: load provider: %v", ErrPersistence, err)
	}

	turns, err := s.store.ListTurnsByProvider(ctx, providerID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: load history: %v", ErrPersistence, err)
	}
	return turns, nil
}
