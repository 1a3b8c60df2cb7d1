// Package api exposes the gateway over HTTP: provider registration and
// lifecycle, synchronous and streamed chat, conversation history, and tool
// invocation, all as JSON under /api/v1 plus health probes at the root.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiworld/gateway/internal/chat"
	"github.com/aiworld/gateway/internal/log"
	"github.com/aiworld/gateway/internal/store"
	"github.com/aiworld/gateway/internal/tools"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds request-header reads (Slowloris).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Streamed chat responses can run long, so this is generous.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second

	// maxRequestBody caps JSON request bodies.
	maxRequestBody = 1 << 20
)

// ProviderStore is the persistence surface the provider handlers need.
// Implemented by store.Store.
type ProviderStore interface {
	CreateProvider(ctx context.Context, arg store.CreateProviderParams) (*store.Provider, error)
	GetProvider(ctx context.Context, id int64) (*store.Provider, error)
	ListProviders(ctx context.Context) ([]store.Provider, error)
	UpdateProvider(ctx context.Context, id int64, arg store.UpdateProviderParams) (*store.Provider, error)
	DeleteProvider(ctx context.Context, id int64) error
}

// ModelFactory is the model-service cache surface the handlers need.
// Implemented by model.Factory.
type ModelFactory interface {
	Probe(ctx context.Context, family, apiKey string, cfg map[string]any) error
	Remove(providerID int64)
}

// ChatService is the chat orchestration surface. Implemented by chat.Service.
type ChatService interface {
	Send(ctx context.Context, req chat.Request) (*chat.Result, error)
	Stream(ctx context.Context, req chat.Request) (*chat.StreamSession, error)
	History(ctx context.Context, providerID int64, conversationID *uuid.UUID) ([]store.Turn, error)
}

// ToolRegistry is the tool catalog surface. Implemented by tools.Registry.
type ToolRegistry interface {
	Definitions() []tools.Definition
	ProviderDefinitions(providerID int64, toolIDs []string) []tools.Definition
	Execute(ctx context.Context, toolID string, providerID int64, params map[string]any) (any, error)
	RemoveProvider(providerID int64)
}

// SecretSource resolves upstream API keys by provider family.
// Implemented by config.Secrets.
type SecretSource interface {
	APIKey(family string) (string, error)
}

// ServerConfig contains the dependencies for creating the API server.
type ServerConfig struct {
	Logger      log.Logger
	Store       ProviderStore // Required
	Chat        ChatService   // Required
	Models      ModelFactory  // Required
	Secrets     SecretSource  // Required
	Tools       ToolRegistry  // Required
	Pool        *pgxpool.Pool // Optional: nil degrades /ready to a liveness check
	CORSOrigins []string
	Version     string
}

// Server is the gateway HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates a server with all routes registered and the middleware
// stack applied.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("provider store is required")
	}
	if cfg.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.Models == nil {
		return nil, errors.New("model factory is required")
	}
	if cfg.Secrets == nil {
		return nil, errors.New("secret source is required")
	}
	if cfg.Tools == nil {
		return nil, errors.New("tool registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ph := &providerHandler{
		store:   cfg.Store,
		models:  cfg.Models,
		secrets: cfg.Secrets,
		tools:   cfg.Tools,
		logger:  logger,
	}
	ch := &chatHandler{chat: cfg.Chat, logger: logger}
	th := &toolsHandler{registry: cfg.Tools, store: cfg.Store, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/providers", ph.create)
	mux.HandleFunc("GET /api/v1/providers", ph.list)
	mux.HandleFunc("GET /api/v1/providers/{id}", ph.get)
	mux.HandleFunc("PUT /api/v1/providers/{id}", ph.update)
	mux.HandleFunc("DELETE /api/v1/providers/{id}", ph.delete)

	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/chat/stream", ch.stream)
	mux.HandleFunc("GET /api/v1/chat/history/{providerID}", ch.history)

	mux.HandleFunc("GET /api/v1/tools", th.list)
	mux.HandleFunc("GET /api/v1/tools/{providerID}", th.providerTools)
	mux.HandleFunc("POST /api/v1/tools/{providerID}/execute", th.execute)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → CORS → Routes
	// RequestID sits above Logging so request_id is available in log attributes.
	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes and the info endpoint stay outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.HandleFunc("GET /{$}", info(cfg.Version, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
