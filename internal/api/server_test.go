package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworld/gateway/internal/chat"
	"github.com/aiworld/gateway/internal/config"
	"github.com/aiworld/gateway/internal/log"
	"github.com/aiworld/gateway/internal/model"
	"github.com/aiworld/gateway/internal/store"
	"github.com/aiworld/gateway/internal/tools"
)

// fakeStore implements ProviderStore and chat.Store over maps.
type fakeStore struct {
	providers map[int64]*store.Provider
	turns     []store.Turn
	nextID    int64

	createTurnErr error
}

func newFakeStore(providers ...*store.Provider) *fakeStore {
	f := &fakeStore{providers: make(map[int64]*store.Provider)}
	for _, p := range providers {
		f.providers[p.ID] = p
		if p.ID > f.nextID {
			f.nextID = p.ID
		}
	}
	return f
}

func (f *fakeStore) CreateProvider(_ context.Context, arg store.CreateProviderParams) (*store.Provider, error) {
	for _, p := range f.providers {
		if p.Name == arg.Name {
			return nil, store.ErrDuplicateName
		}
	}
	f.nextID++
	p := &store.Provider{
		ID:      f.nextID,
		Name:    arg.Name,
		Family:  arg.Family,
		Config:  arg.Config,
		ToolIDs: arg.ToolIDs,
	}
	f.providers[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetProvider(_ context.Context, id int64) (*store.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListProviders(_ context.Context) ([]store.Provider, error) {
	out := make([]store.Provider, 0, len(f.providers))
	for _, p := range f.providers {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) UpdateProvider(_ context.Context, id int64, arg store.UpdateProviderParams) (*store.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if arg.Name != nil {
		p.Name = *arg.Name
	}
	if arg.Family != nil {
		p.Family = *arg.Family
	}
	if arg.Config != nil {
		p.Config = arg.Config
	}
	if arg.ToolIDs != nil {
		p.ToolIDs = arg.ToolIDs
	}
	return p, nil
}

func (f *fakeStore) DeleteProvider(_ context.Context, id int64) error {
	if _, ok := f.providers[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.providers, id)
	return nil
}

func (f *fakeStore) CreateTurn(_ context.Context, arg store.CreateTurnParams) (*store.Turn, error) {
	if f.createTurnErr != nil {
		return nil, f.createTurnErr
	}
	turn := store.Turn{
		ID:               int64(len(f.turns) + 1),
		ProviderID:       arg.ProviderID,
		ConversationID:   arg.ConversationID,
		UserMessage:      arg.UserMessage,
		AssistantMessage: arg.AssistantMessage,
		Metadata:         arg.Metadata,
	}
	f.turns = append(f.turns, turn)
	return &turn, nil
}

func (f *fakeStore) ListTurnsByConversation(_ context.Context, conversationID uuid.UUID) ([]store.Turn, error) {
	var out []store.Turn
	for _, t := range f.turns {
		if t.ConversationID == conversationID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTurnsByProvider(_ context.Context, providerID int64, conversationID *uuid.UUID) ([]store.Turn, error) {
	var out []store.Turn
	for _, t := range f.turns {
		if t.ProviderID != providerID {
			continue
		}
		if conversationID != nil && t.ConversationID != *conversationID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// fakeModel implements model.Service with canned responses.
type fakeModel struct {
	response string
	chunks   []string
}

func (f *fakeModel) Init(context.Context) error { return nil }

func (f *fakeModel) Generate(context.Context, string, []model.Message) (string, error) {
	return f.response, nil
}

func (f *fakeModel) GenerateStream(context.Context, string, []model.Message) (model.Stream, error) {
	return func(yield func(string, error) bool) {
		for _, c := range f.chunks {
			if !yield(c, nil) {
				return
			}
		}
	}, nil
}

// fakeFactory implements ModelFactory and chat.Models.
type fakeFactory struct {
	svc      model.Service
	probeErr error

	probed  bool
	removed []int64
}

func (f *fakeFactory) Get(_ context.Context, _ int64, _, _ string, _ map[string]any) (model.Service, error) {
	return f.svc, nil
}

func (f *fakeFactory) Probe(context.Context, string, string, map[string]any) error {
	f.probed = true
	return f.probeErr
}

func (f *fakeFactory) Remove(providerID int64) {
	f.removed = append(f.removed, providerID)
}

type fixture struct {
	store   *fakeStore
	factory *fakeFactory
	handler http.Handler
}

func newFixture(t *testing.T, st *fakeStore, factory *fakeFactory) *fixture {
	t.Helper()

	secrets := config.NewSecretsFromMap(map[string]string{
		"OPENAI_API_KEY":    "sk-test",
		"ANTHROPIC_API_KEY": "sk-ant-test",
	})
	registry, err := tools.NewDefaultRegistry()
	require.NoError(t, err)

	chatSvc := chat.New(st, factory, secrets, log.NewNop())

	srv, err := NewServer(ServerConfig{
		Logger:      log.NewNop(),
		Store:       st,
		Chat:        chatSvc,
		Models:      factory,
		Secrets:     secrets,
		Tools:       registry,
		CORSOrigins: []string{"http://localhost:5173"},
		Version:     "test",
	})
	require.NoError(t, err)

	return &fixture{store: st, factory: factory, handler: srv.Handler()}
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func openaiProvider() *store.Provider {
	return &store.Provider{
		ID: 1, Name: "assistant", Family: "openai",
		ToolIDs: []string{tools.CalculatorID},
	}
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestHealthAndInfo(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeStore(), &fakeFactory{})

	rec := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "aiworld-gateway", body["name"])
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeStore(), &fakeFactory{})

	rec := f.do(http.MethodGet, "/api/v1/providers", nil)
	id := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeStore(), &fakeFactory{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/providers", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateProvider(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, newFakeStore(), &fakeFactory{svc: &fakeModel{}})

		rec := f.do(http.MethodPost, "/api/v1/providers", map[string]any{
			"name":   "my-gpt",
			"family": "openai",
			"config": map[string]any{"model_name": "gpt-4"},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.True(t, f.factory.probed, "create must validate via a real service probe")

		var p store.Provider
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, "my-gpt", p.Name)
		assert.NotZero(t, p.ID)
	})

	t.Run("probe failure", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, newFakeStore(), &fakeFactory{probeErr: errors.New("invalid key")})

		rec := f.do(http.MethodPost, "/api/v1/providers", map[string]any{
			"name":   "bad",
			"family": "openai",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate name", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, newFakeStore(openaiProvider()), &fakeFactory{svc: &fakeModel{}})

		rec := f.do(http.MethodPost, "/api/v1/providers", map[string]any{
			"name":   "assistant",
			"family": "openai",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty name", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, newFakeStore(), &fakeFactory{})

		rec := f.do(http.MethodPost, "/api/v1/providers", map[string]any{
			"name":   "  ",
			"family": "openai",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown family", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, newFakeStore(), &fakeFactory{})

		rec := f.do(http.MethodPost, "/api/v1/providers", map[string]any{
			"name":   "x",
			"family": "acme",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetProvider(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeStore(openaiProvider()), &fakeFactory{})

	rec := f.do(http.MethodGet, "/api/v1/providers/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/providers/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/providers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProvider(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeStore(openaiProvider()), &fakeFactory{svc: &fakeModel{}})

	rec := f.do(http.MethodPut, "/api/v1/providers/1", map[string]any{
		"config": map[string]any{"temperature": 0.2},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, f.factory.probed)
	assert.Contains(t, f.factory.removed, int64(1), "update must evict the cached service")
}

func TestDeleteProvider(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeStore(openaiProvider()), &fakeFactory{})

	rec := f.do(http.MethodDelete, "/api/v1/providers/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, f.factory.removed, int64(1))

	rec = f.do(http.MethodDelete, "/api/v1/providers/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatSend(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeStore(openaiProvider()), &fakeFactory{svc: &fakeModel{response: "42"}})

	rec := f.do(http.MethodPost, "/api/v1/chat", map[string]any{
		"provider_id": 1,
		"message":     "meaning of life?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.Turn.AssistantMessage)
	assert.Equal(t, "assistant", resp.Provider.Name)
	assert.NotEqual(t, uuid.Nil, resp.Turn.ConversationID)
}

func TestChatSend_ErrorMapping(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeStore(), &fakeFactory{svc: &fakeModel{}})

	rec := f.do(http.MethodPost, "/api/v1/chat", map[string]any{
		"provider_id": 99,
		"message":     "hi",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/chat", map[string]any{
		"provider_id": 99,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/chat", map[string]any{
		"provider_id":     99,
		"message":         "hi",
		"conversation_id": "not-a-uuid",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatStream(t *testing.T) {
	t.Parallel()

	st := newFakeStore(openaiProvider())
	f := newFixture(t, st, &fakeFactory{svc: &fakeModel{chunks: []string{"Hel", "lo"}}})

	rec := f.do(http.MethodPost, "/api/v1/chat/stream", map[string]any{
		"provider_id": 1,
		"message":     "hi",
		"stream":      true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: message\ndata: Hel\n\n")
	assert.Contains(t, body, "event: message\ndata: lo\n\n")

	require.Len(t, st.turns, 1, "the streamed turn must be persisted")
	assert.Equal(t, "Hello", st.turns[0].AssistantMessage)
}

func TestChatStream_RequiresStreamFlag(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeStore(openaiProvider()), &fakeFactory{svc: &fakeModel{}})

	rec := f.do(http.MethodPost, "/api/v1/chat/stream", map[string]any{
		"provider_id": 1,
		"message":     "hi",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEqual(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestChatHistory(t *testing.T) {
	t.Parallel()

	convID := uuid.New()
	st := newFakeStore(openaiProvider())
	st.turns = []store.Turn{
		{ID: 1, ProviderID: 1, ConversationID: convID, UserMessage: "a"},
		{ID: 2, ProviderID: 1, ConversationID: uuid.New(), UserMessage: "b"},
	}
	f := newFixture(t, st, &fakeFactory{})

	rec := f.do(http.MethodGet, "/api/v1/chat/history/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Turns []store.Turn `json:"turns"`
		Total int          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)

	rec = f.do(http.MethodGet, "/api/v1/chat/history/1?conversation_id="+convID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)

	rec = f.do(http.MethodGet, "/api/v1/chat/history/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/chat/history/1?conversation_id=zzz", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTools(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeStore(), &fakeFactory{})

	rec := f.do(http.MethodGet, "/api/v1/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Tools []tools.Definition `json:"tools"`
		Total int                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, tools.CalculatorID, resp.Tools[0].ID)
}

func TestProviderTools(t *testing.T) {
	t.Parallel()

	provider := openaiProvider()
	provider.ToolIDs = []string{tools.CalculatorID, "unregistered"}
	f := newFixture(t, newFakeStore(provider), &fakeFactory{})

	rec := f.do(http.MethodGet, "/api/v1/tools/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Tools []tools.Definition `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tools, 1, "unregistered ids are skipped")
	assert.Equal(t, int64(1), resp.Tools[0].ProviderID)

	rec = f.do(http.MethodGet, "/api/v1/tools/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecuteTool(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeStore(openaiProvider()), &fakeFactory{})

	rec := f.do(http.MethodPost, "/api/v1/tools/1/execute", map[string]any{
		"tool_id": tools.CalculatorID,
		"params":  map[string]any{"operation": "add", "x": 2, "y": 3},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Result float64 `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(5), resp.Result)
}

func TestExecuteTool_Errors(t *testing.T) {
	t.Parallel()

	provider := openaiProvider()
	provider.ToolIDs = nil
	f := newFixture(t, newFakeStore(provider), &fakeFactory{})

	rec := f.do(http.MethodPost, "/api/v1/tools/1/execute", map[string]any{
		"tool_id": tools.CalculatorID,
		"params":  map[string]any{"operation": "add", "x": 1, "y": 2},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "disabled tool must be rejected")

	enabled := openaiProvider()
	enabled.ID = 2
	enabled.Name = "second"
	f2 := newFixture(t, newFakeStore(enabled), &fakeFactory{})

	rec = f2.do(http.MethodPost, "/api/v1/tools/2/execute", map[string]any{
		"tool_id": tools.CalculatorID,
		"params":  map[string]any{"operation": "divide", "x": 1, "y": 0},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "divide by zero is a domain error")

	rec = f2.do(http.MethodPost, "/api/v1/tools/2/execute", map[string]any{
		"params": map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
