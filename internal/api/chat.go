package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/aiworld/gateway/internal/chat"
	"github.com/aiworld/gateway/internal/log"
	"github.com/aiworld/gateway/internal/sse"
	"github.com/aiworld/gateway/internal/store"
)

// chatHandler handles synchronous chat, streamed chat, and history reads.
type chatHandler struct {
	chat   ChatService
	logger log.Logger
}

type chatRequest struct {
	ProviderID     int64          `json:"provider_id"`
	Message        string         `json:"message"`
	ConversationID string         `json:"conversation_id"`
	Metadata       map[string]any `json:"metadata"`
	Stream         bool           `json:"stream"`
}

// toChatRequest converts the wire request, parsing the optional
// conversation id. Returns false after writing a 400 for a malformed id.
func (h *chatHandler) toChatRequest(w http.ResponseWriter, req chatRequest) (chat.Request, bool) {
	out := chat.Request{
		ProviderID: req.ProviderID,
		Message:    req.Message,
		Metadata:   req.Metadata,
		Stream:     req.Stream,
	}
	if req.ConversationID != "" {
		id, err := uuid.Parse(req.ConversationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error",
				"conversation_id must be a UUID", h.logger)
			return chat.Request{}, false
		}
		out.ConversationID = id
	}
	return out, true
}

type providerSummary struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Family string `json:"family"`
}

type chatResponse struct {
	Turn     *store.Turn     `json:"turn"`
	Provider providerSummary `json:"provider"`
}

func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body", h.logger)
		return
	}

	chatReq, ok := h.toChatRequest(w, req)
	if !ok {
		return
	}

	result, err := h.chat.Send(r.Context(), chatReq)
	if err != nil {
		writeChatError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Turn: result.Turn,
		Provider: providerSummary{
			ID:     result.Provider.ID,
			Name:   result.Provider.Name,
			Family: result.Provider.Family,
		},
	}, h.logger)
}

func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body", h.logger)
		return
	}

	chatReq, ok := h.toChatRequest(w, req)
	if !ok {
		return
	}

	// Open the stream before committing to the SSE content type so
	// resolution failures still produce a plain JSON error.
	session, err := h.chat.Stream(r.Context(), chatReq)
	if err != nil {
		writeChatError(w, err, h.logger)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported", h.logger)
		return
	}

	if err := session.Forward(r.Context(), writer); err != nil {
		// The SSE error event already went out where possible; the
		// response itself cannot be rewritten at this point.
		h.logger.Error("chat stream aborted",
			"provider_id", session.Provider.ID,
			"conversation_id", session.ConversationID,
			"error", err)
	}
}

func (h *chatHandler) history(w http.ResponseWriter, r *http.Request) {
	providerID, ok := pathID(w, r, "providerID", h.logger)
	if !ok {
		return
	}

	var conversationID *uuid.UUID
	if raw := r.URL.Query().Get("conversation_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error",
				"conversation_id must be a UUID", h.logger)
			return
		}
		conversationID = &id
	}

	turns, err := h.chat.History(r.Context(), providerID, conversationID)
	if err != nil {
		writeChatError(w, err, h.logger)
		return
	}
	if turns == nil {
		turns = []store.Turn{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"turns": turns,
		"total": len(turns),
	}, h.logger)
}
