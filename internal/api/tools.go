package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aiworld/gateway/internal/log"
	"github.com/aiworld/gateway/internal/store"
	"github.com/aiworld/gateway/internal/tools"
)

// toolsHandler handles tool discovery and invocation endpoints.
type toolsHandler struct {
	registry ToolRegistry
	store    ProviderStore
	logger   log.Logger
}

func (h *toolsHandler) list(w http.ResponseWriter, _ *http.Request) {
	defs := h.registry.Definitions()
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": defs,
		"total": len(defs),
	}, h.logger)
}

// providerTools lists the registered tools a provider has enabled.
func (h *toolsHandler) providerTools(w http.ResponseWriter, r *http.Request) {
	providerID, ok := pathID(w, r, "providerID", h.logger)
	if !ok {
		return
	}

	provider, err := h.store.GetProvider(r.Context(), providerID)
	if err != nil {
		h.writeStoreError(w, err, providerID)
		return
	}

	defs := h.registry.ProviderDefinitions(providerID, provider.ToolIDs)
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": defs,
		"total": len(defs),
	}, h.logger)
}

type executeToolRequest struct {
	ToolID string         `json:"tool_id"`
	Params map[string]any `json:"params"`
}

func (h *toolsHandler) execute(w http.ResponseWriter, r *http.Request) {
	providerID, ok := pathID(w, r, "providerID", h.logger)
	if !ok {
		return
	}

	var req executeToolRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body", h.logger)
		return
	}
	if req.ToolID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "tool_id is required", h.logger)
		return
	}

	provider, err := h.store.GetProvider(r.Context(), providerID)
	if err != nil {
		h.writeStoreError(w, err, providerID)
		return
	}

	// Authorization lives here: the registry executes anything registered.
	if !provider.HasTool(req.ToolID) {
		writeError(w, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("tool %q is not enabled for provider %d", req.ToolID, providerID), h.logger)
		return
	}

	result, err := h.registry.Execute(r.Context(), req.ToolID, providerID, req.Params)
	if err != nil {
		switch {
		case errors.Is(err, tools.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
		case errors.Is(err, tools.ErrInvalidParams):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error(), h.logger)
		default:
			h.logger.Error("tool execution failed", "tool_id", req.ToolID, "provider_id", providerID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "tool execution failed", h.logger)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tool_id": req.ToolID,
		"result":  result,
	}, h.logger)
}

func (h *toolsHandler) writeStoreError(w http.ResponseWriter, err error, id int64) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found",
			fmt.Sprintf("provider %d not found", id), h.logger)
		return
	}
	h.logger.Error("provider store error", "id", id, "error", err)
	writeError(w, http.StatusInternalServerError, "persistence_error", "provider store error", h.logger)
}
