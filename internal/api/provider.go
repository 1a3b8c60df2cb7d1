package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aiworld/gateway/internal/config"
	"github.com/aiworld/gateway/internal/log"
	"github.com/aiworld/gateway/internal/store"
)

// MaxProviderNameLength bounds the provider name column.
const MaxProviderNameLength = 50

// providerHandler handles provider registration and lifecycle endpoints.
type providerHandler struct {
	store   ProviderStore
	models  ModelFactory
	secrets SecretSource
	tools   ToolRegistry
	logger  log.Logger
}

type createProviderRequest struct {
	Name    string         `json:"name"`
	Family  string         `json:"family"`
	Config  map[string]any `json:"config"`
	ToolIDs []string       `json:"tool_ids"`
}

type updateProviderRequest struct {
	Name    *string        `json:"name"`
	Family  *string        `json:"family"`
	Config  map[string]any `json:"config"`
	ToolIDs []string       `json:"tool_ids"`
}

func validateProviderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxProviderNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxProviderNameLength)
	}
	return nil
}

// probe validates a provider definition by constructing and initializing a
// real model service against the upstream.
func (h *providerHandler) probe(w http.ResponseWriter, r *http.Request, family string, cfg map[string]any) bool {
	apiKey, err := h.secrets.APIKey(family)
	if err != nil {
		if errors.Is(err, config.ErrUnknownSecretFamily) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error(), h.logger)
		} else {
			writeError(w, http.StatusInternalServerError, "upstream_error", err.Error(), h.logger)
		}
		return false
	}

	if err := h.models.Probe(r.Context(), family, apiKey, cfg); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("provider validation failed: %v", err), h.logger)
		return false
	}
	return true
}

func (h *providerHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProviderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body", h.logger)
		return
	}

	if err := validateProviderName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Family) == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "family must not be empty", h.logger)
		return
	}

	if !h.probe(w, r, req.Family, req.Config) {
		return
	}

	provider, err := h.store.CreateProvider(r.Context(), store.CreateProviderParams{
		Name:    req.Name,
		Family:  req.Family,
		Config:  req.Config,
		ToolIDs: req.ToolIDs,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			writeError(w, http.StatusBadRequest, "validation_error",
				fmt.Sprintf("provider name %q already exists", req.Name), h.logger)
			return
		}
		h.logger.Error("failed to create provider", "error", err)
		writeError(w, http.StatusInternalServerError, "persistence_error", "failed to create provider", h.logger)
		return
	}

	h.logger.Info("provider created", "id", provider.ID, "name", provider.Name, "family", provider.Family)
	writeJSON(w, http.StatusCreated, provider, h.logger)
}

func (h *providerHandler) list(w http.ResponseWriter, r *http.Request) {
	providers, err := h.store.ListProviders(r.Context())
	if err != nil {
		h.logger.Error("failed to list providers", "error", err)
		writeError(w, http.StatusInternalServerError, "persistence_error", "failed to list providers", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"providers": providers,
		"total":     len(providers),
	}, h.logger)
}

func (h *providerHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	provider, err := h.store.GetProvider(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, provider, h.logger)
}

func (h *providerHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req updateProviderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body", h.logger)
		return
	}

	if req.Name != nil {
		if err := validateProviderName(*req.Name); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error(), h.logger)
			return
		}
	}
	if req.Family != nil && strings.TrimSpace(*req.Family) == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "family must not be empty", h.logger)
		return
	}

	existing, err := h.store.GetProvider(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, id)
		return
	}

	// Re-validate with the effective post-patch family and config.
	family := existing.Family
	if req.Family != nil {
		family = *req.Family
	}
	cfg := existing.Config
	if req.Config != nil {
		cfg = req.Config
	}
	if !h.probe(w, r, family, cfg) {
		return
	}

	provider, err := h.store.UpdateProvider(r.Context(), id, store.UpdateProviderParams{
		Name:    req.Name,
		Family:  req.Family,
		Config:  req.Config,
		ToolIDs: req.ToolIDs,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			writeError(w, http.StatusBadRequest, "validation_error", "provider name already exists", h.logger)
			return
		}
		h.writeStoreError(w, err, id)
		return
	}

	// The cached service may have been built from the old definition.
	h.models.Remove(id)

	h.logger.Info("provider updated", "id", id)
	writeJSON(w, http.StatusOK, provider, h.logger)
}

func (h *providerHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.store.DeleteProvider(r.Context(), id); err != nil {
		h.writeStoreError(w, err, id)
		return
	}

	h.models.Remove(id)
	h.tools.RemoveProvider(id)

	h.logger.Info("provider deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *providerHandler) writeStoreError(w http.ResponseWriter, err error, id int64) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found",
			fmt.Sprintf("provider %d not found", id), h.logger)
		return
	}
	h.logger.Error("provider store error", "id", id, "error", err)
	writeError(w, http.StatusInternalServerError, "persistence_error", "provider store error", h.logger)
}

// pathID parses a positive int64 path value, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string, logger log.Logger) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("invalid %s", name), logger)
		return 0, false
	}
	return id, true
}
