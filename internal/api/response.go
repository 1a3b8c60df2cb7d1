package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aiworld/gateway/internal/chat"
	"github.com/aiworld/gateway/internal/log"
)

// writeJSON writes a JSON response with the given status code.
// Encoding happens into a buffer first so headers are only sent after a
// successful encode and a real 500 can still go out on failure.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Debug("failed to write response body", "error", err)
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message}, logger)
}

// writeChatError maps the chat error taxonomy onto HTTP statuses. Upstream
// and persistence messages pass through so callers see the real cause.
func writeChatError(w http.ResponseWriter, err error, logger log.Logger) {
	status, code := statusFromError(err)
	writeError(w, status, code, err.Error(), logger)
}

func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, chat.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, chat.ErrUpstream):
		return http.StatusInternalServerError, "upstream_error"
	case errors.Is(err, chat.ErrPersistence):
		return http.StatusInternalServerError, "persistence_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON decodes a request body into dst with a size cap and strict
// field checking.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
