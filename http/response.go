package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/runstore"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ListResponse wraps collection responses.
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runstore.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, runstore.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, ErrInvalidBody):
		WriteError(w, http.StatusBadRequest, "invalid_body", err.Error())
	case errors.Is(err, runstore.ErrAlreadyExists):
		WriteError(w, http.StatusConflict, "already_exists", "Resource already exists")
	case errors.Is(err, runstore.ErrReadOnly):
		WriteError(w, http.StatusForbidden, "read_only", "Store is read-only")
	case errors.Is(err, runstore.ErrNotInitialized):
		WriteError(w, http.StatusServiceUnavailable, "not_initialized", "Store is not initialized")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
