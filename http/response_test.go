package http_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sagarc03/runstore"
	runstorehttp "github.com/sagarc03/runstore/http"
	"github.com/stretchr/testify/assert"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", runstore.ErrNotFound, http.StatusNotFound, "not_found"},
		{"invalid input", runstore.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{"invalid body", runstorehttp.ErrInvalidBody, http.StatusBadRequest, "invalid_body"},
		{"already exists", runstore.ErrAlreadyExists, http.StatusConflict, "already_exists"},
		{"read only", runstore.ErrReadOnly, http.StatusForbidden, "read_only"},
		{"not initialized", runstore.ErrNotInitialized, http.StatusServiceUnavailable, "not_initialized"},
		{"internal", errors.New("some unexpected error"), http.StatusInternalServerError, "internal_error"},
		{"wrapped not found", fmt.Errorf("get run abc: %w", runstore.ErrNotFound), http.StatusNotFound, "not_found"},
		{"joined already exists", errors.Join(errors.New("context"), runstore.ErrAlreadyExists), http.StatusConflict, "already_exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			runstorehttp.HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}

func TestWriteError_Success(t *testing.T) {
	rec := httptest.NewRecorder()

	runstorehttp.WriteError(rec, http.StatusBadRequest, "bad_request", "Invalid request")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"error":"bad_request"`)
	assert.Contains(t, rec.Body.String(), `"message":"Invalid request"`)
}

func TestWriteJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()

	data := map[string]string{"key": "value"}
	err := runstorehttp.WriteJSON(rec, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"key":"value"`)
}

func TestWriteJSON_EncodingError(t *testing.T) {
	rec := httptest.NewRecorder()

	// Channels cannot be JSON encoded
	data := make(chan int)
	err := runstorehttp.WriteJSON(rec, http.StatusOK, data)

	assert.Error(t, err)
}
