package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quentin-drucker/snaphunt/internal/model"
	"github.com/quentin-drucker/snaphunt/internal/services/auth"
)

// ErrorResponse is the JSON body for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// httpError combines an HTTP status code with a client-facing message
type httpError struct {
	status  int
	message string
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.message})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, "Invalid credentials"}
	case errors.Is(err, auth.ErrNoSecretConfigured):
		return &httpError{http.StatusUnauthorized, "Invalid credentials"}
	default:
		return &httpError{http.StatusInternalServerError, "Internal server error"}
	}
}

// NewInvalidRequestError creates a 400 error with the given message
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, message}
}

// NewUploadFailedError creates the generic upload failure response
func NewUploadFailedError() error {
	return &httpError{http.StatusInternalServerError, "Upload failed"}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, "Internal server error"}
}
