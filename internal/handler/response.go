// Package handler implements the HTTP endpoints. Handlers parse and validate
// requests, call the service layer, and translate domain errors into the
// API's response envelope. No business rules live here.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/intentflow/backend/internal/apperror"
)

// errorResponse is the envelope every failure is reported in.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code. Headers and
// status must be written before the body; Encode writes the body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends the envelope.
//
// ErrConflict maps to 400 rather than 409: the API contract reports a
// duplicate registration email as a plain bad request.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		}

		writeJSON(w, status, errorResponse{Message: appErr.Message})
		return
	}

	// Unexpected failure: surface the underlying message with a 500.
	writeJSON(w, http.StatusInternalServerError, errorResponse{Message: err.Error()})
}

// writeValidationError sends a 400 for a payload that failed its Validate()
// method. ozzo errors already read as "field: reason".
func writeValidationError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
}

// MethodNotAllowed is installed on the router so unsupported methods get the
// same envelope as every other failure.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Message: "Method not allowed"})
}

// NotFoundRoute handles unknown paths.
func NotFoundRoute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Message: "Route not found"})
}
