package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/logger"
)

// Standard response types for consistent API responses

// SuccessResponse represents a simple successful operation message
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// DataResponse represents a response with data payload
type DataResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Get a buffer from the pool to reduce allocations
	buf := getBuffer()
	defer putBuffer(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		// Headers are already sent, nothing left but logging
		slog.Error("Failed to encode JSON response", "error", err)
		return
	}

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write response buffer", "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// User-facing error messages for service errors
const (
	ErrMsgGenericServerError  = "Something went wrong"
	ErrMsgUnknownError        = "Unknown error"
	ErrMsgAuthRequiredError   = "Authentication required"
	ErrMsgTenantMismatchError = "Session does not match the requested business"
	ErrMsgRecordNotFoundError = "Record not found"
	ErrMsgDuplicateRecordErr  = "Record already exists"
	ErrMsgMissingRecordIDErr  = "Record payload is missing an id"
	ErrMsgInvalidOperationErr = "Unknown sync operation"
	ErrMsgEntryNotFoundError  = "Queue entry not found"
	ErrMsgSyncInFlightError   = "A reconciliation pass is already running"
	ErrMsgUnavailableError    = "Server is temporarily unavailable. Please try again later."
)

// mapServiceErrorToUserMessage maps domain errors to user-friendly HTTP responses.
// Internal detail stays in the logs; clients get a stable status and message.
func mapServiceErrorToUserMessage(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, ErrMsgUnknownError
	}

	switch {
	case errors.Is(err, domain.ErrNoTenant):
		return http.StatusUnauthorized, ErrMsgAuthRequiredError
	case errors.Is(err, domain.ErrTenantMismatch):
		return http.StatusForbidden, ErrMsgTenantMismatchError
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, ErrMsgRecordNotFoundError
	case errors.Is(err, domain.ErrDuplicateRecord):
		return http.StatusConflict, ErrMsgDuplicateRecordErr
	case errors.Is(err, domain.ErrMissingRecordID):
		return http.StatusBadRequest, ErrMsgMissingRecordIDErr
	case errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusBadRequest, ErrMsgInvalidOperationErr
	case errors.Is(err, domain.ErrEntryNotFound):
		return http.StatusNotFound, ErrMsgEntryNotFoundError
	case errors.Is(err, domain.ErrSyncInFlight):
		return http.StatusConflict, ErrMsgSyncInFlightError
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrStoreClosed):
		return http.StatusServiceUnavailable, ErrMsgUnavailableError
	}

	// For wrapped errors with domain errors as the base, try unwrapping
	unwrapped := errors.Unwrap(err)
	if unwrapped != nil && unwrapped != err {
		return mapServiceErrorToUserMessage(unwrapped)
	}

	return http.StatusInternalServerError, ErrMsgGenericServerError
}

// respondServiceError logs a service error and writes the mapped response
func respondServiceError(w http.ResponseWriter, r *http.Request, opName string, err error) {
	log := logger.FromContext(r.Context())
	log.Error(opName+" failed", "error", err)
	statusCode, userMsg := mapServiceErrorToUserMessage(err)
	respondError(w, statusCode, userMsg)
}
