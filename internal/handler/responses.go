package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yieldland/production-core/internal/domain"
)

// Response is the uniform envelope every endpoint returns. Warnings carry
// soft conditions (grain exhaustion) that did not fail the operation.
type Response struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Get a buffer from the pool to reduce allocations
	buf := getBuffer()
	defer putBuffer(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		// Headers are already sent; all we can do is log.
		slog.Error("Failed to encode JSON response", "error", err)
		return
	}

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write response buffer", "error", err)
	}
}

// respondSuccess sends a success envelope with optional data.
func respondSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	respondJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// respondSuccessWarn sends a success envelope carrying warnings.
func respondSuccessWarn(w http.ResponseWriter, status int, message string, data interface{}, warnings []string) {
	respondJSON(w, status, Response{Success: true, Message: message, Data: data, Warnings: warnings})
}

// respondError sends a failure envelope.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{Success: false, Message: message})
}

// User-facing error messages
const (
	ErrMsgGenericServerError  = "Something went wrong"
	ErrMsgUnknownError        = "Unknown error"
	ErrMsgInvalidRequest      = "Invalid request. Please check your inputs."
	ErrMsgInvalidRequestBody  = "Invalid request body"
	ErrMsgMethodNotAllowed    = "Method not allowed"
	ErrMsgMissingQueryParam   = "Missing required query parameter: %s"
	ErrMsgBusyError           = "System is busy, please retry"

	ErrMsgInsufficientError      = "Not enough resources"
	ErrMsgToolNotFoundError      = "Tool not found"
	ErrMsgToolWorkingError       = "Tool is already working"
	ErrMsgToolNotBoundError      = "Tool is not part of this session"
	ErrMsgToolDamagedError       = "Tool is damaged"
	ErrMsgSessionNotFoundError   = "Mining session not found"
	ErrMsgSessionNotActiveError  = "Mining session is not active"
	ErrMsgLandUnavailableError   = "Land is unavailable"
	ErrMsgRecipeNotFoundError    = "Recipe not found"

	// WarnMsgGrainInsufficient accompanies partially covered settlements.
	WarnMsgGrainInsufficient = "Grain ran out; session paused"
)

// mapServiceError maps domain errors to user-facing HTTP responses.
func mapServiceError(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, ErrMsgUnknownError
	}

	switch {
	case errors.Is(err, domain.ErrInsufficientResources):
		return http.StatusBadRequest, ErrMsgInsufficientError
	case errors.Is(err, domain.ErrToolNotFound):
		return http.StatusNotFound, ErrMsgToolNotFoundError
	case errors.Is(err, domain.ErrToolAlreadyWorking):
		return http.StatusConflict, ErrMsgToolWorkingError
	case errors.Is(err, domain.ErrToolNotBound):
		return http.StatusBadRequest, ErrMsgToolNotBoundError
	case errors.Is(err, domain.ErrToolDamaged):
		return http.StatusBadRequest, ErrMsgToolDamagedError
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, ErrMsgSessionNotFoundError
	case errors.Is(err, domain.ErrSessionNotActive):
		return http.StatusConflict, ErrMsgSessionNotActiveError
	case errors.Is(err, domain.ErrLandUnavailable):
		return http.StatusConflict, ErrMsgLandUnavailableError
	case errors.Is(err, domain.ErrRecipeNotFound):
		return http.StatusNotFound, ErrMsgRecipeNotFoundError
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, ErrMsgInvalidRequest
	case errors.Is(err, domain.ErrBusy):
		return http.StatusServiceUnavailable, ErrMsgBusyError
	case errors.Is(err, domain.ErrDatabaseError):
		return http.StatusInternalServerError, ErrMsgGenericServerError
	}

	return http.StatusInternalServerError, ErrMsgGenericServerError
}

// respondServiceError maps and sends a service-layer error.
func respondServiceError(w http.ResponseWriter, err error) {
	status, msg := mapServiceError(err)
	respondError(w, status, msg)
}
