package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/luxsuv-accounts/internal/domain"
	"github.com/diagnosis/luxsuv-accounts/internal/platform/auth"
	"github.com/diagnosis/luxsuv-accounts/pkg/logger"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Message: message, Code: code})
}

// Common error codes
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeValidation         = "VALIDATION_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidToken       = "INVALID_TOKEN"
)

// FromError maps service errors onto responses. Unknown errors are logged and
// reported without detail.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *domain.ValidationError
		ce *domain.ConflictError
		te *auth.TokenError
	)
	switch {
	case errors.As(err, &ve):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: ve.Message, Code: CodeValidation, Field: ve.Field})
	case errors.As(err, &ce):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: ce.Error(), Code: CodeConflict, Field: ce.Field})
	case errors.Is(err, domain.ErrConflict):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeConflict)
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "account not found", CodeNotFound)
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid credentials", CodeInvalidCredentials)
	case errors.As(err, &te):
		WriteError(w, http.StatusBadRequest, te.Reason, CodeInvalidToken)
	default:
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error", CodeInternalError)
	}
}

// Convenience functions for common errors
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}
