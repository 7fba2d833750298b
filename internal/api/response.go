package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/cloo-solutions/mentor/internal/logging"
	"github.com/cloo-solutions/mentor/internal/telemetry"
	"go.uber.org/zap"
)

// internalErrorMessage is shown to clients in place of 500 error details.
const internalErrorMessage = "Internal server error"

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of responses that only report an outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation, domain.ErrCodeUnsupportedFormat:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeRemoteService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text a client may see for err. Internal errors
// never expose their cause.
func PublicMessage(err error) string {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) || DomainErrorToHTTP(err) == http.StatusInternalServerError {
		return internalErrorMessage
	}
	return domainErr.Message
}

// HandleError writes an appropriate error response based on the error type.
// Server-side failures are logged with the request logger and sent to Sentry.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	status := DomainErrorToHTTP(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed",
			zap.Int("status", status),
			zap.Error(err),
		)
		telemetry.CaptureError(r.Context(), err)
	}
	Error(w, status, PublicMessage(err))
}
