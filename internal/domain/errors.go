package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so sentinel comparisons survive NewDomainErrorWithCause wrapping.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewRemoteServiceError wraps a failure of an embedding, generation or OCR call.
func NewRemoteServiceError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeRemoteService, message, err)
}

// NewInternalError wraps a persistence or invariant failure.
func NewInternalError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeInternalError, message, err)
}

// AsDomainError extracts the first DomainError in err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsCode reports whether err carries a DomainError with the given code.
func IsCode(err error, code string) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeRemoteService     = "REMOTE_SERVICE_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingContent    = NewDomainError(ErrCodeValidation, "Body must be { role: 'user', content: '...' }")
	ErrInvalidRole       = NewDomainError(ErrCodeValidation, "role must be 'user'")
	ErrMissingUserID     = NewDomainError(ErrCodeValidation, "userId is required")
	ErrMissingFile       = NewDomainError(ErrCodeValidation, "No file uploaded")
	ErrEmptyInput        = NewDomainError(ErrCodeValidation, "input cannot be empty")
	ErrUnsupportedFormat = NewDomainError(ErrCodeUnsupportedFormat, "Unsupported file type. Use PDF, TXT, or an image.")
)

// Not found errors
var (
	ErrChatNotFound = NewDomainError(ErrCodeNotFound, "Chat not found")
)

// Ingestion and store errors
var (
	ErrNoTextExtracted   = NewDomainError(ErrCodeValidation, "no text could be extracted")
	ErrDimensionMismatch = NewDomainError(ErrCodeInternalError, "embedding dimension does not match the knowledge store")
	ErrInvalidToken      = NewDomainError(ErrCodeUnauthorized, "invalid api token")
)
