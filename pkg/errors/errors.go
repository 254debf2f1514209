package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application error codes
type ErrorCode string

const (
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeRateLimit        ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidPayload   ErrorCode = "INVALID_PAYLOAD"
	ErrCodeUnsupportedEvent ErrorCode = "UNSUPPORTED_EVENT"
	ErrCodeActionFailed     ErrorCode = "ACTION_FAILED"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodePayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
)

// AppError represents an application error with code and context
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Context:    make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    make(map[string]interface{}),
	}
}

func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func NewRateLimitError() *AppError {
	return NewAppError(ErrCodeRateLimit, "rate limit exceeded", http.StatusTooManyRequests)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func NewConflictError(message string) *AppError {
	return NewAppError(ErrCodeConflict, message, http.StatusConflict)
}

// Webhook pipeline errors. Each kind maps to a distinct status so the sender
// can tell "do not retry" from "retry later".

func NewAuthenticationError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func NewInvalidPayloadError(message string, cause error) *AppError {
	return WrapError(cause, ErrCodeInvalidPayload, message, http.StatusBadRequest)
}

func NewPayloadTooLargeError(limit int64, cause error) *AppError {
	return WrapError(cause, ErrCodePayloadTooLarge, "Webhook payload too large", http.StatusRequestEntityTooLarge).
		WithContext("limit_bytes", limit)
}

func NewUnsupportedEventTypeError(eventType string) *AppError {
	return NewAppError(ErrCodeUnsupportedEvent, fmt.Sprintf("Unknown webhook type: %s", eventType), http.StatusUnprocessableEntity).
		WithContext("event", eventType)
}

func NewActionFailedError(message string, cause error) *AppError {
	return WrapError(cause, ErrCodeActionFailed, message, http.StatusInternalServerError)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}
