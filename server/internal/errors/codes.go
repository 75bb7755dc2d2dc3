package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode classifies chat API failures for clients and logs.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeThreadNotFound indicates the referenced thread does not exist.
	ErrCodeThreadNotFound ErrorCode = "THREAD_NOT_FOUND"
	// ErrCodeMessageNotFound indicates the referenced message does not exist.
	ErrCodeMessageNotFound ErrorCode = "MESSAGE_NOT_FOUND"
	// ErrCodeProviderUnavailable indicates no model provider is reachable.
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// ErrCodeGenerationFailed indicates the provider failed mid-generation.
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeInternal indicates an unexpected server error.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// ChatError is a structured error carried from service code to the HTTP layer.
type ChatError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to an HTTP status.
func (e *ChatError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeThreadNotFound, ErrCodeMessageNotFound:
		return http.StatusNotFound
	case ErrCodeProviderUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeContextCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *ChatError {
	return &ChatError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *ChatError {
	return &ChatError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *ChatError {
	return &ChatError{Code: ErrCodeInvalidArgument, Message: msg}
}

// ThreadNotFound creates a thread not found error.
func ThreadNotFound(uid string) *ChatError {
	return &ChatError{Code: ErrCodeThreadNotFound, Message: fmt.Sprintf("thread not found: %s", uid)}
}

// MessageNotFound creates a message not found error.
func MessageNotFound(uid string) *ChatError {
	return &ChatError{Code: ErrCodeMessageNotFound, Message: fmt.Sprintf("message not found: %s", uid)}
}

// ProviderUnavailable creates a provider unavailable error.
func ProviderUnavailable(msg string) *ChatError {
	return &ChatError{Code: ErrCodeProviderUnavailable, Message: msg}
}

// GenerationFailed wraps a provider failure.
func GenerationFailed(msg string, cause error) *ChatError {
	return &ChatError{Code: ErrCodeGenerationFailed, Message: msg, Cause: cause}
}

// Internal wraps an unexpected error.
func Internal(msg string, cause error) *ChatError {
	return &ChatError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// CodeOf extracts the error code from any error, falling back to INTERNAL.
func CodeOf(err error) ErrorCode {
	if chatErr, ok := err.(*ChatError); ok {
		return chatErr.Code
	}
	return ErrCodeInternal
}
