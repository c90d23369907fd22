// Package errors provides unified error handling for the voicediag service.
// It implements structured error types with machine-readable codes, HTTP
// status mapping, and retryable detection.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Unauthorized creates a new AppError for a request without valid credentials.
func Unauthorized(reason string) *AppError {
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// Internal creates a new AppError wrapping an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An internal error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// --- Pipeline Error Constructors ---

// InvalidFilename rejects an upload whose filename does not match the
// accepted pattern. Never retried: the same name will fail again.
func InvalidFilename(filename string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidFilename,
		Message:    "Filename must contain only letters, digits and underscores, with a supported audio extension.",
		HTTPStatus: http.StatusBadRequest,
		Retryable:  false,
		Details:    map[string]any{"filename": filename},
	}
}

// PayloadTooSmall rejects an upload too small to hold 1-2 seconds of audio.
func PayloadTooSmall(size int64) *AppError {
	return &AppError{
		Code:       ErrCodePayloadTooSmall,
		Message:    "The uploaded file is too small to be a valid audio recording.",
		HTTPStatus: http.StatusBadRequest,
		Retryable:  false,
		Details:    map[string]any{"size_bytes": size},
	}
}

// TranscodeFailed marks a corrupt or unsupported upload. Fatal for the
// session; surfaced to the caller as a client error, never retried.
func TranscodeFailed(cause error) *AppError {
	return &AppError{
		Code:       ErrCodeTranscodeFailed,
		Message:    "The audio file is invalid or corrupted and could not be processed.",
		HTTPStatus: http.StatusBadRequest,
		Retryable:  false,
		Cause:      cause,
	}
}

// ClassifierUnavailable signals that the frozen model artifact could not be
// loaded. Fatal to the pipeline, not per-request recoverable.
func ClassifierUnavailable(cause error) *AppError {
	return &AppError{
		Code:       ErrCodeClassifierUnavailable,
		Message:    "The diagnostic model is not available.",
		HTTPStatus: http.StatusServiceUnavailable,
		Retryable:  false,
		Cause:      cause,
	}
}

// EnrichmentFailed wraps a text-generation failure after retries are
// exhausted. Never surfaced to the upload caller; recorded on the session.
func EnrichmentFailed(cause error) *AppError {
	return &AppError{
		Code:       ErrCodeEnrichmentFailed,
		Message:    "Narrative generation failed.",
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Cause:      cause,
	}
}
