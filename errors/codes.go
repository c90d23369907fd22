package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Generic codes
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeUnauthorized indicates the request is unauthorized.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Pipeline codes
const (
	// ErrCodeInvalidFilename indicates an upload filename failed validation.
	ErrCodeInvalidFilename ErrorCode = "INVALID_FILENAME"
	// ErrCodePayloadTooSmall indicates an upload below the minimum byte threshold.
	ErrCodePayloadTooSmall ErrorCode = "PAYLOAD_TOO_SMALL"
	// ErrCodeTranscodeFailed indicates the external transcoder rejected the upload.
	ErrCodeTranscodeFailed ErrorCode = "TRANSCODE_FAILED"
	// ErrCodeClassifierUnavailable indicates the frozen model artifact failed to load.
	ErrCodeClassifierUnavailable ErrorCode = "CLASSIFIER_UNAVAILABLE"
	// ErrCodeEnrichmentFailed indicates the text-generation collaborator failed.
	ErrCodeEnrichmentFailed ErrorCode = "ENRICHMENT_FAILED"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeEnrichmentFailed: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
