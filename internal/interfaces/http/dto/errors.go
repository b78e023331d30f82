package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation = "ERR_VALIDATION"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeSubmissionPending is used while another action on the same order is in flight
	ErrCodeSubmissionPending = "ERR_SUBMISSION_IN_PROGRESS"
)

// Business rule error codes
const (
	ErrCodeInvalidState     = "ERR_INVALID_STATE"
	ErrCodeAssigneeRequired = "ERR_ASSIGNEE_REQUIRED"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// Stream error codes
const (
	ErrCodeStreamLimit = "ERR_STREAM_LIMIT"
)

// Order service error codes
const (
	ErrCodeUpstream            = "ERR_UPSTREAM"
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
)

// Export error codes
const (
	ErrCodeExportUnavailable = "ERR_EXPORT_UNAVAILABLE"
	ErrCodeExportTimeout     = "ERR_EXPORT_TIMEOUT"
	ErrCodeExportFailed      = "ERR_EXPORT_FAILED"
	ErrCodeExportEmpty       = "ERR_EXPORT_EMPTY"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors are blocked before any API call
	ErrCodeValidation: http.StatusUnprocessableEntity,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeConflict:          http.StatusConflict,
	ErrCodeSubmissionPending: http.StatusConflict,

	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeAssigneeRequired: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,

	ErrCodeStreamLimit: http.StatusServiceUnavailable,

	ErrCodeUpstream:            http.StatusBadGateway,
	ErrCodeUpstreamUnavailable: http.StatusServiceUnavailable,

	ErrCodeExportUnavailable: http.StatusServiceUnavailable,
	ErrCodeExportTimeout:     http.StatusGatewayTimeout,
	ErrCodeExportFailed:      http.StatusInternalServerError,
	ErrCodeExportEmpty:       http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain and collaborator error codes to API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ITEM_NOT_FOUND":         ErrCodeNotFound,
	"RETURN_NOT_FOUND":       ErrCodeNotFound,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_FORMAT":         ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"ASSIGNEE_REQUIRED":      ErrCodeAssigneeRequired,
	"DUPLICATE_RETURN":       ErrCodeConflict,
	"UNAUTHORIZED":           ErrCodeUnauthorized,
	"FORBIDDEN":              ErrCodeForbidden,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"SUBMISSION_IN_PROGRESS": ErrCodeSubmissionPending,
	"UPSTREAM_ERROR":         ErrCodeUpstream,
	"UPSTREAM_UNAVAILABLE":   ErrCodeUpstreamUnavailable,
	"EXPORT_UNAVAILABLE":     ErrCodeExportUnavailable,
	"RENDER_TIMEOUT":         ErrCodeExportTimeout,
	"RENDER_FAILED":          ErrCodeExportFailed,
	"WRITE_FAILED":           ErrCodeExportFailed,
	"EMPTY_DOCUMENT":         ErrCodeExportEmpty,
	"INTERNAL_ERROR":         ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format or unknown are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
