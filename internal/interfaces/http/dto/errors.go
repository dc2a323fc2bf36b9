package dto

import (
	"net/http"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
)

// Error code constants
// Format: ERR_<DESCRIPTION>. Domain error codes are exposed with the same
// prefix, e.g. CATEGORY_NOT_FOUND becomes ERR_CATEGORY_NOT_FOUND.
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeValidation is used when request binding fails field validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeInvalidID is used when a path id is not a positive integer
	ErrCodeInvalidID = "ERR_INVALID_ID"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeUnavailable is used when a dependency such as the database is down
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// InternalErrorMessage is the only message clients see for unexpected failures
const InternalErrorMessage = "An unexpected error occurred"

// ErrorKindHTTPStatus maps domain error kinds to HTTP status codes
var ErrorKindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:  http.StatusBadRequest,
	shared.KindNotFound:    http.StatusNotFound,
	shared.KindReferential: http.StatusConflict,
	shared.KindConflict:    http.StatusConflict,
	shared.KindInternal:    http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error kind.
// Returns 500 Internal Server Error if the kind is unknown.
func GetHTTPStatus(kind shared.ErrorKind) int {
	if status, ok := ErrorKindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode converts a domain error code to the ERR_ format.
// Codes already carrying the prefix are returned as-is.
func NormalizeErrorCode(code string) string {
	if code == "" {
		return ErrCodeInternal
	}
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	return "ERR_" + code
}
