package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
	// ErrCodeValidationLength is used when a field length is invalid
	ErrCodeValidationLength = "ERR_VALIDATION_LENGTH"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeAccountLocked is used when an account is locked out
	ErrCodeAccountLocked = "ERR_ACCOUNT_LOCKED"
	// ErrCodeProviderUnavailable is used when an upstream provider cannot be reached
	ErrCodeProviderUnavailable = "ERR_PROVIDER_UNAVAILABLE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeTooManyRequests is an alias for rate limiting
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:        http.StatusUnprocessableEntity,
	ErrCodeAccountLocked:       http.StatusUnprocessableEntity,
	ErrCodeProviderUnavailable: http.StatusBadGateway,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps old error codes to new standardized codes
// This is for backward compatibility with existing domain errors
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,

	// Lookups
	"USER_NOT_FOUND":       ErrCodeNotFound,
	"ROLE_NOT_FOUND":       ErrCodeNotFound,
	"ORG_NOT_FOUND":        ErrCodeNotFound,
	"CONNECTION_NOT_FOUND": ErrCodeNotFound,
	"PERMISSION_NOT_FOUND": ErrCodeNotFound,

	// Uniqueness conflicts
	"EMAIL_EXISTS":          ErrCodeAlreadyExists,
	"DOMAIN_EXISTS":         ErrCodeAlreadyExists,
	"ROLE_CODE_EXISTS":      ErrCodeAlreadyExists,
	"PERMISSION_EXISTS":     ErrCodeAlreadyExists,
	"ALREADY_CONNECTED":     ErrCodeAlreadyExists,
	"ROLE_ALREADY_ASSIGNED": ErrCodeAlreadyExists,
	"ROLE_IN_USE":           ErrCodeConflict,

	// Authentication
	"INVALID_CREDENTIALS": ErrCodeUnauthorized,
	"TOKEN_EXPIRED":       ErrCodeTokenExpired,
	"TOKEN_INVALID":       ErrCodeTokenInvalid,
	"TOKEN_MAX_REFRESH":   ErrCodeTokenInvalid,
	"TOKEN_ERROR":         ErrCodeInternal,
	"PASSWORD_HASH_ERROR": ErrCodeInternal,
	"ORG_SUSPENDED":       ErrCodeForbidden,

	// Malformed input
	"UNKNOWN_PROVIDER":    ErrCodeInvalidInput,
	"INVALID_EMAIL":       ErrCodeInvalidInput,
	"INVALID_NAME":        ErrCodeInvalidInput,
	"INVALID_DOMAIN":      ErrCodeInvalidInput,
	"INVALID_ROLE":        ErrCodeInvalidInput,
	"INVALID_ROLE_CODE":   ErrCodeInvalidInput,
	"INVALID_ROLE_NAME":   ErrCodeInvalidInput,
	"INVALID_PERMISSION":  ErrCodeInvalidInput,
	"INVALID_TARGET":      ErrCodeInvalidInput,
	"INVALID_TIMEZONE":    ErrCodeInvalidInput,
	"INVALID_MAX_USERS":   ErrCodeInvalidInput,
	"INVALID_FETCH_LIMIT": ErrCodeInvalidInput,
	"INVALID_URL":         ErrCodeInvalidInput,
	"INVALID_TITLE":       ErrCodeInvalidInput,
	"INVALID_AVATAR":      ErrCodeInvalidInput,
	"INVALID_USER":        ErrCodeInvalidInput,
	"INVALID_ACTOR":       ErrCodeInvalidInput,
	"INVALID_ACTION":      ErrCodeInvalidInput,

	// State transitions
	"ACCOUNT_LOCKED":            ErrCodeAccountLocked,
	"ACCOUNT_DEACTIVATED":       ErrCodeInvalidState,
	"ACCOUNT_INACTIVE":          ErrCodeInvalidState,
	"ACCOUNT_PENDING":           ErrCodeInvalidState,
	"USER_DEACTIVATED":          ErrCodeInvalidState,
	"USER_LOCKED":               ErrCodeInvalidState,
	"NOT_LOCKED":                ErrCodeInvalidState,
	"INVALID_PASSWORD":          ErrCodeInvalidState,
	"ALREADY_ACTIVE":            ErrCodeInvalidState,
	"ALREADY_INACTIVE":          ErrCodeInvalidState,
	"ALREADY_DEACTIVATED":       ErrCodeInvalidState,
	"ALREADY_SUSPENDED":         ErrCodeInvalidState,
	"ALREADY_ENABLED":           ErrCodeInvalidState,
	"ALREADY_DISABLED":          ErrCodeInvalidState,
	"ALREADY_DISCONNECTED":      ErrCodeInvalidState,
	"ORG_NOT_INACTIVE":          ErrCodeInvalidState,
	"ORG_USER_LIMIT":            ErrCodeInvalidState,
	"SYSTEM_ROLE":               ErrCodeInvalidState,
	"CANNOT_DELETE_SYSTEM_ROLE": ErrCodeInvalidState,
	"ROLE_NOT_ASSIGNED":         ErrCodeInvalidState,

	// Upstream providers
	"PROVIDER_NOT_CONFIGURED": ErrCodeProviderUnavailable,
	"FETCH_FAILED":            ErrCodeProviderUnavailable,
}

// NormalizeErrorCode converts a legacy error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
