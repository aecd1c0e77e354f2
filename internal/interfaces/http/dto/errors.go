package dto

import "net/http"

// API error codes, format ERR_<CATEGORY>_<DESCRIPTION>. These are part
// of the wire contract: clients switch on them, so renaming one is a
// breaking change.
const (
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"

	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"

	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeOutOfStock   = "ERR_OUT_OF_STOCK"

	// Marketplace connection problems surface as 422s with one of these
	// codes so the UI can prompt for reconnection instead of retrying.
	ErrCodePlatformNotConnected = "ERR_PLATFORM_NOT_CONNECTED"
	ErrCodeCredentialsExpired   = "ERR_CREDENTIALS_EXPIRED"
	ErrCodeUnsupportedOperation = "ERR_UNSUPPORTED_OPERATION"

	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	ErrCodeRateLimited         = "ERR_RATE_LIMITED"
)

// errorCodeStatus maps each API error code to its HTTP status.
var errorCodeStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeOutOfStock:   http.StatusUnprocessableEntity,

	ErrCodePlatformNotConnected: http.StatusUnprocessableEntity,
	ErrCodeCredentialsExpired:   http.StatusUnprocessableEntity,
	ErrCodeUnsupportedOperation: http.StatusUnprocessableEntity,

	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
	ErrCodeRateLimited:         http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status for an API error code, or 500
// when the code is not recognized.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodes maps the bare codes carried by shared.DomainError
// values to their API error codes.
var domainErrorCodes = map[string]string{
	"NOT_FOUND":      ErrCodeNotFound,
	"ALREADY_EXISTS": ErrCodeAlreadyExists,
	"INVALID_INPUT":  ErrCodeInvalidInput,
	"INVALID_STATE":  ErrCodeInvalidState,
	"OUT_OF_STOCK":   ErrCodeOutOfStock,
	"BAD_REQUEST":    ErrCodeBadRequest,
	"INTERNAL_ERROR": ErrCodeInternal,
}

// NormalizeErrorCode converts a bare domain error code to the API
// format. Codes already in the API format, and unknown codes, pass
// through unchanged; GetHTTPStatus treats the latter as internal errors.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainErrorCodes[code]; ok {
		return apiCode
	}
	return code
}
