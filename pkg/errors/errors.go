package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	// Generic errors
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
	ErrCodeUnavailable   ErrorCode = "RESOURCE_UNAVAILABLE"
	ErrCodeValidation    ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingCaller ErrorCode = "MISSING_CALLER"
	ErrCodeRateLimited   ErrorCode = "RATE_LIMITED"

	// Delegation registry errors
	ErrCodeNotAssetOwner     ErrorCode = "NOT_ASSET_OWNER"
	ErrCodeInvalidDelegate   ErrorCode = "INVALID_DELEGATE"
	ErrCodeInvalidDuration   ErrorCode = "INVALID_DURATION"
	ErrCodeDurationOverflow  ErrorCode = "DURATION_OVERFLOW"
	ErrCodeAssetLookupFailed ErrorCode = "ASSET_LOOKUP_FAILED"

	// Ownership oracle errors
	ErrCodeIncorrectOwner ErrorCode = "INCORRECT_OWNER"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error

	status int // overrides the status derived from Code when set
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithStatus sets the HTTP status reported for this error, keeping its code
func (e *Error) WithStatus(status int) *Error {
	e.status = status
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	if e.status != 0 {
		return e.status
	}
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// GetMessage returns the structured message, or the plain error text otherwise
func GetMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// GetDetails extracts the details from an error
// Returns nil if the error is not a structured Error
func GetDetails(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	// 400 Bad Request
	case ErrCodeInvalidInput, ErrCodeValidation, ErrCodeInvalidDelegate,
		ErrCodeInvalidDuration, ErrCodeDurationOverflow:
		return http.StatusBadRequest

	// 401 Unauthorized
	case ErrCodeUnauthorized, ErrCodeMissingCaller:
		return http.StatusUnauthorized

	// 403 Forbidden
	case ErrCodeForbidden, ErrCodeNotAssetOwner, ErrCodeIncorrectOwner:
		return http.StatusForbidden

	// 404 Not Found
	case ErrCodeNotFound, ErrCodeAssetLookupFailed:
		return http.StatusNotFound

	// 429 Too Many Requests
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests

	// 503 Service Unavailable
	case ErrCodeUnavailable, ErrCodeTimeout:
		return http.StatusServiceUnavailable

	case ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// ErrorResponse is the JSON body of a failed API call
type ErrorResponse struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ToResponse maps an error to its HTTP status and response body.
// Errors without a code are reported as internal errors without their text.
func ToResponse(err error) (int, ErrorResponse) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, ErrorResponse{
			Code:    ErrCodeInternal,
			Message: "internal error",
		}
	}
	return e.HTTPStatusCode(), ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}
