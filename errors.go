package relay

import (
	"fmt"
	"net/http"
)

// ErrorCode is a machine-readable identifier attached to errors raised by the
// relay itself. Errors passed through from upstream carry no code.
type ErrorCode string

const (
	InvalidRequest    ErrorCode = "invalid_request"    // Missing or malformed field.
	InvalidSignature  ErrorCode = "invalid_signature"  // Signature is missing or does not match the payload.
	SignatureRequired ErrorCode = "signature_required" // Signed requests are required but headers were missing.
	StaleTimestamp    ErrorCode = "stale_timestamp"    // Timestamp skew exceeded the allowed window.
)

// Messages used in the error field of relay responses.
const (
	MessageInternal          = "Internal server error"
	MessageInvalidRequest    = "Invalid request"
	MessageSessionFailed     = "Failed to create session"
	MessageValidationFailed  = "Validation failed"
	MessageSignatureRejected = "Signature rejected"
	MessageNotFound          = "Not found"
	MessageMethodNotAllowed  = "Method not allowed"
)

// Error is the JSON error payload returned by the relay.
type Error struct {
	Message string    `json:"error"`
	Details string    `json:"details,omitempty"`
	Code    ErrorCode `json:"code,omitempty"`

	status int `json:"-"`
}

// Error makes *Error satisfy the stdlib error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

// StatusCode returns the HTTP status the error is rendered with.
func (e *Error) StatusCode() int {
	if e == nil || e.status == 0 {
		return http.StatusInternalServerError
	}
	return e.status
}

type errorOption func(*Error)

// WithDetails sets the details field.
func WithDetails(details string) errorOption {
	return func(er *Error) {
		er.Details = details
	}
}

// WithCode sets the machine-readable code.
func WithCode(code ErrorCode) errorOption {
	return func(er *Error) {
		er.Code = code
	}
}

// NewInvalidRequestError builds a Bad Request payload.
func NewInvalidRequestError(details string, opts ...errorOption) *Error {
	return NewHTTPError(http.StatusBadRequest, MessageInvalidRequest, append([]errorOption{WithDetails(details)}, opts...)...)
}

// NewInternalError builds the generic 500 payload. Causes are logged, never
// returned to the caller.
func NewInternalError() *Error {
	return NewHTTPError(http.StatusInternalServerError, MessageInternal)
}

// NewHTTPError allows callers to control the status code explicitly.
func NewHTTPError(status int, message string, opts ...errorOption) *Error {
	errPayload := &Error{
		Message: message,
		status:  status,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(errPayload)
	}
	return errPayload
}

// UpstreamError reports a non-2xx answer from the Orchestra API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("orchestra: upstream returned %d: %s", e.StatusCode, e.Body)
}
