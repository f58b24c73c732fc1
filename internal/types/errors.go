package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All handlers MUST use these constants instead of hardcoded strings.
const (
	// Validation (400) — bad or missing caller input. Detected before any
	// call to Stripe is made.
	ErrCodeValidationMissingEmail         ErrorCode = "validation_missing_email"
	ErrCodeValidationMissingPaymentMethod ErrorCode = "validation_missing_payment_method"
	ErrCodeValidationUnknownPriceKey      ErrorCode = "validation_unknown_price_key"
	ErrCodeValidationInvalidField         ErrorCode = "validation_invalid_field"

	// Signature (400) — webhook payload failed authenticity checks.
	ErrCodeSignatureMissing ErrorCode = "signature_missing_header"
	ErrCodeSignatureInvalid ErrorCode = "signature_invalid"

	// Configuration (500) — missing or invalid server-side configuration.
	// The specific cause is logged; clients see only a generic message.
	ErrCodeConfigMissingSecret ErrorCode = "config_missing_secret"
	ErrCodeConfigPriceUnset    ErrorCode = "config_price_unset"
	ErrCodeConfigInvalidPrice  ErrorCode = "config_invalid_price"

	// Upstream (502/504) — Stripe failed or was unreachable.
	ErrCodeUpstreamStripe      ErrorCode = "upstream_stripe"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamTimeout     ErrorCode = "upstream_timeout"

	// Payment-specific
	ErrCodePaymentDeclined ErrorCode = "payment_declined"

	// Internal (500)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Used by the API layer to translate AppErrors into HTTP responses.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "signature_"):
		return http.StatusBadRequest // 400
	case s == string(ErrCodePaymentDeclined):
		return http.StatusPaymentRequired // 402
	case strings.HasPrefix(s, "config_"):
		return http.StatusInternalServerError // 500
	case s == string(ErrCodeUpstreamTimeout):
		return http.StatusGatewayTimeout // 504
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the service.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
