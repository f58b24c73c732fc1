package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestAppErrorImplementsError verifies that *AppError satisfies the error interface.
func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

// TestAppErrorErrorFormat verifies the Error() method produces "code: message".
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationMissingEmail,
		Message: "email is required",
	}

	expected := "validation_missing_email: email is required"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

// TestAppErrorUnwrap verifies the error chain support via Unwrap.
func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection reset")
	appErr := &AppError{
		Code:    ErrCodeUpstreamStripe,
		Message: "failed to fetch price",
		Err:     underlying,
	}

	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() returned unexpected error: got %v, want %v", appErr.Unwrap(), underlying)
	}
}

// TestAppErrorErrorsAs verifies that errors.As can extract AppError from a chain.
func TestAppErrorErrorsAs(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeSignatureInvalid,
		Message: "webhook signature verification failed",
	}
	wrappedErr := fmt.Errorf("webhook handler: %w", appErr)

	var target *AppError
	if !errors.As(wrappedErr, &target) {
		t.Fatal("errors.As failed to extract *AppError from wrapped error")
	}
	if target.Code != ErrCodeSignatureInvalid {
		t.Errorf("extracted code = %q, want %q", target.Code, ErrCodeSignatureInvalid)
	}
}

// TestErrorCodeHTTPStatus verifies the code-prefix to status mapping that the
// API layer relies on.
func TestErrorCodeHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationMissingEmail, http.StatusBadRequest},
		{ErrCodeValidationMissingPaymentMethod, http.StatusBadRequest},
		{ErrCodeValidationUnknownPriceKey, http.StatusBadRequest},
		{ErrCodeSignatureMissing, http.StatusBadRequest},
		{ErrCodeSignatureInvalid, http.StatusBadRequest},
		{ErrCodePaymentDeclined, http.StatusPaymentRequired},
		{ErrCodeConfigMissingSecret, http.StatusInternalServerError},
		{ErrCodeConfigPriceUnset, http.StatusInternalServerError},
		{ErrCodeConfigInvalidPrice, http.StatusInternalServerError},
		{ErrCodeUpstreamStripe, http.StatusBadGateway},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusBadGateway},
		{ErrCodeUpstreamTimeout, http.StatusGatewayTimeout},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrorCode("something_unmapped"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Errorf("HTTPStatus(%q) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

// TestNewAppErrorWithDetails verifies details are carried through.
func TestNewAppErrorWithDetails(t *testing.T) {
	appErr := NewAppErrorWithDetails(
		ErrCodePaymentDeclined,
		"payment declined",
		nil,
		map[string]any{"decline_code": "insufficient_funds"},
	)

	if appErr.Details["decline_code"] != "insufficient_funds" {
		t.Errorf("Details not carried: %v", appErr.Details)
	}
	if appErr.HTTPStatus() != http.StatusPaymentRequired {
		t.Errorf("HTTPStatus() = %d, want 402", appErr.HTTPStatus())
	}
}
