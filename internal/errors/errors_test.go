package errors

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad payload")
	assert.Equal(t, "bad payload", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", err.ErrorCode)
}

func TestAPIError_Render(t *testing.T) {
	err := New(http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	require.NoError(t, err.Render(w, r))
}

func TestNewWithDetails(t *testing.T) {
	err := NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "validation failed", []string{"username required"})
	assert.Equal(t, []string{"username required"}, err.Details)
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrInvalidCredentials, "INVALID_CREDENTIALS"},
		{ErrInvalidKeyFormat, "INVALID_KEY_FORMAT"},
		{ErrSubscriptionExpired, "SUBSCRIPTION_EXPIRED"},
		{ErrTokenInvalid, "TOKEN_INVALID"},
		{ErrSessionNotFound, "SESSION_NOT_FOUND"},
		{ErrSessionRevoked, "SESSION_REVOKED"},
		{ErrSessionExpired, "SESSION_EXPIRED"},
		{ErrFingerprintMismatch, "FINGERPRINT_MISMATCH"},
		{ErrHardwareRead, "HARDWARE_READ_ERROR"},
		{ErrNetwork, "NETWORK_ERROR"},
		{fmt.Errorf("wrapped: %w", ErrSessionRevoked), "SESSION_REVOKED"},
		{fmt.Errorf("unrelated"), ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, CodeOf(tt.err), "CodeOf(%v)", tt.err)
	}
}

func TestFromAuthError(t *testing.T) {
	apiErr := FromAuthError(ErrInvalidCredentials)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.ErrorCode)

	// wrapped errors still resolve
	apiErr = FromAuthError(fmt.Errorf("login: %w", ErrFingerprintMismatch))
	assert.Equal(t, "FINGERPRINT_MISMATCH", apiErr.ErrorCode)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	// unknown errors collapse to the generic 500
	apiErr = FromAuthError(fmt.Errorf("disk on fire"))
	assert.Equal(t, ErrInternalServer, apiErr)
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(ErrKeyExpired))
	assert.False(t, IsAuthError(fmt.Errorf("not ours")))
}
