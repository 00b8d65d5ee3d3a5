package errors

import (
	"errors"
	"net/http"
)

// Auth-specific errors (sentinel errors for errors.Is matching)
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInvalidKeyFormat    = errors.New("invalid license key format")
	ErrKeyDisabled         = errors.New("license key disabled")
	ErrKeyExpired          = errors.New("license key expired")
	ErrKeyExhausted        = errors.New("license key has no remaining uses")
	ErrUserBanned          = errors.New("user banned")
	ErrSubscriptionExpired = errors.New("subscription expired")
	ErrTokenInvalid        = errors.New("token invalid")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionRevoked      = errors.New("session revoked")
	ErrSessionExpired      = errors.New("session expired")
	ErrFingerprintMismatch = errors.New("fingerprint mismatch")
	ErrHardwareRead        = errors.New("hardware identifiers unavailable")
	ErrNetwork             = errors.New("network error")
)

// authErrorCodes maps sentinel errors to their stable wire codes and HTTP
// status. Codes are part of the API contract and must not change.
var authErrorCodes = map[error]struct {
	code   string
	status int
}{
	ErrInvalidCredentials:  {"INVALID_CREDENTIALS", http.StatusUnauthorized},
	ErrUsernameTaken:       {"USERNAME_TAKEN", http.StatusConflict},
	ErrInvalidKeyFormat:    {"INVALID_KEY_FORMAT", http.StatusBadRequest},
	ErrKeyDisabled:         {"KEY_DISABLED", http.StatusForbidden},
	ErrKeyExpired:          {"KEY_EXPIRED", http.StatusForbidden},
	ErrKeyExhausted:        {"KEY_EXHAUSTED", http.StatusForbidden},
	ErrUserBanned:          {"USER_BANNED", http.StatusForbidden},
	ErrSubscriptionExpired: {"SUBSCRIPTION_EXPIRED", http.StatusForbidden},
	ErrTokenInvalid:        {"TOKEN_INVALID", http.StatusUnauthorized},
	ErrSessionNotFound:     {"SESSION_NOT_FOUND", http.StatusUnauthorized},
	ErrSessionRevoked:      {"SESSION_REVOKED", http.StatusUnauthorized},
	ErrSessionExpired:      {"SESSION_EXPIRED", http.StatusUnauthorized},
	ErrFingerprintMismatch: {"FINGERPRINT_MISMATCH", http.StatusForbidden},
	ErrHardwareRead:        {"HARDWARE_READ_ERROR", http.StatusInternalServerError},
	ErrNetwork:             {"NETWORK_ERROR", http.StatusBadGateway},
}

// CodeOf returns the stable wire code for an auth error, or empty when the
// error is not part of the auth taxonomy.
func CodeOf(err error) string {
	for sentinel, meta := range authErrorCodes {
		if errors.Is(err, sentinel) {
			return meta.code
		}
	}
	return ""
}

// FromAuthError converts an auth sentinel error into an APIError response.
// Unrecognized errors map to the generic internal server error so that
// internals never leak onto the wire.
func FromAuthError(err error) *APIError {
	for sentinel, meta := range authErrorCodes {
		if errors.Is(err, sentinel) {
			return New(meta.status, meta.code, sentinel.Error())
		}
	}
	return ErrInternalServer
}

// IsAuthError reports whether err belongs to the auth error taxonomy.
func IsAuthError(err error) bool {
	return CodeOf(err) != ""
}
