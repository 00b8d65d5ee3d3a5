package client

import "errors"

// Sentinel errors surfaced by the SDK. Server-side failures arrive as stable
// wire codes and are mapped onto these values, so callers match with
// errors.Is regardless of transport details.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
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
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrServer              = errors.New("server error")
)

var wireCodes = map[string]error{
	"INVALID_CREDENTIALS":  ErrInvalidCredentials,
	"INVALID_KEY_FORMAT":   ErrInvalidKeyFormat,
	"KEY_DISABLED":         ErrKeyDisabled,
	"KEY_EXPIRED":          ErrKeyExpired,
	"KEY_EXHAUSTED":        ErrKeyExhausted,
	"USER_BANNED":          ErrUserBanned,
	"SUBSCRIPTION_EXPIRED": ErrSubscriptionExpired,
	"TOKEN_INVALID":        ErrTokenInvalid,
	"SESSION_NOT_FOUND":    ErrSessionNotFound,
	"SESSION_REVOKED":      ErrSessionRevoked,
	"SESSION_EXPIRED":      ErrSessionExpired,
	"FINGERPRINT_MISMATCH": ErrFingerprintMismatch,
	"HARDWARE_READ_ERROR":  ErrHardwareRead,
	"NETWORK_ERROR":        ErrNetwork,
}

// errorForCode maps a wire code to its sentinel, or ErrServer for codes the
// SDK does not recognize.
func errorForCode(code string) error {
	if err, ok := wireCodes[code]; ok {
		return err
	}
	return ErrServer
}
