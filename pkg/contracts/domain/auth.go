package domain

import (
	"time"
)

// LoginRequest is the wire payload for password logins.
type LoginRequest struct {
	AppID       string `json:"app_id" validate:"required"`
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	Fingerprint string `json:"fingerprint" validate:"required,len=64,hexadecimal"`
}

// RegisterRequest is the wire payload for creating a password account.
type RegisterRequest struct {
	AppID       string `json:"app_id" validate:"required"`
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Fingerprint string `json:"fingerprint" validate:"required,len=64,hexadecimal"`
}

// KeyLoginRequest is the wire payload for license-key logins.
type KeyLoginRequest struct {
	AppID       string `json:"app_id" validate:"required"`
	Key         string `json:"key" validate:"required"`
	Fingerprint string `json:"fingerprint" validate:"required,len=64,hexadecimal"`
}

// ValidateSessionRequest is the wire payload for session probes.
type ValidateSessionRequest struct {
	Token       string `json:"token" validate:"required"`
	Fingerprint string `json:"fingerprint" validate:"required,len=64,hexadecimal"`
}

// AuthData is the success payload of a login. It is only ever produced whole:
// a failed login carries an error envelope instead, never a partial AuthData.
type AuthData struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// SessionValidation is the outcome of a session probe. When Valid is false the
// remaining fields are zero; the server does not disclose which check failed.
type SessionValidation struct {
	Valid            bool       `json:"valid"`
	User             *User      `json:"user,omitempty"`
	SessionExpiresAt *time.Time `json:"session_expires_at,omitempty"`
}

// LogoutResponse acknowledges a logout. Revoked is false when the session was
// already gone; the request still succeeds.
type LogoutResponse struct {
	Revoked bool `json:"revoked"`
}
