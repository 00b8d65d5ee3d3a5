package domain

import (
	"time"
)

// Session represents one authenticated period, bound to the hardware
// fingerprint presented at login. Sessions are never deleted while live;
// revocation flips the Revoked flag and expiry is the permanent end state.
type Session struct {
	ID          string    `json:"session_id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	AppID       string    `json:"app_id" db:"app_id"`
	Fingerprint string    `json:"-" db:"fingerprint"`
	IPAddress   string    `json:"-" db:"ip_address"`
	IssuedAt    time.Time `json:"issued_at" db:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at" db:"expires_at"`
	Revoked     bool      `json:"-" db:"revoked"`
}

// Expired reports whether the session has passed its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// Live reports whether the session can still validate at t.
func (s *Session) Live(t time.Time) bool {
	return !s.Revoked && !s.Expired(t)
}
