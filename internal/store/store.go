// Package store defines persistence for users, license keys and sessions,
// with in-memory, postgres and redis-backed implementations.
package store

import (
	"context"
	"errors"

	"gouauth/pkg/contracts/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique constraint would be violated.
var ErrDuplicate = errors.New("record already exists")

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, appID, username string) (*domain.User, error)
}

// KeyStore persists license keys.
type KeyStore interface {
	CreateKey(ctx context.Context, key *domain.Key) error
	GetKeyByValue(ctx context.Context, appID, value string) (*domain.Key, error)
	// ClaimKey atomically records a redemption: binds userID (may equal the
	// existing owner), bumps the uses counter, and registers fingerprint as
	// an activation if it is not already on the key.
	ClaimKey(ctx context.Context, keyID, userID, fingerprint string) error
}

// SessionStore persists sessions. Revocation must be linearizable with
// subsequent reads for the same session id.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	// RevokeSession marks the session revoked. Returns false when the session
	// is unknown or already revoked; never an error for those cases.
	RevokeSession(ctx context.Context, id string) (bool, error)
	// LiveSessions returns the user's unrevoked, unexpired sessions ordered
	// oldest first.
	LiveSessions(ctx context.Context, userID string) ([]*domain.Session, error)
}

// Store aggregates the three persistence interfaces behind one backend.
type Store interface {
	UserStore
	KeyStore
	SessionStore
}

// Composite assembles a Store from independent backends, so sessions can
// live in redis while users and keys stay in postgres or memory.
type Composite struct {
	UserStore
	KeyStore
	SessionStore
}

// NewComposite builds a Store from separate user, key and session backends.
func NewComposite(users UserStore, keys KeyStore, sessions SessionStore) *Composite {
	return &Composite{UserStore: users, KeyStore: keys, SessionStore: sessions}
}
