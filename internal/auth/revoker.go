package auth

import (
	"context"
	"log/slog"

	"gouauth/internal/store"
)

// Revoker invalidates sessions. Revocation is idempotent and keeps the
// session record for audit.
type Revoker struct {
	sessions store.SessionStore
	logger   *slog.Logger
}

// NewRevoker creates a session revoker.
func NewRevoker(sessions store.SessionStore, logger *slog.Logger) *Revoker {
	return &Revoker{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "revoker")),
	}
}

// Revoke marks the session revoked. Revoking an already-revoked or unknown
// session returns false without error.
func (r *Revoker) Revoke(ctx context.Context, sessionID string) (bool, error) {
	revoked, err := r.sessions.RevokeSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if revoked {
		r.logger.InfoContext(ctx, "session revoked", slog.String("session_id", sessionID))
	}
	return revoked, nil
}
