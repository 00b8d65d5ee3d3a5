package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "gouauth/internal/errors"
	"gouauth/internal/store"
	"gouauth/pkg/contracts/domain"
)

// Validator checks presented tokens against issued-session state. Checks run
// cheapest and safest first; the caller decides how much of the failure cause
// crosses the wire.
type Validator struct {
	sessions store.SessionStore
	signer   *TokenSigner
	logger   *slog.Logger
	now      clock
}

// NewValidator creates a session validator.
func NewValidator(sessions store.SessionStore, signer *TokenSigner, logger *slog.Logger) *Validator {
	return &Validator{
		sessions: sessions,
		signer:   signer,
		logger:   logger.With(slog.String("component", "validator")),
		now:      time.Now,
	}
}

// Validate verifies token integrity, then the referenced session's existence,
// revocation flag, expiry and fingerprint binding, in that order. The first
// failed check wins; expiry is evaluated lazily here, never by a sweeper.
func (v *Validator) Validate(ctx context.Context, token, fingerprint string) (*domain.Session, error) {
	claims, err := v.signer.Parse(token)
	if err != nil {
		return nil, err
	}

	session, err := v.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.Revoked {
		return nil, apperrors.ErrSessionRevoked
	}
	if session.Expired(v.now()) {
		return nil, apperrors.ErrSessionExpired
	}
	if subtle.ConstantTimeCompare([]byte(session.Fingerprint), []byte(fingerprint)) != 1 {
		v.logger.WarnContext(ctx, "fingerprint mismatch on validation",
			slog.String("session_id", session.ID),
			slog.String("user_id", session.UserID),
		)
		return nil, apperrors.ErrFingerprintMismatch
	}

	return session, nil
}
