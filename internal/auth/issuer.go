package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "gouauth/internal/errors"
	"gouauth/internal/store"
	"gouauth/pkg/contracts/domain"
)

// Issuer mints sessions bound to (user, fingerprint) and signs the tokens
// that reference them.
type Issuer struct {
	sessions    store.SessionStore
	signer      *TokenSigner
	logger      *slog.Logger
	ttl         time.Duration
	maxSessions int
	now         clock
}

// NewIssuer creates a session issuer. ttl caps the session length; a user's
// subscription expiry caps it further. maxSessions bounds concurrent live
// sessions per user, revoking the oldest when exceeded.
func NewIssuer(sessions store.SessionStore, signer *TokenSigner, logger *slog.Logger, ttl time.Duration, maxSessions int) *Issuer {
	return &Issuer{
		sessions:    sessions,
		signer:      signer,
		logger:      logger.With(slog.String("component", "issuer")),
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Issue creates a session for the user bound to the fingerprint and returns
// it with its signed token. An expired entitlement is rejected before any
// session state is created.
func (i *Issuer) Issue(ctx context.Context, user *domain.User, fingerprint, ipAddress string) (*domain.Session, string, error) {
	now := i.now()
	if user.SubscriptionExpired(now) {
		return nil, "", apperrors.ErrSubscriptionExpired
	}

	expiresAt := now.Add(i.ttl)
	// Never outlive the entitlement.
	if user.SubscriptionExpires != nil && user.SubscriptionExpires.Before(expiresAt) {
		expiresAt = *user.SubscriptionExpires
	}

	if err := i.enforceSessionCap(ctx, user.ID); err != nil {
		return nil, "", err
	}

	session := &domain.Session{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		AppID:       user.AppID,
		Fingerprint: fingerprint,
		IPAddress:   ipAddress,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	}

	if err := i.sessions.CreateSession(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to persist session: %w", err)
	}

	token, err := i.signer.Sign(session)
	if err != nil {
		// Roll back so a failed issuance leaves no session state behind.
		if _, revokeErr := i.sessions.RevokeSession(ctx, session.ID); revokeErr != nil {
			i.logger.ErrorContext(ctx, "failed to roll back session after signing error",
				slog.String("session_id", session.ID),
				slog.String("error", revokeErr.Error()),
			)
		}
		return nil, "", err
	}

	i.logger.InfoContext(ctx, "session issued",
		slog.String("session_id", session.ID),
		slog.String("user_id", user.ID),
		slog.Time("expires_at", expiresAt),
	)
	return session, token, nil
}

// enforceSessionCap revokes the oldest live sessions until the user is below
// the concurrent-session limit.
func (i *Issuer) enforceSessionCap(ctx context.Context, userID string) error {
	live, err := i.sessions.LiveSessions(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list live sessions: %w", err)
	}
	for len(live) >= i.maxSessions {
		oldest := live[0]
		live = live[1:]
		if _, err := i.sessions.RevokeSession(ctx, oldest.ID); err != nil {
			return fmt.Errorf("failed to revoke superseded session: %w", err)
		}
		i.logger.InfoContext(ctx, "revoked oldest session to stay under cap",
			slog.String("session_id", oldest.ID),
			slog.String("user_id", userID),
		)
	}
	return nil
}
