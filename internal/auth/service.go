package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "gouauth/internal/errors"
	"gouauth/internal/store"
	"gouauth/pkg/contracts/domain"
)

// Service composes the verifier, issuer, validator and revoker into the
// operations the transport layer exposes.
type Service struct {
	users      store.UserStore
	keys       store.KeyStore
	verifier   *Verifier
	issuer     *Issuer
	validator  *Validator
	revoker    *Revoker
	logger     *slog.Logger
	bcryptCost int
	now        clock
}

// NewService wires the auth components over one storage backend.
func NewService(st store.Store, signer *TokenSigner, logger *slog.Logger, sessionTTL time.Duration, maxSessions, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:      st,
		keys:       st,
		verifier:   NewVerifier(st, st),
		issuer:     NewIssuer(st, signer, logger, sessionTTL, maxSessions),
		validator:  NewValidator(st, signer, logger),
		revoker:    NewRevoker(st, logger),
		logger:     logger.With(slog.String("component", "auth")),
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Register creates a password account and logs it straight in. Usernames are
// unique per application, case-insensitively.
func (s *Service) Register(ctx context.Context, req *domain.RegisterRequest, ipAddress string) (*domain.AuthData, error) {
	if _, err := s.users.GetUserByUsername(ctx, req.AppID, req.Username); err == nil {
		s.logFailure(ctx, "registration rejected", req.AppID, apperrors.ErrUsernameTaken)
		return nil, apperrors.ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		AppID:        req.AppID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		KeyType:      domain.KeyTypePassword,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, token, err := s.issuer.Issue(ctx, user, req.Fingerprint, ipAddress)
	if err != nil {
		s.logFailure(ctx, "session issuance rejected", req.AppID, err)
		return nil, err
	}

	return &domain.AuthData{
		Token:     token,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
		User:      user.Public(),
	}, nil
}

// Login authenticates a username/password pair and issues a session bound to
// the presented fingerprint.
func (s *Service) Login(ctx context.Context, req *domain.LoginRequest, ipAddress string) (*domain.AuthData, error) {
	user, err := s.verifier.VerifyPassword(ctx, req.AppID, req.Username, req.Password)
	if err != nil {
		s.logFailure(ctx, "password login rejected", req.AppID, err)
		return nil, err
	}

	session, token, err := s.issuer.Issue(ctx, user, req.Fingerprint, ipAddress)
	if err != nil {
		s.logFailure(ctx, "session issuance rejected", req.AppID, err)
		return nil, err
	}

	return &domain.AuthData{
		Token:     token,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
		User:      user.Public(),
	}, nil
}

// KeyLogin redeems a license key. An unclaimed key creates its owning user on
// first redemption; later redemptions authenticate that user.
func (s *Service) KeyLogin(ctx context.Context, req *domain.KeyLoginRequest, ipAddress string) (*domain.AuthData, error) {
	key, err := s.verifier.VerifyKey(ctx, req.AppID, strings.ToUpper(strings.TrimSpace(req.Key)))
	if err != nil {
		s.logFailure(ctx, "key login rejected", req.AppID, err)
		return nil, err
	}

	// Each distinct device fingerprint consumes one activation slot. Devices
	// already on the key re-authenticate freely.
	if key.MaxActivations > 0 && !key.ActivatedOn(req.Fingerprint) && key.Activations >= key.MaxActivations {
		s.logFailure(ctx, "key redemption rejected", req.AppID, apperrors.ErrKeyExhausted)
		return nil, apperrors.ErrKeyExhausted
	}

	user, err := s.resolveKeyUser(ctx, key)
	if err != nil {
		s.logFailure(ctx, "key redemption rejected", req.AppID, err)
		return nil, err
	}
	if user.Banned {
		s.logFailure(ctx, "key login rejected", req.AppID, apperrors.ErrUserBanned)
		return nil, apperrors.ErrUserBanned
	}

	session, token, err := s.issuer.Issue(ctx, user, req.Fingerprint, ipAddress)
	if err != nil {
		s.logFailure(ctx, "session issuance rejected", req.AppID, err)
		return nil, err
	}

	if err := s.keys.ClaimKey(ctx, key.ID, user.ID, req.Fingerprint); err != nil {
		s.logger.ErrorContext(ctx, "failed to record key redemption",
			slog.String("key_id", key.ID),
			slog.String("error", err.Error()),
		)
	}

	return &domain.AuthData{
		Token:     token,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
		User:      user.Public(),
	}, nil
}

// resolveKeyUser loads the key's owner, creating one on first redemption.
func (s *Service) resolveKeyUser(ctx context.Context, key *domain.Key) (*domain.User, error) {
	if key.Claimed() {
		user, err := s.users.GetUser(ctx, key.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load key owner: %w", err)
		}
		return user, nil
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		AppID:     key.AppID,
		Username:  keyUsername(key.Value),
		KeyType:   key.Type,
		CreatedAt: s.now(),
	}
	switch key.Type {
	case domain.KeyTypeTime:
		expires := s.now().AddDate(0, 0, key.DurationDays)
		if key.ExpiresAt != nil && key.ExpiresAt.Before(expires) {
			expires = *key.ExpiresAt
		}
		user.SubscriptionExpires = &expires
	case domain.KeyTypeLifetime, domain.KeyTypeUses:
		// No time-based entitlement.
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create key user: %w", err)
	}
	return user, nil
}

// keyUsername derives a stable display name for key-created accounts. It uses
// the full key value so distinct keys never map to the same username.
func keyUsername(value string) string {
	return "key-" + strings.ToLower(strings.ReplaceAll(value, "-", ""))
}

// Validate checks a session. The result never discloses which check failed;
// the cause is logged server-side only. Infrastructure failures are returned
// as plain errors since the question could not be answered at all.
func (s *Service) Validate(ctx context.Context, req *domain.ValidateSessionRequest) (*domain.SessionValidation, error) {
	session, err := s.validator.Validate(ctx, req.Token, req.Fingerprint)
	if err != nil {
		if apperrors.IsAuthError(err) {
			s.logger.InfoContext(ctx, "session validation failed",
				slog.String("reason", apperrors.CodeOf(err)),
			)
			return &domain.SessionValidation{Valid: false}, nil
		}
		return nil, err
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.WarnContext(ctx, "session references missing user",
				slog.String("session_id", session.ID),
				slog.String("user_id", session.UserID),
			)
			return &domain.SessionValidation{Valid: false}, nil
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	expiresAt := session.ExpiresAt
	return &domain.SessionValidation{
		Valid:            true,
		User:             user.Public(),
		SessionExpiresAt: &expiresAt,
	}, nil
}

// Logout revokes the session the token references. Invalid tokens and unknown
// sessions are not errors: logout is unconditionally successful.
func (s *Service) Logout(ctx context.Context, token string) (*domain.LogoutResponse, error) {
	claims, err := s.validator.signer.Parse(token)
	if err != nil {
		return &domain.LogoutResponse{Revoked: false}, nil
	}

	revoked, err := s.revoker.Revoke(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	return &domain.LogoutResponse{Revoked: revoked}, nil
}

func (s *Service) logFailure(ctx context.Context, msg, appID string, err error) {
	s.logger.InfoContext(ctx, msg,
		slog.String("app_id", appID),
		slog.String("reason", apperrors.CodeOf(err)),
		slog.String("error", err.Error()),
	)
}
