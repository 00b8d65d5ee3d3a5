// Package auth implements credential verification, session issuance,
// validation and revocation for the GOU Auth service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "gouauth/internal/errors"
	"gouauth/pkg/contracts/domain"
)

// Claims represents the JWT claims bound to a session token. The token only
// references the session; all revocable state lives server-side.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// TokenSigner mints and verifies tamper-evident session tokens (HS256 JWT).
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner creates a signer over the shared HMAC secret.
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret)}
}

// Sign produces a token referencing the session, expiring with it.
func (s *TokenSigner) Sign(session *domain.Session) (string, error) {
	claims := &Claims{
		UserID:    session.UserID,
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token signature and returns its claims. Any integrity or
// format failure maps to ErrTokenInvalid; expiry is deliberately NOT enforced
// here — the session record is authoritative and checked by the validator.
func (s *TokenSigner) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrTokenInvalid
	}
	if claims.SessionID == "" {
		return nil, apperrors.ErrTokenInvalid
	}
	return claims, nil
}

// clock abstracts time.Now for deterministic expiry tests.
type clock func() time.Time
