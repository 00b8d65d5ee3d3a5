package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gouauth/internal/errors"
	"gouauth/internal/store"
)

func issueFor(t *testing.T, st *store.MemoryStore, fingerprint string, ttl time.Duration) (string, *Validator) {
	t.Helper()
	user := seedUser(t, st, "alice", "hunter22")
	issuer := newIssuer(st, ttl, 3)
	_, token, err := issuer.Issue(context.Background(), user, fingerprint, "")
	require.NoError(t, err)
	return token, NewValidator(st, issuer.signer, discardLogger())
}

func TestValidate_FingerprintMismatch(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	token, validator := issueFor(t, st, "fp-issued", time.Hour)

	// Correct token, different hardware: rejected even before expiry.
	_, err := validator.Validate(ctx, token, "fp-other")
	assert.ErrorIs(t, err, apperrors.ErrFingerprintMismatch)

	// The session itself remains live for the right hardware.
	_, err = validator.Validate(ctx, token, "fp-issued")
	assert.NoError(t, err)
}

func TestValidate_Revoked(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	token, validator := issueFor(t, st, "fp", time.Hour)

	claims, err := validator.signer.Parse(token)
	require.NoError(t, err)
	_, err = st.RevokeSession(ctx, claims.SessionID)
	require.NoError(t, err)

	_, err = validator.Validate(ctx, token, "fp")
	assert.ErrorIs(t, err, apperrors.ErrSessionRevoked)
}

func TestValidate_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	token, validator := issueFor(t, st, "fp", time.Hour)

	// Validation at half-life succeeds.
	validator.now = func() time.Time { return time.Now().Add(30 * time.Minute) }
	_, err := validator.Validate(ctx, token, "fp")
	require.NoError(t, err)

	// Past expiry the same token fails, with no revoke ever called.
	validator.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = validator.Validate(ctx, token, "fp")
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)

	claims, err := validator.signer.Parse(token)
	require.NoError(t, err)
	session, err := st.GetSession(ctx, claims.SessionID)
	require.NoError(t, err)
	assert.False(t, session.Revoked, "expiry is time-based, not a revocation")
}

func TestValidate_UnknownSession(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	signer := NewTokenSigner(testSecret)
	validator := NewValidator(st, signer, discardLogger())

	token, err := signer.Sign(testSession("fp", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = validator.Validate(ctx, token, "fp")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestValidate_IntegrityCheckedFirst(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	_, validator := issueFor(t, st, "fp", time.Hour)

	// A forged token fails on signature, not on any business check.
	forged, err := NewTokenSigner("wrong-secret-wrong-secret-wrong!").Sign(
		testSession("fp", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = validator.Validate(ctx, forged, "fp")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestRevoker_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	token, validator := issueFor(t, st, "fp", time.Hour)
	revoker := NewRevoker(st, discardLogger())

	claims, err := validator.signer.Parse(token)
	require.NoError(t, err)

	revoked, err := revoker.Revoke(ctx, claims.SessionID)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = revoker.Revoke(ctx, claims.SessionID)
	require.NoError(t, err)
	assert.False(t, revoked, "second revoke reports false")

	revoked, err = revoker.Revoke(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, revoked, "unknown session reports false without error")

	// Both revokes leave the session permanently unable to validate.
	_, err = validator.Validate(ctx, token, "fp")
	assert.ErrorIs(t, err, apperrors.ErrSessionRevoked)
}
