package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gouauth/internal/errors"
	"gouauth/internal/store"
	"gouauth/pkg/contracts/domain"
)

func TestVerifyPassword_Success(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seeded := seedUser(t, st, "alice", "hunter22")
	v := NewVerifier(st, st)

	user, err := v.VerifyPassword(ctx, "app-1", "alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)
}

func TestVerifyPassword_NoEnumerationSignal(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "alice", "hunter22")
	v := NewVerifier(st, st)

	_, wrongPassword := v.VerifyPassword(ctx, "app-1", "alice", "wrong")
	_, unknownUser := v.VerifyPassword(ctx, "app-1", "bob", "whatever")

	// Both failure modes are the same sentinel: no distinguishing signal.
	assert.ErrorIs(t, wrongPassword, apperrors.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, apperrors.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestVerifyPassword_EmptyHashNeverMatches(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "keyonly", "", func(u *domain.User) { u.PasswordHash = "" })
	v := NewVerifier(st, st)

	_, err := v.VerifyPassword(ctx, "app-1", "keyonly", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestVerifyPassword_Banned(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "alice", "hunter22", func(u *domain.User) {
		u.Banned = true
		u.BanReason = "chargeback"
	})
	v := NewVerifier(st, st)

	_, err := v.VerifyPassword(ctx, "app-1", "alice", "hunter22")
	assert.ErrorIs(t, err, apperrors.ErrUserBanned)
}

func TestVerifyKey_MalformedFailsBeforeLookup(t *testing.T) {
	ctx := context.Background()
	counting := &countingStore{Store: store.NewMemoryStore()}
	v := NewVerifier(counting, counting)

	malformed := []string{
		"",
		"GOU",
		"GOU-1234",
		"GOU-1234-5678",
		"gou-1234-5678-9abc", // lowercase
		"GOU-12345-678-9ABC",
		"GOU_1234_5678_9ABC",
		"TOOLONGPREFIX-1234-5678-9ABC",
	}
	for _, key := range malformed {
		_, err := v.VerifyKey(ctx, "app-1", key)
		assert.ErrorIs(t, err, apperrors.ErrInvalidKeyFormat, "key %q", key)
	}

	assert.Zero(t, counting.keyLookups, "malformed keys must never reach the store")
}

func TestVerifyKey_Success(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seeded := seedKey(t, st, "GOU-1A2B-3C4D-5E6F")
	v := NewVerifier(st, st)

	key, err := v.VerifyKey(ctx, "app-1", "GOU-1A2B-3C4D-5E6F")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, key.ID)
}

func TestVerifyKey_UnknownKey(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	v := NewVerifier(st, st)

	_, err := v.VerifyKey(ctx, "app-1", "GOU-0000-0000-0000")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestVerifyKey_Disabled(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedKey(t, st, "GOU-1A2B-3C4D-5E6F", func(k *domain.Key) { k.Disabled = true })
	v := NewVerifier(st, st)

	_, err := v.VerifyKey(ctx, "app-1", "GOU-1A2B-3C4D-5E6F")
	assert.ErrorIs(t, err, apperrors.ErrKeyDisabled)
}

func TestVerifyKey_Expired(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	past := time.Now().Add(-time.Hour)
	seedKey(t, st, "GOU-1A2B-3C4D-5E6F", func(k *domain.Key) {
		k.Type = domain.KeyTypeTime
		k.DurationDays = 30
		k.ExpiresAt = &past
	})
	v := NewVerifier(st, st)

	_, err := v.VerifyKey(ctx, "app-1", "GOU-1A2B-3C4D-5E6F")
	assert.ErrorIs(t, err, apperrors.ErrKeyExpired)
}

func TestVerifyKey_Exhausted(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedKey(t, st, "GOU-1A2B-3C4D-5E6F", func(k *domain.Key) {
		k.Type = domain.KeyTypeUses
		k.MaxUses = 2
		k.Uses = 2
	})
	v := NewVerifier(st, st)

	_, err := v.VerifyKey(ctx, "app-1", "GOU-1A2B-3C4D-5E6F")
	assert.ErrorIs(t, err, apperrors.ErrKeyExhausted)
}
