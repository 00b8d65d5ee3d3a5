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

func newIssuer(st store.SessionStore, ttl time.Duration, maxSessions int) *Issuer {
	return NewIssuer(st, NewTokenSigner(testSecret), discardLogger(), ttl, maxSessions)
}

func TestIssue_RoundTripValidates(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	user := seedUser(t, st, "alice", "hunter22")
	issuer := newIssuer(st, time.Hour, 3)
	validator := NewValidator(st, issuer.signer, discardLogger())

	session, token, err := issuer.Issue(ctx, user, "fp-1", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, "fp-1", session.Fingerprint)

	validated, err := validator.Validate(ctx, token, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, validated.ID)
	assert.Equal(t, user.ID, validated.UserID)
}

func TestIssue_RejectsExpiredSubscriptionBeforeState(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	past := time.Now().Add(-time.Hour)
	user := seedUser(t, st, "alice", "hunter22", func(u *domain.User) {
		u.SubscriptionExpires = &past
	})
	issuer := newIssuer(st, time.Hour, 3)

	_, _, err := issuer.Issue(ctx, user, "fp-1", "")
	assert.ErrorIs(t, err, apperrors.ErrSubscriptionExpired)

	live, err := st.LiveSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, live, "rejected issuance must create no session state")
}

func TestIssue_ExpiryCappedBySubscription(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	subscriptionEnd := time.Now().Add(30 * time.Minute)
	user := seedUser(t, st, "alice", "hunter22", func(u *domain.User) {
		u.SubscriptionExpires = &subscriptionEnd
	})
	issuer := newIssuer(st, 24*time.Hour, 3)

	session, _, err := issuer.Issue(ctx, user, "fp-1", "")
	require.NoError(t, err)
	assert.True(t, session.ExpiresAt.Equal(subscriptionEnd),
		"session must never outlive the subscription")
}

func TestIssue_SessionCapRevokesOldest(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	user := seedUser(t, st, "alice", "hunter22")
	issuer := newIssuer(st, time.Hour, 2)

	first, _, err := issuer.Issue(ctx, user, "fp-1", "")
	require.NoError(t, err)
	// Keep issuance order unambiguous.
	time.Sleep(5 * time.Millisecond)
	second, _, err := issuer.Issue(ctx, user, "fp-1", "")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	third, _, err := issuer.Issue(ctx, user, "fp-1", "")
	require.NoError(t, err)

	live, err := st.LiveSessions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, second.ID, live[0].ID)
	assert.Equal(t, third.ID, live[1].ID)

	oldest, err := st.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, oldest.Revoked, "oldest session is revoked, not deleted")
}
