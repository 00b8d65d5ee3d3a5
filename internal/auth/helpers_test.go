package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gouauth/internal/store"
	"gouauth/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingStore wraps a Store and counts lookups, so tests can assert that
// fast-fail paths never reach storage.
type countingStore struct {
	store.Store
	userLookups int
	keyLookups  int
}

func (c *countingStore) GetUserByUsername(ctx context.Context, appID, username string) (*domain.User, error) {
	c.userLookups++
	return c.Store.GetUserByUsername(ctx, appID, username)
}

func (c *countingStore) GetKeyByValue(ctx context.Context, appID, value string) (*domain.Key, error) {
	c.keyLookups++
	return c.Store.GetKeyByValue(ctx, appID, value)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func seedUser(t *testing.T, st store.UserStore, username, password string, mutate ...func(*domain.User)) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:           uuid.New().String(),
		AppID:        "app-1",
		Username:     username,
		PasswordHash: mustHash(t, password),
		KeyType:      domain.KeyTypePassword,
		CreatedAt:    time.Now(),
	}
	for _, m := range mutate {
		m(user)
	}
	require.NoError(t, st.CreateUser(context.Background(), user))
	return user
}

func seedKey(t *testing.T, st store.KeyStore, value string, mutate ...func(*domain.Key)) *domain.Key {
	t.Helper()
	key := &domain.Key{
		ID:             uuid.New().String(),
		Value:          value,
		AppID:          "app-1",
		Type:           domain.KeyTypeLifetime,
		MaxActivations: 1,
		CreatedAt:      time.Now(),
	}
	for _, m := range mutate {
		m(key)
	}
	require.NoError(t, st.CreateKey(context.Background(), key))
	return key
}
