package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "gouauth/internal/errors"
	"gouauth/internal/store"
	"gouauth/pkg/contracts/domain"
)

// dummyHash is compared against when the user does not exist, so the missing
// and wrong-password paths cost the same. bcrypt hash of an unguessable value.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

// Verifier checks presented credentials against stored records.
type Verifier struct {
	users store.UserStore
	keys  store.KeyStore
	now   clock
}

// NewVerifier creates a credential verifier over the given stores.
func NewVerifier(users store.UserStore, keys store.KeyStore) *Verifier {
	return &Verifier{users: users, keys: keys, now: time.Now}
}

// VerifyPassword checks a username/password pair. Unknown users and wrong
// passwords both fail with ErrInvalidCredentials so callers cannot enumerate
// accounts. Plaintext is never compared; bcrypt does the work.
func (v *Verifier) VerifyPassword(ctx context.Context, appID, username, password string) (*domain.User, error) {
	user, err := v.users.GetUserByUsername(ctx, appID, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a comparison anyway to equalize timing.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.Banned {
		return nil, apperrors.ErrUserBanned
	}
	return user, nil
}

// VerifyKey checks a license key. The structural check runs before any store
// lookup, so malformed keys fail fast without a round-trip.
func (v *Verifier) VerifyKey(ctx context.Context, appID, value string) (*domain.Key, error) {
	if !domain.ValidKeyFormat(value) {
		return nil, apperrors.ErrInvalidKeyFormat
	}

	key, err := v.keys.GetKeyByValue(ctx, appID, value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up key: %w", err)
	}

	if key.Disabled {
		return nil, apperrors.ErrKeyDisabled
	}
	if key.Expired(v.now()) {
		return nil, apperrors.ErrKeyExpired
	}
	if key.Exhausted() {
		return nil, apperrors.ErrKeyExhausted
	}
	return key, nil
}
