package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gouauth/pkg/contracts/domain"
)

// MemoryStore is the default in-process backend. All methods are safe for
// concurrent use; a single mutex makes revoke-then-validate linearizable.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*domain.User
	keys     map[string]*domain.Key
	sessions map[string]*domain.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*domain.User),
		keys:     make(map[string]*domain.Key),
		sessions: make(map[string]*domain.Session),
	}
}

// CreateUser stores a new user record.
func (m *MemoryStore) CreateUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.ID]; exists {
		return ErrDuplicate
	}
	for _, existing := range m.users {
		if existing.AppID == user.AppID && strings.EqualFold(existing.Username, user.Username) {
			return ErrDuplicate
		}
	}

	clone := *user
	m.users[user.ID] = &clone
	return nil
}

// GetUser returns the user with the given id.
func (m *MemoryStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *user
	return &clone, nil
}

// GetUserByUsername returns the user with the given username within an app.
func (m *MemoryStore) GetUserByUsername(ctx context.Context, appID, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.AppID == appID && strings.EqualFold(user.Username, username) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// CreateKey stores a new license key.
func (m *MemoryStore) CreateKey(ctx context.Context, key *domain.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.keys[key.ID]; exists {
		return ErrDuplicate
	}
	for _, existing := range m.keys {
		if existing.AppID == key.AppID && existing.Value == key.Value {
			return ErrDuplicate
		}
	}

	m.keys[key.ID] = cloneKey(key)
	return nil
}

// GetKeyByValue returns the key with the given literal value within an app.
func (m *MemoryStore) GetKeyByValue(ctx context.Context, appID, value string) (*domain.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range m.keys {
		if key.AppID == appID && key.Value == value {
			return cloneKey(key), nil
		}
	}
	return nil, ErrNotFound
}

// cloneKey copies a key including its fingerprint roster, so callers never
// share slice storage with the store.
func cloneKey(key *domain.Key) *domain.Key {
	clone := *key
	clone.Fingerprints = append([]string(nil), key.Fingerprints...)
	return &clone
}

// ClaimKey records a redemption of the key by userID from fingerprint.
func (m *MemoryStore) ClaimKey(ctx context.Context, keyID, userID, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[keyID]
	if !ok {
		return ErrNotFound
	}
	if key.UserID == "" {
		key.UserID = userID
	}
	if fingerprint != "" && !key.ActivatedOn(fingerprint) {
		key.Fingerprints = append(key.Fingerprints, fingerprint)
		key.Activations++
	}
	key.Uses++
	return nil
}

// CreateSession stores a new session.
func (m *MemoryStore) CreateSession(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return ErrDuplicate
	}
	clone := *session
	m.sessions[session.ID] = &clone
	return nil
}

// GetSession returns the session with the given id.
func (m *MemoryStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *session
	return &clone, nil
}

// RevokeSession marks the session revoked, keeping the record for audit.
func (m *MemoryStore) RevokeSession(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok || session.Revoked {
		return false, nil
	}
	session.Revoked = true
	return true, nil
}

// LiveSessions returns the user's live sessions, oldest first.
func (m *MemoryStore) LiveSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var live []*domain.Session
	for _, session := range m.sessions {
		if session.UserID == userID && session.Live(now) {
			clone := *session
			live = append(live, &clone)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].IssuedAt.Before(live[j].IssuedAt)
	})
	return live, nil
}
