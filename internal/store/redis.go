package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"gouauth/pkg/contracts/domain"
)

// RedisSessionStore keeps sessions in Redis, keyed session:<id>. Records are
// TTL'd to the session expiry so expired sessions age out on their own;
// revoked sessions stay until expiry for audit.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: "session:",
	}
}

func (r *RedisSessionStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisSessionStore) userKey(userID string) string {
	return "user_sessions:" + userID
}

// CreateSession stores a new session with a TTL matching its expiry.
func (r *RedisSessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session expires_at must be in the future")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.SetNX(ctx, r.key(session.ID), data, ttl)
	pipe.SAdd(ctx, r.userKey(session.UserID), session.ID)
	pipe.ExpireGT(ctx, r.userKey(session.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// GetSession returns the session with the given id.
func (r *RedisSessionStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	val, err := r.client.Get(ctx, r.key(id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// RevokeSession marks the session revoked, keeping the record until expiry.
func (r *RedisSessionStore) RevokeSession(ctx context.Context, id string) (bool, error) {
	session, err := r.GetSession(ctx, id)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if session.Revoked {
		return false, nil
	}

	session.Revoked = true
	data, err := json.Marshal(session)
	if err != nil {
		return false, fmt.Errorf("failed to marshal session: %w", err)
	}

	// KEEPTTL preserves the original expiry window.
	if err := r.client.Set(ctx, r.key(id), data, redis.KeepTTL).Err(); err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	return true, nil
}

// LiveSessions returns the user's live sessions, oldest first.
func (r *RedisSessionStore) LiveSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}

	now := time.Now()
	var live []*domain.Session
	for _, id := range ids {
		session, err := r.GetSession(ctx, id)
		if err == ErrNotFound {
			// Aged out; drop the dangling reference.
			r.client.SRem(ctx, r.userKey(userID), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.Live(now) {
			live = append(live, session)
		}
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].IssuedAt.Before(live[j].IssuedAt)
	})
	return live, nil
}
