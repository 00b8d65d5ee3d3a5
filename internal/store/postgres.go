package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"gouauth/pkg/contracts/domain"
)

// PostgresStore persists users, keys and sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Migrate creates the schema if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		app_id TEXT NOT NULL,
		username TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		key_type TEXT NOT NULL,
		subscription_expires TIMESTAMPTZ,
		banned BOOLEAN NOT NULL DEFAULT FALSE,
		ban_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (app_id, username)
	);
	CREATE TABLE IF NOT EXISTS license_keys (
		id TEXT PRIMARY KEY,
		key_value TEXT NOT NULL,
		app_id TEXT NOT NULL,
		key_type TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		duration_days INT NOT NULL DEFAULT 0,
		max_uses INT NOT NULL DEFAULT 0,
		uses INT NOT NULL DEFAULT 0,
		max_activations INT NOT NULL DEFAULT 1,
		activations INT NOT NULL DEFAULT 0,
		fingerprints TEXT[] NOT NULL DEFAULT '{}',
		disabled BOOLEAN NOT NULL DEFAULT FALSE,
		expires_at TIMESTAMPTZ,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (app_id, key_value)
	);
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		app_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		ip_address TEXT NOT NULL DEFAULT '',
		issued_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT FALSE
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions (user_id);
	`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// CreateUser stores a new user record.
func (p *PostgresStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (id, app_id, username, email, password_hash, key_type, subscription_expires, banned, ban_reason, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := p.db.ExecContext(ctx, query,
		user.ID, user.AppID, user.Username, user.Email, user.PasswordHash,
		string(user.KeyType), user.SubscriptionExpires, user.Banned, user.BanReason, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser returns the user with the given id.
func (p *PostgresStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	query := `
	SELECT id, app_id, username, email, password_hash, key_type, subscription_expires, banned, ban_reason, created_at
	FROM users WHERE id = $1;
	`
	return p.scanUser(p.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername returns the user with the given username within an app.
func (p *PostgresStore) GetUserByUsername(ctx context.Context, appID, username string) (*domain.User, error) {
	query := `
	SELECT id, app_id, username, email, password_hash, key_type, subscription_expires, banned, ban_reason, created_at
	FROM users WHERE app_id = $1 AND LOWER(username) = LOWER($2);
	`
	return p.scanUser(p.db.QueryRowContext(ctx, query, appID, username))
}

func (p *PostgresStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var keyType string
	var expires sql.NullTime
	err := row.Scan(
		&user.ID, &user.AppID, &user.Username, &user.Email, &user.PasswordHash,
		&keyType, &expires, &user.Banned, &user.BanReason, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.KeyType = domain.KeyType(keyType)
	if expires.Valid {
		user.SubscriptionExpires = &expires.Time
	}
	return &user, nil
}

// CreateKey stores a new license key.
func (p *PostgresStore) CreateKey(ctx context.Context, key *domain.Key) error {
	query := `
	INSERT INTO license_keys (id, key_value, app_id, key_type, user_id, duration_days, max_uses, uses, max_activations, activations, fingerprints, disabled, expires_at, note, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	fingerprints := key.Fingerprints
	if fingerprints == nil {
		fingerprints = []string{}
	}
	_, err := p.db.ExecContext(ctx, query,
		key.ID, key.Value, key.AppID, string(key.Type), key.UserID,
		key.DurationDays, key.MaxUses, key.Uses, key.MaxActivations, key.Activations,
		pq.Array(fingerprints), key.Disabled, key.ExpiresAt, key.Note, key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}
	return nil
}

// GetKeyByValue returns the key with the given literal value within an app.
func (p *PostgresStore) GetKeyByValue(ctx context.Context, appID, value string) (*domain.Key, error) {
	query := `
	SELECT id, key_value, app_id, key_type, user_id, duration_days, max_uses, uses, max_activations, activations, fingerprints, disabled, expires_at, note, created_at
	FROM license_keys WHERE app_id = $1 AND key_value = $2;
	`
	var key domain.Key
	var keyType string
	var expires sql.NullTime
	err := p.db.QueryRowContext(ctx, query, appID, value).Scan(
		&key.ID, &key.Value, &key.AppID, &keyType, &key.UserID,
		&key.DurationDays, &key.MaxUses, &key.Uses, &key.MaxActivations, &key.Activations,
		pq.Array(&key.Fingerprints), &key.Disabled, &expires, &key.Note, &key.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	key.Type = domain.KeyType(keyType)
	if expires.Valid {
		key.ExpiresAt = &expires.Time
	}
	return &key, nil
}

// ClaimKey records a redemption of the key by userID from fingerprint. The
// fingerprint occupies an activation slot only the first time it is seen.
func (p *PostgresStore) ClaimKey(ctx context.Context, keyID, userID, fingerprint string) error {
	query := `
	UPDATE license_keys
	SET user_id = CASE WHEN user_id = '' THEN $2 ELSE user_id END,
	    activations = CASE WHEN $3 <> '' AND NOT ($3 = ANY(fingerprints)) THEN activations + 1 ELSE activations END,
	    fingerprints = CASE WHEN $3 <> '' AND NOT ($3 = ANY(fingerprints)) THEN array_append(fingerprints, $3) ELSE fingerprints END,
	    uses = uses + 1
	WHERE id = $1;
	`
	result, err := p.db.ExecContext(ctx, query, keyID, userID, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to claim key: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to claim key: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSession stores a new session.
func (p *PostgresStore) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `
	INSERT INTO sessions (id, user_id, app_id, fingerprint, ip_address, issued_at, expires_at, revoked)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := p.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.AppID, session.Fingerprint,
		session.IPAddress, session.IssuedAt, session.ExpiresAt, session.Revoked,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns the session with the given id.
func (p *PostgresStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	query := `
	SELECT id, user_id, app_id, fingerprint, ip_address, issued_at, expires_at, revoked
	FROM sessions WHERE id = $1;
	`
	var session domain.Session
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.UserID, &session.AppID, &session.Fingerprint,
		&session.IPAddress, &session.IssuedAt, &session.ExpiresAt, &session.Revoked,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// RevokeSession marks the session revoked. The single UPDATE makes revocation
// linearizable with respect to subsequent reads.
func (p *PostgresStore) RevokeSession(ctx context.Context, id string) (bool, error) {
	query := `UPDATE sessions SET revoked = TRUE WHERE id = $1 AND revoked = FALSE;`
	result, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	return rows > 0, nil
}

// LiveSessions returns the user's live sessions, oldest first.
func (p *PostgresStore) LiveSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	query := `
	SELECT id, user_id, app_id, fingerprint, ip_address, issued_at, expires_at, revoked
	FROM sessions
	WHERE user_id = $1 AND revoked = FALSE AND expires_at > NOW()
	ORDER BY issued_at ASC;
	`
	rows, err := p.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(
			&session.ID, &session.UserID, &session.AppID, &session.Fingerprint,
			&session.IPAddress, &session.IssuedAt, &session.ExpiresAt, &session.Revoked,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}
