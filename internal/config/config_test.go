package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setAuthEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOUAUTH_AUTH_JWT_SECRET", testSecret)
	t.Setenv("GOUAUTH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoad_Defaults(t *testing.T) {
	setAuthEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 3, cfg.Auth.MaxSessions)
	assert.Equal(t, "GOU", cfg.Auth.KeyPrefix)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.True(t, cfg.Security.RateLimit.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setAuthEnv(t)
	t.Setenv("GOUAUTH_SERVER_PORT", "8090")
	t.Setenv("GOUAUTH_AUTH_SESSION_TTL", "1h")
	t.Setenv("GOUAUTH_AUTH_KEY_PREFIX", "ACME")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "ACME", cfg.Auth.KeyPrefix)
}

func TestLoad_RedisDriver(t *testing.T) {
	setAuthEnv(t)
	t.Setenv("GOUAUTH_STORAGE_DRIVER", "redis")
	t.Setenv("GOUAUTH_STORAGE_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gouauth.yaml")
	content := `
server:
  port: 4000
auth:
  jwt_secret: "` + testSecret + `"
  key_prefix: FILE
storage:
  driver: memory
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	t.Setenv("GOUAUTH_CONFIG", file)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "FILE", cfg.Auth.KeyPrefix)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gouauth.yaml")
	content := `
server:
  port: 4000
auth:
  jwt_secret: "` + testSecret + `"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	t.Setenv("GOUAUTH_CONFIG", file)
	t.Setenv("GOUAUTH_SERVER_PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: "jwt_secret is required",
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "short" },
			wantErr: "at least 32 bytes",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Storage.Driver = "postgres" },
			wantErr: "postgres_dsn is required",
		},
		{
			name:    "redis without addr",
			mutate:  func(c *Config) { c.Storage.Driver = "redis" },
			wantErr: "redis_addr is required",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Storage.Driver = "etcd" },
			wantErr: "unknown storage driver",
		},
		{
			name:    "zero max sessions",
			mutate:  func(c *Config) { c.Auth.MaxSessions = 0 },
			wantErr: "max_sessions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:  ServerConfig{Port: 3001},
				Auth:    AuthConfig{JWTSecret: testSecret, SessionTTL: time.Hour, MaxSessions: 1},
				Storage: StorageConfig{Driver: "memory"},
			}
			tt.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
