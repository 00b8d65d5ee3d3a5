// Package config loads service configuration from environment variables with
// the GOUAUTH_ prefix, merged over an optional YAML file. Environment values
// take precedence over file values, file values over defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Auth     AuthConfig     `yaml:"auth" envconfig:"AUTH"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"3001"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// AuthConfig contains session and token issuance configuration
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	SessionTTL  time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL" default:"24h"`
	MaxSessions int           `yaml:"max_sessions" envconfig:"MAX_SESSIONS" default:"3"`
	KeyPrefix   string        `yaml:"key_prefix" envconfig:"KEY_PREFIX" default:"GOU"`
	BcryptCost  int           `yaml:"bcrypt_cost" envconfig:"BCRYPT_COST" default:"12"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver      string        `yaml:"driver" envconfig:"DRIVER" default:"memory"`
	PostgresDSN string        `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
	RedisAddr   string        `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisDB     int           `yaml:"redis_db" envconfig:"REDIS_DB" default:"0"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"5s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3001"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"10"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/gouauth.log"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("GOUAUTH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// configFilePath returns the config file location, overridable via env
func configFilePath() string {
	if path := os.Getenv("GOUAUTH_CONFIG"); path != "" {
		return path
	}
	return "gouauth.yaml"
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envSet reports whether the given GOUAUTH_ variable was set explicitly.
// envconfig fills defaults for unset variables, so a zero check alone cannot
// tell "defaulted" from "explicitly configured".
func envSet(key string) bool {
	_, ok := os.LookupEnv("GOUAUTH_" + key)
	return ok
}

// mergeConfigs merges file config with env config (env takes precedence,
// file values beat envconfig defaults)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if !envSet("SERVER_PORT") && fileConfig.Server.Port != 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if !envSet("SERVER_READ_TIMEOUT") && fileConfig.Server.ReadTimeout != 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if !envSet("SERVER_WRITE_TIMEOUT") && fileConfig.Server.WriteTimeout != 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if !envSet("AUTH_JWT_SECRET") && fileConfig.Auth.JWTSecret != "" {
		envConfig.Auth.JWTSecret = fileConfig.Auth.JWTSecret
	}
	if !envSet("AUTH_SESSION_TTL") && fileConfig.Auth.SessionTTL != 0 {
		envConfig.Auth.SessionTTL = fileConfig.Auth.SessionTTL
	}
	if !envSet("AUTH_MAX_SESSIONS") && fileConfig.Auth.MaxSessions != 0 {
		envConfig.Auth.MaxSessions = fileConfig.Auth.MaxSessions
	}
	if !envSet("AUTH_KEY_PREFIX") && fileConfig.Auth.KeyPrefix != "" {
		envConfig.Auth.KeyPrefix = fileConfig.Auth.KeyPrefix
	}
	if !envSet("STORAGE_DRIVER") && fileConfig.Storage.Driver != "" {
		envConfig.Storage.Driver = fileConfig.Storage.Driver
	}
	if !envSet("STORAGE_POSTGRES_DSN") && fileConfig.Storage.PostgresDSN != "" {
		envConfig.Storage.PostgresDSN = fileConfig.Storage.PostgresDSN
	}
	if !envSet("STORAGE_REDIS_ADDR") && fileConfig.Storage.RedisAddr != "" {
		envConfig.Storage.RedisAddr = fileConfig.Storage.RedisAddr
	}
	if !envSet("LOGGING_LEVEL") && fileConfig.Logging.Level != "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}

	return envConfig
}

// validate checks configuration invariants
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if c.Auth.MaxSessions < 1 {
		return fmt.Errorf("auth.max_sessions must be at least 1")
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}
	return nil
}
