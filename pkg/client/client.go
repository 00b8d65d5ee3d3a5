// Package client is the Go SDK for the gouauth service. It hides the session
// machinery behind a small facade: derive the machine fingerprint once, log
// in with a password or a license key, then probe the session and log out.
//
//	c, err := client.New("my-app", "https://auth.example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := c.Login(ctx, "alice", "secret"); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Logout(ctx)
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"gouauth/internal/fingerprint"
	"gouauth/pkg/contracts/domain"
)

// State tracks where the client is in the session lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Client talks to a gouauth server on behalf of one application install.
// All methods are safe for concurrent use.
type Client struct {
	appID      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	deriver    *fingerprint.Deriver

	mu          sync.Mutex
	state       State
	fingerprint string
	token       string
	sessionID   string
	expiresAt   time.Time
	user        *domain.User
	now         func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger.With(slog.String("component", "gouauth-client")) }
}

// WithFingerprintSource replaces the hardware probes, mainly for tests.
func WithFingerprintSource(source fingerprint.Source) Option {
	return func(c *Client) { c.deriver = fingerprint.NewDeriver(source) }
}

// WithAllowPartialFingerprint tolerates individual hardware probe failures.
func WithAllowPartialFingerprint() Option {
	return func(c *Client) {
		c.deriver = fingerprint.NewDeriver(fingerprint.NewHostSource(), fingerprint.WithAllowPartial())
	}
}

// New creates a client for the given application against baseURL.
func New(appID, baseURL string, opts ...Option) (*Client, error) {
	if appID == "" {
		return nil, fmt.Errorf("app id is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	c := &Client{
		appID:      appID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		deriver:    fingerprint.NewDeriver(fingerprint.NewHostSource()),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login authenticates with a username and password and opens a session.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.AuthData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fp, err := c.machineFingerprint()
	if err != nil {
		return nil, err
	}

	return c.authenticate(ctx, "/api/auth/login", map[string]string{
		"app_id":      c.appID,
		"username":    username,
		"password":    password,
		"fingerprint": fp,
	})
}

// LoginWithKey redeems a license key and opens a session. Structurally
// invalid keys fail fast without touching the network.
func (c *Client) LoginWithKey(ctx context.Context, key string) (*domain.AuthData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key = strings.ToUpper(strings.TrimSpace(key))
	if !domain.ValidKeyFormat(key) {
		return nil, ErrInvalidKeyFormat
	}

	fp, err := c.machineFingerprint()
	if err != nil {
		return nil, err
	}

	return c.authenticate(ctx, "/api/auth/key", map[string]string{
		"app_id":      c.appID,
		"key":         key,
		"fingerprint": fp,
	})
}

// authenticate runs one login exchange. Callers hold c.mu. A transport
// failure restores the previous state; a rejection resets to unauthenticated.
func (c *Client) authenticate(ctx context.Context, path string, payload map[string]string) (*domain.AuthData, error) {
	previous := c.state
	c.state = StateAuthenticating

	var data domain.AuthData
	if err := c.post(ctx, path, payload, "", &data); err != nil {
		if isNetworkErr(err) {
			c.state = previous
		} else {
			c.clearLocked()
		}
		return nil, err
	}

	c.state = StateAuthenticated
	c.token = data.Token
	c.sessionID = data.SessionID
	c.expiresAt = data.ExpiresAt
	c.user = data.User
	return &data, nil
}

// ValidateSession asks the server whether the current session is still live.
// A definitive "no" clears local state; transport failures leave it alone.
func (c *Client) ValidateSession(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		return false, ErrNotAuthenticated
	}

	var validation domain.SessionValidation
	err := c.post(ctx, "/api/auth/validate", map[string]string{
		"token":       c.token,
		"fingerprint": c.fingerprint,
	}, "", &validation)
	if err != nil {
		return false, err
	}

	if !validation.Valid {
		c.clearLocked()
		return false, nil
	}
	if validation.User != nil {
		c.user = validation.User
	}
	return true, nil
}

// Logout revokes the session server-side on a best-effort basis and always
// clears local state. Transport failures are logged, not returned.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		var resp domain.LogoutResponse
		if err := c.post(ctx, "/api/auth/logout", nil, c.token, &resp); err != nil {
			c.logger.WarnContext(ctx, "server-side logout failed",
				slog.String("error", err.Error()))
		}
	}

	c.clearLocked()
}

// IsAuthenticated reports whether a session is held locally and its expiry
// has not passed. It does not contact the server; use ValidateSession for an
// authoritative answer.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateAuthenticated && c.token != "" && c.now().Before(c.expiresAt)
}

// GetUser returns the authenticated user, or nil when logged out.
func (c *Client) GetUser() *domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// GetToken returns the session token, or empty when logged out.
func (c *Client) GetToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// machineFingerprint derives the fingerprint on first use and reuses it for
// the life of the client. Callers hold c.mu.
func (c *Client) machineFingerprint() (string, error) {
	if c.fingerprint != "" {
		return c.fingerprint, nil
	}
	fp, err := c.deriver.Derive()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHardwareRead, err)
	}
	c.fingerprint = fp
	return fp, nil
}

func (c *Client) clearLocked() {
	c.state = StateUnauthenticated
	c.token = ""
	c.sessionID = ""
	c.expiresAt = time.Time{}
	c.user = nil
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// post sends one JSON request and decodes the envelope into out. Server
// rejections come back as taxonomy sentinels, transport failures as
// ErrNetwork.
func (c *Client) post(ctx context.Context, path string, payload map[string]string, bearer string, out interface{}) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrNetwork, err)
	}

	if !env.Success {
		code := ""
		if env.Error != nil {
			code = env.Error.Code
		}
		return errorForCode(code)
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decoding payload: %v", ErrNetwork, err)
		}
	}
	return nil
}

func isNetworkErr(err error) bool {
	return errors.Is(err, ErrNetwork)
}
