package capital

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/johnmagusrecords/tradebot/internal/retry"
)

// Token header names used by the broker on every authenticated request.
const (
	headerAPIKey        = "X-CAP-API-KEY"
	headerCST           = "CST"
	headerSecurityToken = "X-SECURITY-TOKEN"
)

// Sessions are refreshed well before the broker's actual expiry; 24h is a
// conservative bound.
const sessionLifetime = 24 * time.Hour

// Auth throttle: at most maxAuthAttempts login calls per identifier within
// authWindow. A broker 429 escalates straight to a lockout.
const (
	maxAuthAttempts = 4
	authWindow      = 10 * time.Minute
	lockoutOn429    = 60 * time.Second
)

// Credentials identify one broker account. Immutable per client instance.
type Credentials struct {
	APIKey     string
	Identifier string
	Password   string
	BaseURL    string
}

func (c Credentials) complete() bool {
	return c.APIKey != "" && c.Identifier != "" && c.Password != "" && c.BaseURL != ""
}

// Session holds the two broker tokens. It is owned by SessionManager and
// mutated only by Authenticate and Invalidate.
type Session struct {
	CST           string
	SecurityToken string
	Expiry        time.Time
	Authenticated bool
}

// throttleState tracks auth attempts within the current lockout window for
// one identifier.
type throttleState struct {
	windowStart time.Time
	attempts    int
	lockedUntil time.Time
}

// SessionManager owns the session lifecycle: login, expiry checks, and
// auth-attempt throttling.
type SessionManager struct {
	creds Credentials
	http  *http.Client
	log   *slog.Logger
	now   func() time.Time

	mu       sync.Mutex
	session  Session
	throttle throttleState

	authPolicy retry.Policy
}

// NewSessionManager creates a session manager for the given credentials.
// The logger may not be nil.
func NewSessionManager(creds Credentials, httpClient *http.Client, log *slog.Logger) *SessionManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &SessionManager{
		creds: creds,
		http:  httpClient,
		log:   log,
		now:   time.Now,
		authPolicy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   5 * time.Second,
			MaxDelay:    30 * time.Second,
		},
	}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Authenticate performs the login call and populates the session. Missing
// credentials fail immediately; a throttled identifier returns
// ErrAuthRateLimited; transient login failures are retried up to the
// attempt cap, then ErrAuthExhausted.
func (m *SessionManager) Authenticate(ctx context.Context) error {
	if !m.creds.complete() {
		return ErrMissingCredentials
	}
	if err := m.checkThrottle(); err != nil {
		return err
	}

	policy := m.authPolicy
	policy.Retryable = func(err error) bool {
		// 429 escalates the throttle; retrying inside this loop would only
		// make the lockout worse.
		return StatusOf(err) != http.StatusTooManyRequests
	}

	err := policy.Do(ctx, func() error { return m.login(ctx) })
	if err == nil {
		return nil
	}
	if StatusOf(err) == http.StatusTooManyRequests {
		m.escalateThrottle()
		return fmt.Errorf("%w: broker returned 429", ErrAuthRateLimited)
	}
	m.log.Error("authentication exhausted", "identifier", m.creds.Identifier, "err", err)
	return fmt.Errorf("%w: %v", ErrAuthExhausted, err)
}

func (m *SessionManager) login(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{
		Identifier: m.creds.Identifier,
		Password:   m.creds.Password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.creds.BaseURL+"/session", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKey, m.creds.APIKey)

	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Body: readBody(resp)}
	}

	cst := resp.Header.Get(headerCST)
	sec := resp.Header.Get(headerSecurityToken)
	if cst == "" || sec == "" {
		return fmt.Errorf("capital: login response missing tokens")
	}

	m.mu.Lock()
	m.session = Session{
		CST:           cst,
		SecurityToken: sec,
		Expiry:        m.now().Add(sessionLifetime),
		Authenticated: true,
	}
	m.mu.Unlock()

	m.log.Info("session established", "identifier", m.creds.Identifier)
	return nil
}

// EnsureValid re-authenticates if the session tokens are empty or expired.
func (m *SessionManager) EnsureValid(ctx context.Context) error {
	if m.Valid() {
		return nil
	}
	return m.Authenticate(ctx)
}

// Valid reports whether the session tokens are present and unexpired.
func (m *SessionManager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	return s.Authenticated && s.CST != "" && s.SecurityToken != "" && m.now().Before(s.Expiry)
}

// Invalidate discards the session, forcing the next call to re-authenticate.
// Called on 401 responses.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	m.session = Session{}
	m.mu.Unlock()
}

// tokens returns the current token pair for request headers.
func (m *SessionManager) tokens() (cst, sec string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.CST, m.session.SecurityToken
}

func (m *SessionManager) checkThrottle() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	t := &m.throttle

	if now.Before(t.lockedUntil) {
		return ErrAuthRateLimited
	}
	if now.Sub(t.windowStart) > authWindow {
		t.windowStart = now
		t.attempts = 0
	}
	if t.attempts >= maxAuthAttempts {
		return ErrAuthRateLimited
	}
	t.attempts++
	return nil
}

func (m *SessionManager) escalateThrottle() {
	m.mu.Lock()
	m.throttle.lockedUntil = m.now().Add(lockoutOn429)
	m.mu.Unlock()
}
