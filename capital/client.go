// Package capital implements the broker REST client: session lifecycle,
// auth throttling, call rate limiting, and a retrying authenticated request
// layer with typed endpoint helpers on top.
package capital

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/johnmagusrecords/tradebot/internal/retry"
)

// DefaultCallsPerMinute is the broker call budget enforced by the client's
// rate limiter.
const DefaultCallsPerMinute = 60

// Public API base URLs.
const (
	DemoAPIURL = "https://demo-api-capital.backend-capital.com/api/v1"
	LiveAPIURL = "https://api-capital.backend-capital.com/api/v1"
)

// Client issues authenticated requests through the session manager and rate
// limiter. Safe for concurrent use.
type Client struct {
	session   *SessionManager
	http      *http.Client
	limiter   *rate.Limiter
	transport retry.Policy
	log       *slog.Logger
	baseURL   string
}

// NewClient creates a broker client. callsPerMinute <= 0 selects
// DefaultCallsPerMinute.
func NewClient(creds Credentials, callsPerMinute int, log *slog.Logger) *Client {
	if callsPerMinute <= 0 {
		callsPerMinute = DefaultCallsPerMinute
	}
	httpClient := &http.Client{Timeout: 15 * time.Second}

	return &Client{
		session:   NewSessionManager(creds, httpClient, log),
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), callsPerMinute),
		transport: retry.Transport,
		log:       log,
		baseURL:   strings.TrimRight(creds.BaseURL, "/"),
	}
}

// Session exposes the session manager, mainly so callers can observe auth
// state.
func (c *Client) Session() *SessionManager { return c.session }

// Request issues one authenticated call. Params may be nil; body is JSON
// encoded when non-nil. On a 401 the session is invalidated and the request
// retried exactly once after re-authenticating; that single retry is the
// only place stale tokens are repaired. Transient network failures are
// retried within the transport policy's fixed budget.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, params url.Values) (json.RawMessage, error) {
	if err := c.session.EnsureValid(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	raw, err := c.do(ctx, method, endpoint, body, params)
	if StatusOf(err) == http.StatusUnauthorized {
		c.log.Warn("session rejected, re-authenticating", "endpoint", endpoint)
		c.session.Invalidate()
		if authErr := c.session.Authenticate(ctx); authErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, authErr)
		}
		raw, err = c.do(ctx, method, endpoint, body, params)
	}
	return raw, err
}

// do performs the HTTP exchange, retrying network-level failures only.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, params url.Values) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	apiURL := c.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	policy := c.transport
	policy.Retryable = func(err error) bool {
		// Broker responses, even errors, are definitive; only network
		// failures are transient.
		return StatusOf(err) == 0
	}

	var raw json.RawMessage
	err := policy.Do(ctx, func() error {
		// Every physical call, retries included, consumes rate budget.
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, apiURL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set(headerAPIKey, c.session.creds.APIKey)
		cst, sec := c.session.tokens()
		req.Header.Set(headerCST, cst)
		req.Header.Set(headerSecurityToken, sec)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &APIError{Status: resp.StatusCode, Body: readBody(resp)}
		}

		if !strings.Contains(resp.Header.Get("Content-Type"), "json") {
			// Non-JSON 2xx: generic success marker.
			raw = json.RawMessage(`{}`)
			return nil
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		raw = data
		return nil
	})
	return raw, err
}

func readBody(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return string(data)
}
