package capital

import (
	"errors"
	"fmt"
)

// Authentication failures.
var (
	// ErrMissingCredentials means one or more credential fields are empty.
	// Fatal: never retried.
	ErrMissingCredentials = errors.New("capital: missing credentials")

	// ErrAuthRateLimited means the auth throttle blocked the attempt; the
	// caller must back off until the lockout window elapses.
	ErrAuthRateLimited = errors.New("capital: auth rate limited")

	// ErrAuthExhausted means all login attempts failed.
	ErrAuthExhausted = errors.New("capital: auth attempts exhausted")

	// ErrUnauthenticated means a valid session could not be established for
	// a request.
	ErrUnauthenticated = errors.New("capital: unauthenticated")
)

// APIError is a non-2xx broker response. It is returned as-is, without
// further retry beyond the transport's fixed budget.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("capital: API error (status %d): %s", e.Status, e.Body)
}

// StatusOf extracts the HTTP status from an error chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
