package github

import (
	"errors"
	"fmt"
	"time"
)

// AuthenticationError means the token was rejected. Callers should ask for a
// new one.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return "github authentication failed: " + e.Message
}

// RateLimitError means the quota is exhausted until ResetAt.
type RateLimitError struct {
	ResetAt time.Time
	Message string
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "github rate limit exceeded: " + e.Message
	}
	return fmt.Sprintf("github rate limit exceeded until %s: %s", e.ResetAt.Format(time.RFC3339), e.Message)
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return "github access forbidden: " + e.Message
}

// APIError is any other non-success response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api error %d: %s", e.StatusCode, e.Message)
}

// NetworkError wraps a transport failure before any response arrived.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "github unreachable: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ErrorKind names the class of err for progress events and HTTP responses.
func ErrorKind(err error) string {
	var (
		authErr      *AuthenticationError
		rateErr      *RateLimitError
		forbiddenErr *ForbiddenError
		apiErr       *APIError
		netErr       *NetworkError
	)
	switch {
	case errors.As(err, &authErr):
		return "authentication"
	case errors.As(err, &rateErr):
		return "rate_limit"
	case errors.As(err, &forbiddenErr):
		return "forbidden"
	case errors.As(err, &apiErr):
		return "api"
	case errors.As(err, &netErr):
		return "network"
	default:
		return "unknown"
	}
}
