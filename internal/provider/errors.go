package provider

import (
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound marks a legitimate "no such item" from a single-item lookup.
// It is not a health signal.
var ErrNotFound = eris.New("provider: not found")

// ErrUnknownProvider is returned for a source name nothing is registered under.
var ErrUnknownProvider = eris.New("provider: unknown provider")

// InitError reports that a provider failed to start. It is non-fatal to the
// orchestrator; the provider is excluded from dispatch until a later
// successful health check.
type InitError struct {
	Provider string
	Err      error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("provider %s: initialize: %v", e.Provider, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// RateLimitError is raised when a provider's window denies a call, or when
// the upstream answers 429. ResetAt is when the source becomes usable again.
type RateLimitError struct {
	Provider string
	ResetAt  time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider %s: rate limit exceeded, resets %s", e.Provider, e.ResetAt.Format(time.RFC3339))
}

// NewRateLimitError builds the fail-fast error for an exhausted budget.
func NewRateLimitError(provider string, resetAt time.Time) *RateLimitError {
	return &RateLimitError{Provider: provider, ResetAt: resetAt}
}

// AsRateLimit extracts a RateLimitError from err's chain.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// IsNotFound reports whether err is the not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
