// Package health tracks per-provider usability for the tender search fan-out.
package health

import "time"

// Status classifies a provider's current usability. It is re-evaluated on
// every health probe and on every failure reported by the dispatcher.
type Status int

const (
	// StatusInactive means the provider is registered but not running
	// (before a successful Initialize, or after a clean shutdown).
	StatusInactive Status = iota
	// StatusActive means the latest probe succeeded and no rate limit is in effect.
	StatusActive
	// StatusError means the latest probe or call failed.
	StatusError
	// StatusRateLimited means the provider's request budget is exhausted
	// until RateLimitReset.
	StatusRateLimited
)

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusActive:
		return "active"
	case StatusError:
		return "error"
	case StatusRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its string form for the health endpoint.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Health is the registry's record for one provider.
type Health struct {
	Name           string         `json:"name"`
	Status         Status         `json:"status"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTime   *time.Duration `json:"response_time,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	RateLimitReset *time.Time     `json:"rate_limit_reset,omitempty"`
}
