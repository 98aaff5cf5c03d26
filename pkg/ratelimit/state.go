// Package ratelimit paces requests to the Riksdagen open data API.
//
// The API publishes no rate limit headers, so the client keeps a local token
// bucket and honours Retry-After when the server answers 429 or 503.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Defaults for a polite public API client.
const (
	DefaultRequestsPerSecond = 5.0
	DefaultBurst             = 5

	// DefaultBackoff applies when the server asks us to slow down without
	// saying for how long.
	DefaultBackoff = 30 * time.Second

	// MaxBackoff caps server requested pauses.
	MaxBackoff = 5 * time.Minute
)

// Config holds the token bucket settings.
type Config struct {
	// RequestsPerSecond is the sustained rate. Zero or negative disables
	// pacing.
	RequestsPerSecond float64

	// Burst is the bucket size. Values below 1 are treated as 1.
	Burst int
}

// DefaultConfig returns the default pacing configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
	}
}

// State is a point in time view of the throttle.
type State struct {
	// RequestsPerSecond is the configured rate, 0 when unlimited.
	RequestsPerSecond float64

	// Burst is the bucket size.
	Burst int

	// BackoffUntil is the end of the current server requested pause, zero
	// when none is active.
	BackoffUntil time.Time
}

// InBackoff returns true while a server requested pause is active.
func (s State) InBackoff() bool {
	return time.Now().Before(s.BackoffUntil)
}

// TimeUntilResume returns the remaining pause, 0 if none.
func (s State) TimeUntilResume() time.Duration {
	d := time.Until(s.BackoffUntil)
	if d < 0 {
		return 0
	}
	return d
}

// ShouldBackoff reports whether a response status asks the client to slow
// down.
func ShouldBackoff(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// ParseRetryAfter reads the Retry-After header in either its seconds or its
// HTTP date form. The second return is false when the header is absent or
// unparseable.
func ParseRetryAfter(headers http.Header) (time.Duration, bool) {
	v := strings.TrimSpace(headers.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	at, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	return d, true
}
