// Package cache provides the response cache used by the backend routes and
// the two-tier cache used by the gateway.
package cache

import (
	"time"
)

// Entry represents a cached response body.
type Entry struct {
	// Key is the cache key the entry was stored under
	Key string `json:"key"`

	// Data is the cached JSON payload
	Data []byte `json:"data"`

	// CreatedAt is when the entry was stored
	CreatedAt time.Time `json:"timestamp"`

	// TTL is how long the entry stays valid after CreatedAt
	TTL time.Duration `json:"ttl"`
}

// Valid reports whether the entry is still fresh at now.
func (e *Entry) Valid(now time.Time) bool {
	if e == nil {
		return false
	}
	return now.Sub(e.CreatedAt) < e.TTL
}

// ExpiresAt returns the instant the entry stops being valid.
func (e *Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

// Remaining returns the time left until expiration.
// Returns 0 if already expired.
func (e *Entry) Remaining(now time.Time) time.Duration {
	ttl := e.ExpiresAt().Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
