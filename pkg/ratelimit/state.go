// Package ratelimit tracks the upstream subscription tier and request quota,
// widens cache TTLs when quota is scarce and gates non-essential routes when it
// is nearly exhausted.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Upstream response headers carrying tier and quota.
const (
	HeaderLimit     = "X-Ratelimit-Limit"
	HeaderRemaining = "X-Ratelimit-Remaining"
	HeaderReset     = "X-Ratelimit-Reset"
	HeaderTier      = "X-Subscription-Tier"
)

// Tier is the upstream subscription level.
type Tier string

const (
	// TierFree is the most conservative tier and the default when detection fails.
	TierFree Tier = "free"

	// TierPaidUnknown is any paid tier; its exact quota comes from the headers.
	TierPaidUnknown Tier = "paid-unknown"
)

// Thresholds for quota decisions.
const (
	// RemainingCritical is the remaining-request count at or below which
	// non-essential routes degrade to cache-only.
	RemainingCritical = 2

	// FreeTierMaxLimit is the largest per-minute limit still treated as free
	// when the upstream does not name its tier.
	FreeTierMaxLimit = 5

	// DefaultMaxAge is how long a tier check stays fresh.
	DefaultMaxAge = 24 * time.Hour
)

// RateLimit is the quota reported by the upstream.
type RateLimit struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
}

// State is the tier manager's view of the upstream. It is replaced wholesale on
// every update, never modified in place.
type State struct {
	Tier          Tier      `json:"tier"`
	LastCheckedAt time.Time `json:"last_checked_at"`
	RateLimit     RateLimit `json:"rate_limit"`

	// Known is false until the first probe completes (successful or not).
	Known bool `json:"known"`

	// HasQuota is true once any response carried rate-limit headers.
	HasQuota bool `json:"has_quota"`
}

// IsStale returns true if the state was never checked or is older than maxAge.
func (s State) IsStale(now time.Time, maxAge time.Duration) bool {
	if !s.Known || s.LastCheckedAt.IsZero() {
		return true
	}
	return now.Sub(s.LastCheckedAt) > maxAge
}

// IsCritical reports whether the remaining quota is at or below RemainingCritical.
func (s State) IsCritical() bool {
	return s.HasQuota && s.RateLimit.Remaining <= RemainingCritical
}

// UsagePercentage returns the share of the quota already used, 0-100.
func (s State) UsagePercentage() float64 {
	if s.RateLimit.Limit <= 0 {
		return 0
	}
	used := s.RateLimit.Limit - s.RateLimit.Remaining
	if used < 0 {
		used = 0
	}
	return float64(used) / float64(s.RateLimit.Limit) * 100
}

// parseQuota reads the rate-limit headers. ok is false when the remaining
// header is absent or malformed.
func parseQuota(h http.Header) (RateLimit, bool) {
	remaining, err := strconv.Atoi(strings.TrimSpace(h.Get(HeaderRemaining)))
	if err != nil {
		return RateLimit{}, false
	}
	limit, _ := strconv.Atoi(strings.TrimSpace(h.Get(HeaderLimit)))
	reset, _ := strconv.ParseInt(strings.TrimSpace(h.Get(HeaderReset)), 10, 64)

	return RateLimit{Limit: limit, Remaining: remaining, Reset: reset}, true
}

// detectTier derives the tier from the subscription header, falling back to
// the size of the limit, and to free when nothing is known.
func detectTier(h http.Header, quota RateLimit, hasQuota bool) Tier {
	if name := strings.ToLower(strings.TrimSpace(h.Get(HeaderTier))); name != "" {
		if name == string(TierFree) {
			return TierFree
		}
		return TierPaidUnknown
	}
	if hasQuota && quota.Limit > FreeTierMaxLimit {
		return TierPaidUnknown
	}
	return TierFree
}
