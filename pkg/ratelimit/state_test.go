package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestState_IsStale(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		state    State
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "unknown state",
			state:    State{},
			maxAge:   DefaultMaxAge,
			expected: true,
		},
		{
			name:     "fresh state",
			state:    State{Known: true, LastCheckedAt: now.Add(-time.Hour)},
			maxAge:   DefaultMaxAge,
			expected: false,
		},
		{
			name:     "stale state",
			state:    State{Known: true, LastCheckedAt: now.Add(-25 * time.Hour)},
			maxAge:   DefaultMaxAge,
			expected: true,
		},
		{
			name:     "known without timestamp",
			state:    State{Known: true},
			maxAge:   DefaultMaxAge,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsStale(now, tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsCritical(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		hasQuota  bool
		expected  bool
	}{
		{name: "plenty remaining", remaining: 50, hasQuota: true, expected: false},
		{name: "just above threshold", remaining: 3, hasQuota: true, expected: false},
		{name: "at threshold", remaining: 2, hasQuota: true, expected: true},
		{name: "exhausted", remaining: 0, hasQuota: true, expected: true},
		{name: "no quota seen yet", remaining: 0, hasQuota: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{HasQuota: tt.hasQuota, RateLimit: RateLimit{Limit: 60, Remaining: tt.remaining}}
			if got := s.IsCritical(); got != tt.expected {
				t.Errorf("IsCritical() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_UsagePercentage(t *testing.T) {
	tests := []struct {
		limit, remaining int
		want             float64
	}{
		{limit: 60, remaining: 60, want: 0},
		{limit: 60, remaining: 45, want: 25},
		{limit: 5, remaining: 0, want: 100},
		{limit: 0, remaining: 0, want: 0},
		{limit: 5, remaining: 9, want: 0},
	}

	for _, tt := range tests {
		s := State{RateLimit: RateLimit{Limit: tt.limit, Remaining: tt.remaining}}
		if got := s.UsagePercentage(); got != tt.want {
			t.Errorf("UsagePercentage(%d/%d) = %v, want %v", tt.remaining, tt.limit, got, tt.want)
		}
	}
}

func TestParseQuota(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderLimit, "60")
	h.Set(HeaderRemaining, "42")
	h.Set(HeaderReset, "1740830400")

	quota, ok := parseQuota(h)
	if !ok {
		t.Fatal("parseQuota() ok = false")
	}
	if quota.Limit != 60 || quota.Remaining != 42 || quota.Reset != 1740830400 {
		t.Errorf("quota = %+v", quota)
	}

	if _, ok := parseQuota(http.Header{}); ok {
		t.Error("parseQuota() ok = true without headers")
	}

	bad := http.Header{}
	bad.Set(HeaderRemaining, "lots")
	if _, ok := parseQuota(bad); ok {
		t.Error("parseQuota() ok = true for malformed remaining")
	}
}

func TestDetectTier(t *testing.T) {
	tests := []struct {
		name     string
		tier     string
		limit    int
		hasQuota bool
		want     Tier
	}{
		{name: "explicit free", tier: "free", limit: 600, hasQuota: true, want: TierFree},
		{name: "explicit free any case", tier: "FREE", hasQuota: false, want: TierFree},
		{name: "explicit paid", tier: "all-star", limit: 5, hasQuota: true, want: TierPaidUnknown},
		{name: "large limit", limit: 60, hasQuota: true, want: TierPaidUnknown},
		{name: "free sized limit", limit: 5, hasQuota: true, want: TierFree},
		{name: "nothing known", want: TierFree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.tier != "" {
				h.Set(HeaderTier, tt.tier)
			}
			got := detectTier(h, RateLimit{Limit: tt.limit}, tt.hasQuota)
			if got != tt.want {
				t.Errorf("detectTier() = %q, want %q", got, tt.want)
			}
		})
	}
}
