package cache

import (
	"sync"
	"time"
)

// Policy holds the TTL applied to each cached resource.
type Policy struct {
	Teams   time.Duration `json:"teams"`
	Players time.Duration `json:"players"`
	Games   time.Duration `json:"games"`
}

// Preset policies. Free tier and critical quota only ever widen the defaults.
var (
	DefaultPolicy = Policy{
		Teams:   1 * time.Hour,
		Players: 30 * time.Minute,
		Games:   5 * time.Minute,
	}

	FreeTierPolicy = Policy{
		Teams:   24 * time.Hour,
		Players: 24 * time.Hour,
		Games:   30 * time.Minute,
	}

	CriticalPolicy = Policy{
		Teams:   48 * time.Hour,
		Players: 48 * time.Hour,
		Games:   60 * time.Minute,
	}
)

// TTLs is the process-wide TTL policy. The tier manager adjusts it; handlers
// read it when storing entries.
type TTLs struct {
	mu       sync.RWMutex
	baseline Policy
	current  Policy
}

// NewTTLs creates a policy holder starting at baseline.
func NewTTLs(baseline Policy) *TTLs {
	t := &TTLs{baseline: baseline, current: baseline}
	t.publish()
	return t
}

// Current returns the policy in effect.
func (t *TTLs) Current() Policy {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

func (p Policy) widen(o Policy) Policy {
	return Policy{
		Teams:   max(p.Teams, o.Teams),
		Players: max(p.Players, o.Players),
		Games:   max(p.Games, o.Games),
	}
}

// Widen raises each TTL to at least the value in p. TTLs never shrink here.
func (t *TTLs) Widen(p Policy) {
	t.mu.Lock()
	t.current = t.current.widen(p)
	t.mu.Unlock()
	t.publish()
}

// Rebase replaces the policy with the baseline widened by each of ps in a
// single step, so readers never see the bare baseline in between. Called at
// the start of a tier check cycle; with no arguments it restores the baseline.
func (t *TTLs) Rebase(ps ...Policy) {
	t.mu.Lock()
	next := t.baseline
	for _, p := range ps {
		next = next.widen(p)
	}
	t.current = next
	t.mu.Unlock()
	t.publish()
}

func (t *TTLs) publish() {
	p := t.Current()
	CacheTTLSeconds.WithLabelValues("teams").Set(p.Teams.Seconds())
	CacheTTLSeconds.WithLabelValues("players").Set(p.Players.Seconds())
	CacheTTLSeconds.WithLabelValues("games").Set(p.Games.Seconds())
}
