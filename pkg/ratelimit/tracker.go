package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/sportsorca/nba-proxy/pkg/cache"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

// Prometheus metrics for tier and quota tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nba_rate_limit_remaining",
		Help: "Upstream requests remaining in the current window",
	})

	rateLimitLimit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nba_rate_limit_limit",
		Help: "Upstream request limit per window",
	})

	subscriptionTier = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nba_subscription_tier",
		Help: "Detected upstream subscription tier (1 for the active tier)",
	}, []string{"tier"})

	tierProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nba_tier_probes_total",
		Help: "Total number of upstream tier probes by result",
	}, []string{"result"})

	criticalRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nba_rate_limit_critical_rejections_total",
		Help: "Requests rejected because quota is critical and no cache was valid",
	}, []string{"route"})
)

// Prober makes a lightweight upstream call and returns its headers.
type Prober interface {
	Probe(ctx context.Context) (http.Header, error)
}

// Route describes how a backend route is gated.
type Route struct {
	// Name labels metrics and logs
	Name string

	// Essential routes are never rejected for quota reasons
	Essential bool

	// CacheKey returns the response cache key the route would serve from.
	// Nil means the route has no cache and is rejected under critical quota.
	// An empty key marks a malformed request that the handler answers itself
	// without calling the upstream; it passes the gate.
	CacheKey func(r *http.Request) string
}

// Manager owns the tier State. It is the single writer of that state and of
// the TTL policy adjustments.
type Manager struct {
	prober    Prober
	ttls      *cache.TTLs
	responses *cache.Manager
	logger    zerolog.Logger
	now       func() time.Time
	maxAge    time.Duration

	mu    sync.RWMutex
	state State

	probes singleflight.Group
}

// NewManager creates a tier manager. State starts Unknown.
func NewManager(prober Prober, ttls *cache.TTLs, responses *cache.Manager, logger zerolog.Logger) *Manager {
	return &Manager{
		prober:    prober,
		ttls:      ttls,
		responses: responses,
		logger:    logger,
		now:       time.Now,
		maxAge:    DefaultMaxAge,
	}
}

// SetClock replaces the time source (for testing).
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// SetMaxAge sets how long a tier check stays fresh.
func (m *Manager) SetMaxAge(d time.Duration) {
	if d > 0 {
		m.maxAge = d
	}
}

// State returns a snapshot of the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Ensure probes the upstream when the state is Unknown or stale and returns
// the resulting state. Concurrent callers share a single probe. Probe failures
// are absorbed: the tier falls back to free.
func (m *Manager) Ensure(ctx context.Context) State {
	if !m.State().IsStale(m.now(), m.maxAge) {
		return m.State()
	}
	state, _ := m.refresh(ctx)
	return state
}

// Refresh forces a probe regardless of staleness. The returned error is the
// probe failure, if any; the state is updated either way.
func (m *Manager) Refresh(ctx context.Context) (State, error) {
	return m.refresh(ctx)
}

type probeResult struct {
	state State
	err   error
}

func (m *Manager) refresh(ctx context.Context) (State, error) {
	v, _, _ := m.probes.Do("probe", func() (any, error) {
		state, err := m.probe(ctx)
		return probeResult{state: state, err: err}, nil
	})
	res := v.(probeResult)
	return res.state, res.err
}

// probe runs one check cycle: ask the upstream, replace the state, and
// recompute TTLs from the baseline.
func (m *Manager) probe(ctx context.Context) (State, error) {
	header, err := m.prober.Probe(ctx)

	next := State{
		Tier:          TierFree,
		LastCheckedAt: m.now(),
		Known:         true,
	}

	// A failed probe may still carry headers (a 429 reports remaining=0).
	if err != nil {
		if h := headerOf(err); h != nil {
			header = h
		}
	}

	if header != nil {
		quota, ok := parseQuota(header)
		next.RateLimit = quota
		next.HasQuota = ok
		if err == nil {
			next.Tier = detectTier(header, quota, ok)
		}
	}

	if err != nil {
		tierProbesTotal.WithLabelValues("error").Inc()
		m.logger.Warn().Err(err).Msg("Tier probe failed, assuming free tier")
	} else {
		tierProbesTotal.WithLabelValues("ok").Inc()
	}

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()

	m.ttls.Rebase(policiesFor(next)...)
	m.publish(next)

	m.logger.Info().
		Str("tier", string(next.Tier)).
		Int("limit", next.RateLimit.Limit).
		Int("remaining", next.RateLimit.Remaining).
		Msg("Upstream tier checked")

	return next, err
}

// Observe updates the quota from any upstream response. It implements
// client.ResponseObserver. TTLs only widen here; they are recomputed from the
// baseline at the next check cycle.
func (m *Manager) Observe(header http.Header) {
	quota, ok := parseQuota(header)
	if !ok {
		return
	}

	m.mu.Lock()
	next := m.state
	next.RateLimit = quota
	next.HasQuota = true
	if header.Get(HeaderTier) != "" {
		next.Tier = detectTier(header, quota, true)
	}
	m.state = next
	m.mu.Unlock()

	for _, p := range policiesFor(next) {
		m.ttls.Widen(p)
	}
	m.publish(next)

	if next.IsCritical() {
		m.logger.Error().
			Int("remaining", quota.Remaining).
			Int("limit", quota.Limit).
			Msg("Upstream quota CRITICAL - non-essential routes are cache-only")
	} else {
		m.logger.Debug().
			Int("remaining", quota.Remaining).
			Msg("Upstream quota updated")
	}
}

// policiesFor lists the TTL policies s widens the baseline with.
func policiesFor(s State) []cache.Policy {
	var ps []cache.Policy
	if s.Tier == TierFree {
		ps = append(ps, cache.FreeTierPolicy)
	}
	if s.IsCritical() {
		ps = append(ps, cache.CriticalPolicy)
	}
	return ps
}

func (m *Manager) publish(s State) {
	if s.HasQuota {
		rateLimitRemaining.Set(float64(s.RateLimit.Remaining))
		rateLimitLimit.Set(float64(s.RateLimit.Limit))
	}
	for _, tier := range []Tier{TierFree, TierPaidUnknown} {
		v := 0.0
		if tier == s.Tier {
			v = 1
		}
		subscriptionTier.WithLabelValues(string(tier)).Set(v)
	}
}

// Allow decides whether route may proceed. It ensures the tier state first.
func (m *Manager) Allow(ctx context.Context, route Route, r *http.Request) (allowed bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			allowed = true
			err = fmt.Errorf("tier gate panic: %v", rec)
		}
	}()

	state := m.Ensure(ctx)
	if route.Essential || !state.IsCritical() {
		return true, nil
	}
	if route.CacheKey == nil {
		return false, nil
	}
	key := route.CacheKey(r)
	if key == "" {
		return true, nil
	}
	if m.responses.IsValid(key) {
		m.logger.Debug().Str("route", route.Name).Msg("Quota critical, serving from cache")
		return true, nil
	}
	return false, nil
}

// Gate returns middleware applying Allow to route. Internal failures never
// block the request.
func (m *Manager) Gate(route Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := m.Allow(r.Context(), route, r)
			if err != nil {
				m.logger.Error().Err(err).Str("route", route.Name).Msg("Tier gate failed, passing request through")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				m.Reject(w, route.Name)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Reject answers 429 rate_limit_critical for route. Handlers call it when a
// request that passed the gate would still need the upstream.
func (m *Manager) Reject(w http.ResponseWriter, route string) {
	criticalRejectionsTotal.WithLabelValues(route).Inc()
	m.logger.Warn().Str("route", route).Msg("Rejecting request, quota critical and no cached data")

	retryAfter := m.RetryAfter()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(nba.Envelope[any]{
		Error:      nba.ErrorRateLimitCritical,
		Message:    "API quota is nearly exhausted. This data is only available from cache right now.",
		RetryAfter: retryAfter,
	})
}

// RetryAfter returns the seconds until the quota window resets. The reset
// header may be an epoch timestamp or a relative number of seconds; 60 is
// used when neither is known.
func (m *Manager) RetryAfter() int {
	reset := m.State().RateLimit.Reset
	switch {
	case reset <= 0:
		return 60
	case reset > 1_000_000_000:
		secs := int(time.Unix(reset, 0).Sub(m.now()).Seconds())
		if secs < 1 {
			return 1
		}
		return secs
	default:
		return int(reset)
	}
}

// headerOf extracts response headers from an upstream error without importing
// the client package.
func headerOf(err error) http.Header {
	type headerCarrier interface{ ResponseHeader() http.Header }
	for e := err; e != nil; {
		if hc, ok := e.(headerCarrier); ok {
			return hc.ResponseHeader()
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		e = u.Unwrap()
	}
	return nil
}
