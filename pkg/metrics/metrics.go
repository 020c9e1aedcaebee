// Package metrics exposes the Prometheus registry and the HTTP-level metrics of
// the proxy. Component metrics are defined next to their code (client, cache,
// ratelimit, games) and registered via promauto.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all metrics are registered with.
var Registry = prometheus.DefaultRegisterer

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nba_http_requests_total",
		Help: "Requests served by the proxy, by route and status",
	}, []string{"route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nba_http_request_duration_seconds",
		Help:    "Proxy request duration in seconds by route",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"route"})
)

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one served request.
func ObserveRequest(route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Metric catalogue
//
// Proxy (pkg/metrics):
//   - nba_http_requests_total{route, status} (Counter)
//   - nba_http_request_duration_seconds{route} (Histogram)
//
// Upstream (pkg/client):
//   - nba_upstream_requests_total{endpoint, status} (Counter)
//   - nba_upstream_request_duration_seconds{endpoint} (Histogram)
//   - nba_upstream_retries_total (Counter): retries after a 429
//   - nba_upstream_retry_wait_seconds (Histogram)
//   - nba_upstream_retry_exhausted_total (Counter)
//
// Cache (pkg/cache):
//   - nba_cache_hits_total{layer} / nba_cache_misses_total{layer} (Counter): memory or durable
//   - nba_cache_entries{layer} (Gauge)
//   - nba_cache_errors_total{operation} (Counter): durable store failures
//   - nba_cache_ttl_seconds{resource} (Gauge): TTL currently applied to teams, players, games
//
// Tier and quota (pkg/ratelimit):
//   - nba_rate_limit_remaining / nba_rate_limit_limit (Gauge)
//   - nba_subscription_tier{tier} (Gauge): 1 for the detected tier
//   - nba_tier_probes_total{result} (Counter)
//   - nba_rate_limit_critical_rejections_total{route} (Counter)
//
// Games (pkg/games):
//   - nba_upcoming_feeds_total{source} (Counter): live, cached, historical, generated, empty
//   - nba_upcoming_date_fetch_failures_total (Counter)
//   - nba_demo_games_rescheduled_total / nba_fallback_games_generated_total (Counter)
//
// Example queries:
//
//	# Memory cache hit rate
//	sum(rate(nba_cache_hits_total{layer="memory"}[5m])) /
//	(sum(rate(nba_cache_hits_total{layer="memory"}[5m])) + sum(rate(nba_cache_misses_total{layer="memory"}[5m])))
//
//	# Quota close to exhaustion
//	nba_rate_limit_remaining <= 2
//
//	# Share of feeds served from demo data
//	sum(rate(nba_upcoming_feeds_total{source=~"historical|generated"}[1h])) / sum(rate(nba_upcoming_feeds_total[1h]))
