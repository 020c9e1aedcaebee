package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	layerMemory  = "memory"
	layerDurable = "durable"
)

var (
	// CacheHits tracks cache hits by layer (memory, durable)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"layer"},
	)

	// CacheEntries tracks the number of stored entries by layer
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nba_cache_entries",
			Help: "Current number of cache entries",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks durable store errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_cache_errors_total",
			Help: "Total number of durable cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "clear"
	)

	// CacheTTLSeconds exposes the TTL currently applied per resource
	CacheTTLSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nba_cache_ttl_seconds",
			Help: "Cache TTL currently applied per resource",
		},
		[]string{"resource"},
	)
)
