// Package cache provides response caching for the NBA proxy.
//
// Two caches live here:
//
// - Manager: the backend's in-memory response cache, one instance per process,
// passed to the route handlers. Entries are {data, timestamp, ttl}, replaced
// wholesale on Set and expired lazily.
//
// - Tiered: the gateway's cache, an in-memory map in front of a durable Store
// (MemoryStore or RedisStore). Durable keys are namespaced with "api_cache_".
//
// # Basic Usage
//
//	manager := cache.NewManager()
//	ttls := cache.NewTTLs(cache.DefaultPolicy)
//
//	if data, ok := manager.Get(cache.KeyTeams); ok {
//		// serve cached teams
//	}
//	manager.Set(cache.KeyTeams, body, ttls.Current().Teams)
//
// # TTL Policy
//
// TTLs starts at DefaultPolicy. The tier manager widens it to FreeTierPolicy
// when the upstream reports a free subscription and to CriticalPolicy when the
// remaining quota drops to 2 or below. Each tier check cycle starts again from
// the baseline.
//
// # Durable Tier
//
//	store := cache.NewRedisStore(redis.NewClient(&redis.Options{Addr: "localhost:6379"}))
//	tiered := cache.NewTiered(store, logger)
//	tiered.Set(ctx, "upcoming_games", body, 5*time.Minute)
//
// # Metrics
//
//   - nba_cache_hits_total{layer} - Cache hits (memory, durable)
//   - nba_cache_misses_total{layer} - Cache misses
//   - nba_cache_entries{layer} - Stored entries
//   - nba_cache_errors_total{operation} - Durable store errors
//   - nba_cache_ttl_seconds{resource} - TTL in effect per resource
package cache
