package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Namespace prefixes every key the Tiered cache writes to its durable store.
const Namespace = "api_cache_"

// DefaultClientTTL is the TTL used by the gateway when a call does not name one.
const DefaultClientTTL = 5 * time.Minute

// Tiered is the gateway-side cache: an in-memory map in front of a durable
// Store. Lookups try memory first, then the store, restoring hits into memory.
// Store failures are logged and treated as misses.
type Tiered struct {
	mu     sync.RWMutex
	memory map[string]*Entry
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewTiered creates a two-tier cache. A nil store disables the durable tier.
func NewTiered(store Store, logger zerolog.Logger) *Tiered {
	return &Tiered{
		memory: make(map[string]*Entry),
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source (for testing).
func (c *Tiered) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the cached payload for key when either tier holds a valid entry.
func (c *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry := c.memory[key]
	now := c.now()
	c.mu.RUnlock()

	if entry.Valid(now) {
		CacheHits.WithLabelValues(layerMemory).Inc()
		c.logger.Debug().Str("key", key).Str("layer", layerMemory).Msg("Cache hit")
		return entry.Data, true
	}
	CacheMisses.WithLabelValues(layerMemory).Inc()

	if c.store == nil {
		return nil, false
	}

	raw, err := c.store.Get(ctx, Namespace+key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			CacheErrors.WithLabelValues("get").Inc()
			c.logger.Warn().Err(err).Str("key", key).Msg("Failed to read durable cache")
		}
		CacheMisses.WithLabelValues(layerDurable).Inc()
		return nil, false
	}

	var stored Entry
	if err := json.Unmarshal(raw, &stored); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Discarding corrupt durable cache entry")
		return nil, false
	}
	if !stored.Valid(now) {
		CacheMisses.WithLabelValues(layerDurable).Inc()
		return nil, false
	}

	c.mu.Lock()
	c.memory[key] = &stored
	c.mu.Unlock()

	CacheHits.WithLabelValues(layerDurable).Inc()
	c.logger.Debug().Str("key", key).Str("layer", layerDurable).Msg("Cache hit, restored to memory")
	return stored.Data, true
}

// Set stores data in both tiers. A durable write failure does not affect the
// memory tier.
func (c *Tiered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultClientTTL
	}

	c.mu.Lock()
	entry := &Entry{Key: key, Data: data, CreatedAt: c.now(), TTL: ttl}
	c.memory[key] = entry
	c.mu.Unlock()

	if c.store == nil {
		return
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to encode cache entry")
		return
	}
	if err := c.store.Set(ctx, Namespace+key, raw, ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to store cache entry")
	}
}

// Clear removes the given keys from both tiers, or every namespaced entry when
// called without keys.
func (c *Tiered) Clear(ctx context.Context, keys ...string) {
	c.mu.Lock()
	if len(keys) == 0 {
		c.memory = make(map[string]*Entry)
	} else {
		for _, key := range keys {
			delete(c.memory, key)
		}
	}
	c.mu.Unlock()

	if c.store == nil {
		return
	}

	if len(keys) == 0 {
		if err := c.store.DeletePrefix(ctx, Namespace); err != nil {
			CacheErrors.WithLabelValues("clear").Inc()
			c.logger.Warn().Err(err).Msg("Failed to clear durable cache")
		}
		return
	}
	for _, key := range keys {
		if err := c.store.Delete(ctx, Namespace+key); err != nil {
			CacheErrors.WithLabelValues("delete").Inc()
			c.logger.Warn().Err(err).Str("key", key).Msg("Failed to remove durable cache entry")
		}
	}
}
