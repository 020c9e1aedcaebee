package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss indicates the requested key was not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Manager is the backend response cache. It is constructed once at startup and
// handed to the route handlers.
//
// Entries are replaced wholesale on Set and expire lazily: an expired entry
// stays in the map but is reported invalid until overwritten or cleared.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewManager creates an empty cache manager.
func NewManager() *Manager {
	return &Manager{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// SetClock replaces the time source (for testing).
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// IsValid reports whether key has an entry younger than its TTL.
func (m *Manager) IsValid(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.entries[key].Valid(m.now())
}

// Get returns the cached payload for key if it is still valid.
func (m *Manager) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	entry := m.entries[key]
	now := m.now()
	m.mu.RUnlock()

	if !entry.Valid(now) {
		CacheMisses.WithLabelValues(layerMemory).Inc()
		return nil, false
	}

	CacheHits.WithLabelValues(layerMemory).Inc()
	return entry.Data, true
}

// Entry returns the raw entry for key, valid or not.
func (m *Manager) Entry(key string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	cp := *entry
	return &cp, nil
}

// Set stores data under key, replacing any prior entry and resetting its
// timestamp.
func (m *Manager) Set(key string, data []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = &Entry{
		Key:       key,
		Data:      data,
		CreatedAt: m.now(),
		TTL:       ttl,
	}
	CacheEntries.WithLabelValues(layerMemory).Set(float64(len(m.entries)))
}

// Clear removes the given keys, or every entry when called without keys.
func (m *Manager) Clear(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(keys) == 0 {
		m.entries = make(map[string]*Entry)
	} else {
		for _, key := range keys {
			delete(m.entries, key)
		}
	}
	CacheEntries.WithLabelValues(layerMemory).Set(float64(len(m.entries)))
}

// Len returns the number of stored entries, expired ones included.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
