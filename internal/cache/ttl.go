// Package cache holds short-lived, in-process copies of computed market data.
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a computed IndicatorSet stays fresh.
const DefaultTTL = 30 * time.Second

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLCache is a map whose entries expire ttl after they were stored.
// Expired entries are evicted lazily on Get.
type TTLCache[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a TTLCache.
type Option[V any] func(*TTLCache[V])

// WithClock replaces time.Now, mostly for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *TTLCache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty cache. A non-positive ttl falls back to DefaultTTL.
func New[V any](ttl time.Duration, opts ...Option[V]) *TTLCache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &TTLCache[V]{
		items: make(map[string]entry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key if it is younger than the ttl.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.storedAt) < c.ttl {
		return e.value, true
	}

	c.mu.Lock()
	// Re-check: a concurrent Set may have refreshed the entry.
	if cur, ok := c.items[key]; ok && cur.storedAt.Equal(e.storedAt) {
		delete(c.items, key)
	}
	c.mu.Unlock()
	return zero, false
}

// Set stores value under key, stamped with the current time.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// SetAt stores value as if it had been stored at storedAt, so it expires
// ttl after that moment rather than ttl from now. Values that are already
// expired are not stored and SetAt reports false.
func (c *TTLCache[V]) SetAt(key string, value V, storedAt time.Time) bool {
	if c.now().Sub(storedAt) >= c.ttl {
		return false
	}
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, storedAt: storedAt}
	c.mu.Unlock()
	return true
}

// Now returns the current time on the cache clock.
func (c *TTLCache[V]) Now() time.Time {
	return c.now()
}

// Clear drops every entry.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry[V])
	c.mu.Unlock()
}

// Len reports the number of stored entries, including expired ones not yet evicted.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// TTL returns the freshness window.
func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

// Key builds the cache key for a symbol and timeframe, e.g. "BTCUSDT:1h".
func Key(symbol, interval string) string {
	return strings.ToUpper(strings.TrimSpace(symbol)) + ":" + strings.TrimSpace(interval)
}
