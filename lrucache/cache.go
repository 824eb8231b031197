/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type cacheEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero means no expiration
}

// LRUCache is a bounded cache that evicts the least recently used entry when full.
// Expired entries are not swept in background: they are treated as absent and removed on the next lookup.
type LRUCache[K comparable, V any] struct {
	maxEntries int
	defaultTTL time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	lruList *list.List
	cache   map[K]*list.Element

	metricsCollector MetricsCollector
}

// Options represents options for the cache.
type Options struct {
	// DefaultTTL is applied by Add. Zero means entries never expire.
	DefaultTTL time.Duration

	// Clock is used for expiration checks. Real clock is used if nil.
	Clock clockwork.Clock
}

// New creates a new LRUCache with the provided maximum number of entries and metrics collector.
func New[K comparable, V any](maxEntries int, metricsCollector MetricsCollector) (*LRUCache[K, V], error) {
	return NewWithOpts[K, V](maxEntries, metricsCollector, Options{})
}

// NewWithOpts creates a new LRUCache with the provided maximum number of entries, metrics collector, and options.
// Metrics collector may be nil, in this case metrics are disabled.
func NewWithOpts[K comparable, V any](maxEntries int, metricsCollector MetricsCollector, opts Options) (*LRUCache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("defaultTTL must be greater or equal to 0 (no expiration)")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &LRUCache[K, V]{
		maxEntries:       maxEntries,
		defaultTTL:       opts.DefaultTTL,
		clock:            opts.Clock,
		lruList:          list.New(),
		cache:            make(map[K]*list.Element),
		metricsCollector: metricsCollector,
	}, nil
}

// Get returns a value from the cache by the provided key.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key, c.clock.Now())
}

// Add adds a value with the default TTL. If the cache is full, the least recently used entry is evicted.
func (c *LRUCache[K, V]) Add(key K, value V) {
	c.AddWithTTL(key, value, c.defaultTTL)
}

// AddWithTTL adds a value with the provided TTL. Zero TTL means no expiration.
func (c *LRUCache[K, V]) AddWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.newEntry(key, value, ttl)
	if elem, ok := c.cache[key]; ok {
		c.lruList.MoveToFront(elem)
		elem.Value = entry
		return
	}
	c.addNew(entry)
}

// GetOrAdd returns a value by the provided key or stores the one built by valueProvider.
func (c *LRUCache[K, V]) GetOrAdd(key K, valueProvider func() V) (value V, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value, exists = c.get(key, c.clock.Now()); exists {
		return value, true
	}
	value = valueProvider()
	c.addNew(c.newEntry(key, value, c.defaultTTL))
	return value, false
}

// Remove removes a value by the provided key and reports whether it was present.
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	c.metricsCollector.SetAmount(len(c.cache))
	return true
}

// Purge removes all entries. Removed entries are not counted as evictions.
func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[K]*list.Element)
	c.lruList.Init()
	c.metricsCollector.SetAmount(0)
}

// Len returns the number of stored entries, including expired ones that were not looked up yet.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Keys returns keys of stored entries from the most to the least recently used.
func (c *LRUCache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.cache))
	for elem := c.lruList.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*cacheEntry[K, V]).key)
	}
	return keys
}

func (c *LRUCache[K, V]) newEntry(key K, value V, ttl time.Duration) *cacheEntry[K, V] {
	now := c.clock.Now()
	entry := &cacheEntry[K, V]{key: key, value: value}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	return entry
}

func (c *LRUCache[K, V]) get(key K, now time.Time) (value V, ok bool) {
	elem, hit := c.cache[key]
	if !hit {
		c.metricsCollector.IncMisses()
		return value, false
	}
	entry := elem.Value.(*cacheEntry[K, V])
	// An entry is valid strictly before expiresAt.
	if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
		c.removeElement(elem)
		c.metricsCollector.SetAmount(len(c.cache))
		c.metricsCollector.IncExpirations()
		c.metricsCollector.IncMisses()
		return value, false
	}
	c.lruList.MoveToFront(elem)
	c.metricsCollector.IncHits()
	return entry.value, true
}

func (c *LRUCache[K, V]) addNew(entry *cacheEntry[K, V]) {
	c.cache[entry.key] = c.lruList.PushFront(entry)
	if len(c.cache) > c.maxEntries {
		if oldest := c.lruList.Back(); oldest != nil {
			c.removeElement(oldest)
			c.metricsCollector.AddEvictions(1)
		}
	}
	c.metricsCollector.SetAmount(len(c.cache))
}

func (c *LRUCache[K, V]) removeElement(elem *list.Element) {
	c.lruList.Remove(elem)
	delete(c.cache, elem.Value.(*cacheEntry[K, V]).key)
}
