/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package gateway

import (
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mjsoltani/peyvandyar/lrucache"
)

// responseCache keeps product details for CacheConfig.TTL.
// Expired entries are removed lazily when they are looked up.
//
// A fetched product is stored through a fill: beginFill is taken before the fetch is queued and endFill
// stores the result only if the id was not invalidated in between, so a read that completes after a write
// never caches the pre-write state.
type responseCache struct {
	lru *lrucache.LRUCache[string, Product]

	mu    sync.Mutex
	fills map[string]*pendingFills
	epoch uint64 // bumped by invalidateAll
}

// pendingFills tracks reads of one id that are in progress. The entry exists only while readers > 0.
type pendingFills struct {
	readers    int
	generation uint64
}

type cacheFill struct {
	id         string
	generation uint64
	epoch      uint64
}

func newResponseCache(cfg CacheConfig, clock clockwork.Clock, metrics lrucache.MetricsCollector) (*responseCache, error) {
	lru, err := lrucache.NewWithOpts[string, Product](cfg.MaxEntries, metrics, lrucache.Options{
		DefaultTTL: cfg.TTL,
		Clock:      clock,
	})
	if err != nil {
		return nil, err
	}
	return &responseCache{lru: lru, fills: make(map[string]*pendingFills)}, nil
}

func (c *responseCache) get(id string) (Product, bool) {
	return c.lru.Get(id)
}

func (c *responseCache) beginFill(id string) cacheFill {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.fills[id]
	if pending == nil {
		pending = &pendingFills{}
		c.fills[id] = pending
	}
	pending.readers++
	return cacheFill{id: id, generation: pending.generation, epoch: c.epoch}
}

// endFill finishes a fill started by beginFill. A nil product only releases it.
func (c *responseCache) endFill(fill cacheFill, p *Product) (stored bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.fills[fill.id]
	if p != nil && pending.generation == fill.generation && c.epoch == fill.epoch {
		c.lru.Add(fill.id, *p)
		stored = true
	}
	if pending.readers--; pending.readers == 0 {
		delete(c.fills, fill.id)
	}
	return stored
}

func (c *responseCache) invalidate(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pending := c.fills[id]; pending != nil {
		pending.generation++
	}
	return c.lru.Remove(id)
}

func (c *responseCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.lru.Purge()
}

func (c *responseCache) stats() CacheStats {
	keys := c.lru.Keys()
	sort.Strings(keys)
	return CacheStats{Size: len(keys), Keys: keys}
}
