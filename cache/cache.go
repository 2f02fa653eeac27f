// Package cache provides a byte-budgeted store of resident tile payloads
// with least-recently-used eviction. Recency is kept by an ordered map:
// oldest pair first, a touch moves the pair to the back, so ties between
// equally old entries resolve by insertion order.
package cache

import (
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/globeviz/tessera/pyramid"
)

// Payload is a tile's resident geometry/texture content. Release frees the
// payload's owned resources; the cache calls it exactly once, when the
// entry is evicted or replaced, before the mutating call returns.
type Payload interface {
	Size() int64
	Release()
}

// Stats is a snapshot of the cache's counters.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Insertions uint64
}

type entry struct {
	payload Payload
	cost    int64
	pinned  bool
}

// Cache maps tile keys to resident payloads, bounded by a byte budget.
// Safe for concurrent use: tessellation touches it from the render pass
// while providers complete fetches from other goroutines.
type Cache struct {
	mu      sync.Mutex
	budget  int64
	used    int64
	entries *orderedmap.OrderedMap[pyramid.TileKey, *entry]
	stats   Stats
}

// New creates a cache with the given byte budget.
func New(budget int64) *Cache {
	if budget <= 0 {
		panic(fmt.Errorf("cache budget %d is not positive", budget))
	}
	return &Cache{
		budget:  budget,
		entries: orderedmap.New[pyramid.TileKey, *entry](),
	}
}

// Get returns the resident payload for key and marks it most-recently-used.
// Never blocks on a fetch; a miss is just a miss.
func (c *Cache) Get(key pyramid.TileKey) (Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.touch(key)
	c.stats.Hits++
	return e.payload, true
}

// Put inserts or replaces the entry for key, marks it most-recently-used
// and evicts least-recently-used entries until the budget is met. The new
// entry itself is never evicted by its own Put, even when its cost exceeds
// the whole budget; it becomes the next cycle's eviction candidate instead.
// A replaced payload is released before Put returns.
func (c *Cache) Put(key pyramid.TileKey, payload Payload, cost int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries.Get(key); ok {
		c.used -= old.cost
		old.payload.Release()
		old.payload = payload
		old.cost = cost
	} else {
		c.entries.Set(key, &entry{payload: payload, cost: cost})
	}
	c.used += cost
	c.touch(key)
	c.stats.Insertions++

	c.evict(&key)
}

// Trim evicts least-recently-used entries until the budget is met, using
// the same policy as Put. Idempotent; called at the end of each frame.
func (c *Cache) Trim() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evict(nil)
}

// evict removes entries oldest-first, skipping pinned entries and keep,
// until used <= budget or no candidates remain. Caller holds mu.
func (c *Cache) evict(keep *pyramid.TileKey) {
	p := c.entries.Oldest()
	for c.used > c.budget && p != nil {
		next := p.Next()
		if !p.Value.pinned && (keep == nil || p.Key != *keep) {
			c.used -= p.Value.cost
			p.Value.payload.Release()
			c.entries.Delete(p.Key)
			c.stats.Evictions++
		}
		p = next
	}
}

// Pin excludes key from eviction until Unpin or UnpinAll. Reports whether
// the key is resident.
func (c *Cache) Pin(key pyramid.TileKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		return false
	}
	e.pinned = true
	c.touch(key)
	return true
}

func (c *Cache) Unpin(key pyramid.TileKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries.Get(key); ok {
		e.pinned = false
	}
}

// UnpinAll clears every pin. Called when a frame's visible set is done.
func (c *Cache) UnpinAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for p := c.entries.Oldest(); p != nil; p = p.Next() {
		p.Value.pinned = false
	}
}

// Remove evicts a single entry regardless of recency, releasing its
// payload. A no-op for absent keys.
func (c *Cache) Remove(key pyramid.TileKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		return
	}
	c.used -= e.cost
	e.payload.Release()
	c.entries.Delete(key)
	c.stats.Evictions++
}

// Clear releases every payload and empties the cache. Counters survive.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for p := c.entries.Oldest(); p != nil; p = p.Next() {
		p.Value.payload.Release()
	}
	c.entries = orderedmap.New[pyramid.TileKey, *entry]()
	c.used = 0
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Used returns the total cost of resident entries in bytes.
func (c *Cache) Used() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

func (c *Cache) Budget() int64 {
	return c.budget
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Keys returns the resident keys, least-recently-used first.
func (c *Cache) Keys() []pyramid.TileKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]pyramid.TileKey, 0, c.entries.Len())
	for p := c.entries.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// touch marks key most-recently-used. Caller holds mu.
func (c *Cache) touch(key pyramid.TileKey) {
	if err := c.entries.MoveToBack(key); err != nil {
		panic(fmt.Errorf("touched a key that is not present: %w", err))
	}
}
