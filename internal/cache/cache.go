// Package cache implements the fingerprint-keyed synthesis result cache:
// strict LRU with a byte budget, an optional entry ceiling, and optional
// TTL expiry.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of cache traffic and occupancy.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Entries   int     `json:"entries"`
	Bytes     int     `json:"bytes"`
	HitRate   float64 `json:"hit_rate"`
}

type entry[V any] struct {
	key         string
	value       V
	createdAt   time.Time
	lastAccess  time.Time
	accessCount uint64
	bytes       int
}

// Cache is safe for concurrent use; one mutex guards the map and the
// recency list. Eviction runs synchronously inside Put, so the byte
// budget holds after every insert.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	maxBytes   int
	maxEntries int // 0 = unlimited
	ttl        time.Duration
	bytes      int
	cost       func(V) int
	clock      func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
}

// New builds a cache. cost reports an entry's memory footprint in bytes;
// ttl zero disables expiry; maxEntries zero disables the count ceiling.
func New[V any](maxBytes, maxEntries int, ttl time.Duration, cost func(V) int) *Cache[V] {
	return &Cache[V]{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxBytes:   maxBytes,
		maxEntries: maxEntries,
		ttl:        ttl,
		cost:       cost,
		clock:      time.Now,
	}
}

// Get returns the cached value and touches its recency. Expired entries
// are removed, counted as evictions, and reported as misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	e := elem.Value.(*entry[V])

	if c.ttl > 0 && c.clock().Sub(e.createdAt) > c.ttl {
		c.removeLocked(elem)
		c.evictions++
		c.misses++
		return zero, false
	}

	e.lastAccess = c.clock()
	e.accessCount++
	c.order.MoveToFront(elem)
	c.hits++
	return e.value, true
}

// Put inserts or replaces at the MRU position, then evicts from the LRU
// end until both ceilings hold.
func (c *Cache[V]) Put(key string, value V) {
	bytes := c.cost(value)

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()

	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*entry[V])
		c.bytes += bytes - e.bytes
		e.value = value
		e.bytes = bytes
		e.lastAccess = now
		e.accessCount++
		c.order.MoveToFront(elem)
	} else {
		e := &entry[V]{
			key:         key,
			value:       value,
			createdAt:   now,
			lastAccess:  now,
			accessCount: 1,
			bytes:       bytes,
		}
		c.entries[key] = c.order.PushFront(e)
		c.bytes += bytes
	}

	for (c.maxBytes > 0 && c.bytes > c.maxBytes) ||
		(c.maxEntries > 0 && len(c.entries) > c.maxEntries) {
		if !c.evictOldestLocked() {
			break
		}
	}
}

// Contains reports presence without touching recency or counters.
func (c *Cache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.ttl > 0 {
		e := elem.Value.(*entry[V])
		if c.clock().Sub(e.createdAt) > c.ttl {
			return false
		}
	}
	return true
}

// Remove drops one entry.
func (c *Cache[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(elem)
	return true
}

// Clear empties the cache, keeping the traffic counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.bytes = 0
}

// PruneExpired removes every entry past the TTL, counting evictions.
func (c *Cache[V]) PruneExpired() int {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		e := elem.Value.(*entry[V])
		if now.Sub(e.createdAt) > c.ttl {
			c.removeLocked(elem)
			c.evictions++
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *Cache[V]) evictOldestLocked() bool {
	elem := c.order.Back()
	if elem == nil {
		return false
	}
	c.removeLocked(elem)
	c.evictions++
	return true
}

func (c *Cache[V]) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry[V])
	c.order.Remove(elem)
	delete(c.entries, e.key)
	c.bytes -= e.bytes
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) Bytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.entries),
		Bytes:     c.bytes,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *Cache[V]) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

// SetClock injects a fake clock for TTL tests.
func (c *Cache[V]) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}
