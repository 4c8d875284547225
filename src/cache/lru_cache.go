package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Entry holds a cached value with its expiry.
type Entry[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LRU is a thread-safe least-recently-used cache with a per-entry TTL.
// A non-positive capacity disables the cache.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List
	now      func() time.Time
}

type node[V any] struct {
	key   string
	entry Entry[V]
}

// New returns an LRU holding at most capacity entries for ttl each.
func New[V any](capacity int, ttl time.Duration) *LRU[V] {
	return &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, max(capacity, 0)),
		order:    list.New(),
		now:      time.Now,
	}
}

// SetClock overrides time.Now for expiry checks.
func (c *LRU[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get returns the live value for key and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	n := elem.Value.(*node[V])
	if c.now().After(n.entry.ExpiresAt) {
		c.order.Remove(elem)
		delete(c.items, key)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return n.entry.Value, true
}

// Set stores value under key, evicting the least recently used entry when
// over capacity.
func (c *LRU[V]) Set(key string, value V) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e := Entry[V]{Value: value, ExpiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value.(*node[V]).entry = e
		c.order.MoveToFront(elem)
		return
	}
	c.items[key] = c.order.PushFront(&node[V]{key: key, entry: e})
	c.evict()
}

func (c *LRU[V]) evict() {
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*node[V]).key)
	}
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, max(c.capacity, 0))
	c.order.Init()
}

// Dump snapshots every entry, expired or not, for persistence.
func (c *LRU[V]) Dump() map[string]Entry[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Entry[V], len(c.items))
	for k, elem := range c.items {
		out[k] = elem.Value.(*node[V]).entry
	}
	return out
}

// Restore replaces the contents with the live entries of dump.
func (c *LRU[V]) Restore(dump map[string]Entry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, max(c.capacity, 0))
	c.order.Init()
	now := c.now()
	for k, e := range dump {
		if now.After(e.ExpiresAt) {
			continue
		}
		c.items[k] = c.order.PushFront(&node[V]{key: k, entry: e})
	}
	c.evict()
}

// HashKey derives a fixed-size cache key from a prompt.
func HashKey(prompt string) string {
	h := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(h[:])
}
