// Package cache is a bounded in-memory TTL cache used to deduplicate
// idempotent reads. Expiry is authoritative: Get never returns an entry whose
// deadline has passed. When full, the earliest-inserted key is evicted (FIFO,
// not LRU).
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultMaxItems = 100
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Stats summarises the cache contents at a point in time.
type Stats struct {
	Total      int           `json:"total_items"`
	Valid      int           `json:"valid_items"`
	Expired    int           `json:"expired_items"`
	MaxItems   int           `json:"max_items"`
	DefaultTTL time.Duration `json:"default_ttl"`
}

type Cache[V any] struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List // Insertion order, front is oldest
	ttl      time.Duration
	maxItems int
	nowFunc  func() time.Time
}

type Option func(*settings)

type settings struct {
	ttl      time.Duration
	maxItems int
	nowFunc  func() time.Time
}

func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.ttl = ttl
	}
}

func WithMaxItems(maxItems int) Option {
	return func(s *settings) {
		s.maxItems = maxItems
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *settings) {
		s.nowFunc = now
	}
}

func New[V any](options ...Option) *Cache[V] {
	s := settings{ttl: DefaultTTL, maxItems: DefaultMaxItems, nowFunc: time.Now}
	for _, opt := range options {
		opt(&s)
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.maxItems <= 0 {
		s.maxItems = DefaultMaxItems
	}
	return &Cache[V]{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		ttl:      s.ttl,
		maxItems: s.maxItems,
		nowFunc:  s.nowFunc,
	}
}

// Get returns the value stored under key. Expired entries are removed and
// reported as absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if !c.nowFunc().Before(e.expiresAt) {
		c.remove(el)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl (the default TTL when ttl <= 0).
// Overwriting keeps the key's original insertion position.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.nowFunc().Add(ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		return
	}

	if len(c.items) >= c.maxItems {
		c.remove(c.order.Front())
	}
	c.items[key] = c.order.PushBack(&entry[V]{key: key, value: value, expiresAt: expiresAt})
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
}

// DeleteByPrefix removes every key starting with prefix and reports how many
// were removed.
func (c *Cache[V]) DeleteByPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if strings.HasPrefix(el.Value.(*entry[V]).key, prefix) {
			c.remove(el)
			removed++
		}
		el = next
	}
	return removed
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len counts stored entries, including expired ones not yet purged.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	stats := Stats{Total: len(c.items), MaxItems: c.maxItems, DefaultTTL: c.ttl}
	for el := c.order.Front(); el != nil; el = el.Next() {
		if now.Before(el.Value.(*entry[V]).expiresAt) {
			stats.Valid++
		} else {
			stats.Expired++
		}
	}
	return stats
}

func (c *Cache[V]) remove(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}
