package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds local cache settings.
type Config struct {
	GCInterval time.Duration
}

// item is either a string value or a list, with an optional expiry.
type item struct {
	value    string
	list     []string
	expireAt time.Time // zero means no expiry
}

func (it *item) expired(now time.Time) bool {
	return !it.expireAt.IsZero() && now.After(it.expireAt)
}

// Cache is an in-process store for session tokens and notification lists.
type Cache struct {
	mu     sync.Mutex
	items  map[string]*item
	now    func() time.Time
	stopGC chan struct{}
	once   sync.Once
}

// NewCache creates a Cache and starts its expiry sweeper.
func NewCache(cfg Config) *Cache {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &Cache{
		items:  make(map[string]*item),
		now:    time.Now,
		stopGC: make(chan struct{}),
	}
	go c.runGC(interval)
	return c
}

// Close stops the expiry sweeper.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stopGC) })
}

func (c *Cache) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stopGC:
			return
		}
	}
}

// Sweep drops every expired key and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// live returns the unexpired item at key. c.mu must be held.
func (c *Cache) live(key string) (*item, bool) {
	it, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if it.expired(c.now()) {
		delete(c.items, key)
		return nil, false
	}
	return it, true
}

func (c *Cache) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.live(key)
	if !ok || it.list != nil {
		return "", ErrNotFound
	}
	return it.value, nil
}

func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &item{value: value, expireAt: c.deadline(ttl)}
	return nil
}

func (c *Cache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *Cache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live(key)
	return ok, nil
}

func (c *Cache) PushRecent(_ context.Context, key, value string, keep int, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.live(key)
	if !ok || it.list == nil {
		it = &item{list: make([]string, 0, 1)}
		c.items[key] = it
	}
	it.list = append([]string{value}, it.list...)
	if keep > 0 && len(it.list) > keep {
		it.list = it.list[:keep]
	}
	it.expireAt = c.deadline(ttl)
	return nil
}

func (c *Cache) Recent(_ context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.live(key)
	if !ok || it.list == nil {
		return nil, nil
	}
	return append([]string(nil), it.list...), nil
}
