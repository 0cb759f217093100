// Package cache provides a small TTL cache for computed aggregates that
// are expensive to rebuild on every request.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value      any
	expiration time.Time
}

// TTLCache is a concurrency-safe in-memory cache with per-entry expiry.
// Expired entries are swept by a background ticker once a minute.
type TTLCache struct {
	mu      sync.RWMutex
	data    map[string]entry
	ttl     time.Duration
	cleanup *time.Ticker
	done    chan struct{}
}

func New(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := &TTLCache{
		data:    make(map[string]entry),
		ttl:     ttl,
		cleanup: time.NewTicker(time.Minute),
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[key]
	if !ok || time.Now().After(e.expiration) {
		return nil, false
	}
	return e.value, true
}

func (c *TTLCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry{value: value, expiration: time.Now().Add(c.ttl)}
}

func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// GetOrCompute returns the cached value for key, computing and storing it
// on a miss. Compute errors are returned uncached.
func (c *TTLCache) GetOrCompute(key string, compute func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.Set(key, v)
	return v, nil
}

func (c *TTLCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *TTLCache) Stop() {
	c.cleanup.Stop()
	close(c.done)
}

func (c *TTLCache) sweep() {
	for {
		select {
		case <-c.cleanup.C:
			now := time.Now()
			c.mu.Lock()
			for key, e := range c.data {
				if now.After(e.expiration) {
					delete(c.data, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}
