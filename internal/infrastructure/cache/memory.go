package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cartvoice/backend/internal/domain"
)

// sweepInterval is how often the background sweeper reclaims expired entries.
const sweepInterval = 10 * time.Minute

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Memory is a thread-safe in-memory cache with per-key TTLs. Values are
// stored as-is: a reader gets back the identical value a writer put in,
// which lets callers cache pointers to immutable result structs. Implements
// domain.CacheRepository.
type Memory struct {
	mu       sync.RWMutex
	data     map[string]entry
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates the cache and starts its background sweeper.
func NewMemory() *Memory {
	c := &Memory{
		data: make(map[string]entry),
		stop: make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get returns the value stored under key. Absent and expired keys both
// report domain.ErrCacheMiss.
func (c *Memory) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, domain.ErrCacheMiss
	}
	return e.value, nil
}

// Set stores value under key for ttl.
func (c *Memory) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes key from the cache.
func (c *Memory) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// Exists reports whether key is present and unexpired.
func (c *Memory) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		return false, nil
	}
	return true, nil
}

// Size returns the number of entries, expired ones included until the next
// sweep.
func (c *Memory) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear drops every entry.
func (c *Memory) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry)
}

// Stop ends the background sweeper. Safe to call more than once.
func (c *Memory) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Memory) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, e := range c.data {
				if now.After(e.expiresAt) {
					delete(c.data, key)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}
