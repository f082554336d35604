package identity

import (
	"context"
	"sync"
	"time"

	"teamTracker/internal/models/user"
)

const DefaultTTL = 5 * time.Minute

type memoryEntry struct {
	p       user.Principal
	expires time.Time
}

type MemoryCache struct {
	ttl     time.Duration
	mtx     sync.RWMutex
	entries map[string]memoryEntry
	// gens outlives entries: a uid's counter must keep rising across
	// expiry, or a stale load could match a reset value.
	gens map[string]uint64
	now  func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry), gens: make(map[string]uint64), now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, uid string) (user.Principal, bool, error) {
	c.mtx.RLock()
	e, ok := c.entries[uid]
	c.mtx.RUnlock()

	if !ok || c.now().After(e.expires) {
		return user.Principal{}, false, nil
	}
	return e.p, true, nil
}

func (c *MemoryCache) Generation(ctx context.Context, uid string) (uint64, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.gens[uid], nil
}

func (c *MemoryCache) Set(ctx context.Context, p user.Principal, gen uint64) (bool, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.gens[p.UID] != gen {
		return false, nil
	}
	c.entries[p.UID] = memoryEntry{p: p, expires: c.now().Add(c.ttl)}
	return true, nil
}

func (c *MemoryCache) Delete(ctx context.Context, uid string) error {
	c.mtx.Lock()
	delete(c.entries, uid)
	c.gens[uid]++
	c.mtx.Unlock()
	return nil
}
