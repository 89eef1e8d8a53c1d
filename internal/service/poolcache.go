package service

import (
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolCache is the process-lifetime cache of dedicated tenant connection
// pools, keyed by organization id. It exclusively owns the cached handles:
// callers borrow references through the Resolver and must not close them.
// There is no TTL or capacity bound; the number of organizations with a
// dedicated database stays small.
type PoolCache struct {
	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

// NewPoolCache creates an empty pool cache.
func NewPoolCache() *PoolCache {
	return &PoolCache{pools: make(map[string]*pgxpool.Pool)}
}

// Get returns the cached pool for the organization, if any. No side effects.
func (c *PoolCache) Get(orgID string) (*pgxpool.Pool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pool, ok := c.pools[orgID]
	return pool, ok
}

// Put stores a pool for the organization. Last writer wins: an already cached
// pool is overwritten without being closed, since callers may still hold
// borrowed references to it; the stray pool drains as its connections idle out.
func (c *PoolCache) Put(orgID string, pool *pgxpool.Pool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools[orgID] = pool
}

// Remove closes the organization's pool and evicts it. No-op when absent.
func (c *PoolCache) Remove(orgID string) {
	c.mu.Lock()
	pool, ok := c.pools[orgID]
	if ok {
		delete(c.pools, orgID)
	}
	c.mu.Unlock()

	// Close outside the lock: pgxpool.Close blocks until acquired
	// connections are released.
	if ok {
		pool.Close()
	}
}

// RemoveAll closes and evicts every cached pool. Used at process shutdown.
func (c *PoolCache) RemoveAll() {
	c.mu.Lock()
	pools := c.pools
	c.pools = make(map[string]*pgxpool.Pool)
	c.mu.Unlock()

	for _, pool := range pools {
		pool.Close()
	}
}

// Len returns the number of cached pools, for health reporting.
func (c *PoolCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pools)
}
