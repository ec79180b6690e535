package storage

import (
	"context"
	"sync"
	"time"

	"github.com/ldinh/marketd/internal/core/domain"
)

// MemoryCache is a process-local SnapshotCache used when Redis is not
// configured. Idempotency claims live for the life of the process.
type MemoryCache struct {
	mu       sync.Mutex
	claims   map[string]struct{}
	listings map[string]listingEntry
}

type listingEntry struct {
	views     []domain.ItemView
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		claims:   make(map[string]struct{}),
		listings: make(map[string]listingEntry),
	}
}

func (c *MemoryCache) SetIdempotency(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.claims[key]; ok {
		return false, nil
	}
	c.claims[key] = struct{}{}
	return true, nil
}

func (c *MemoryCache) PutListing(_ context.Context, tenant string, views []domain.ItemView, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := make([]domain.ItemView, len(views))
	copy(copied, views)
	c.listings[tenant] = listingEntry{views: copied, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *MemoryCache) GetListing(_ context.Context, tenant string) ([]domain.ItemView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.listings[tenant]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.listings, tenant)
		return nil, false, nil
	}
	views := make([]domain.ItemView, len(entry.views))
	copy(views, entry.views)
	return views, true, nil
}

func (c *MemoryCache) InvalidateListing(_ context.Context, tenant string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.listings, tenant)
	return nil
}
