package port

import (
	"context"
	"time"

	"github.com/ldinh/marketd/internal/core/domain"
)

// SnapshotCache serves lock-free inventory listings and purchase
// request deduplication. Everything here is best-effort: a cache
// failure degrades to a repository read, never to a wrong sale.
type SnapshotCache interface {
	// SetIdempotency claims a purchase request id, returning false if it
	// was already claimed.
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// PutListing caches a tenant's current item views for ttl.
	PutListing(ctx context.Context, tenant string, views []domain.ItemView, ttl time.Duration) error

	// GetListing returns the cached views and whether the cache hit.
	GetListing(ctx context.Context, tenant string) ([]domain.ItemView, bool, error)

	// InvalidateListing drops the cached views after a mutation.
	InvalidateListing(ctx context.Context, tenant string) error
}
