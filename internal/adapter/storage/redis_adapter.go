package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ldinh/marketd/internal/core/domain"
)

const (
	listingKeyPrefix  = "listing:"
	idempotencyKeyTTL = 24 * time.Hour
)

// RedisAdapter is the snapshot cache: point-in-time inventory listings
// served without taking the tenant lock, plus purchase request
// deduplication. A stale listing is acceptable; the purchase path
// re-validates under the lock.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisAdapter) PutListing(ctx context.Context, tenant string, views []domain.ItemView, ttl time.Duration) error {
	data, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}
	return r.client.Set(ctx, listingKeyPrefix+tenant, data, ttl).Err()
}

func (r *RedisAdapter) GetListing(ctx context.Context, tenant string) ([]domain.ItemView, bool, error) {
	data, err := r.client.Get(ctx, listingKeyPrefix+tenant).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var views []domain.ItemView
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, false, fmt.Errorf("decode listing: %w", err)
	}
	return views, true, nil
}

func (r *RedisAdapter) InvalidateListing(ctx context.Context, tenant string) error {
	return r.client.Del(ctx, listingKeyPrefix+tenant).Err()
}
