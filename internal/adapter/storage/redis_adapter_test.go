package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ldinh/marketd/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedis_SetIdempotency(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	adapter := NewRedisAdapter(client)
	ctx := context.Background()
	key := fmt.Sprintf("purchase:test-%d", time.Now().UnixNano())
	defer client.Del(ctx, key)

	ok, err := adapter.SetIdempotency(ctx, key)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !ok {
		t.Fatal("expected first claim to succeed")
	}

	ok, err = adapter.SetIdempotency(ctx, key)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Fatal("expected second claim to be rejected")
	}
}

func TestRedis_ListingRoundTrip(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	adapter := NewRedisAdapter(client)
	ctx := context.Background()
	tenant := fmt.Sprintf("test-%d", time.Now().UnixNano())
	defer client.Del(ctx, "listing:"+tenant)

	views := []domain.ItemView{
		{ItemID: "item-1", DisplayName: "Item 1", Category: "a", Price: 100, Stock: 5, PerUserLimit: 2},
		{ItemID: "item-2", DisplayName: "Item 2", Category: "b", Price: 300, Stock: 1, PerUserLimit: 1},
	}
	if err := adapter.PutListing(ctx, tenant, views, time.Minute); err != nil {
		t.Fatalf("put listing: %v", err)
	}

	got, ok, err := adapter.GetListing(ctx, tenant)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[0].ItemID != "item-1" || got[1].Price != 300 {
		t.Errorf("unexpected listing: %+v", got)
	}

	if err := adapter.InvalidateListing(ctx, tenant); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := adapter.GetListing(ctx, tenant); ok {
		t.Error("expected miss after invalidation")
	}
}

func TestRedis_ListingMiss(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	adapter := NewRedisAdapter(client)
	_, ok, err := adapter.GetListing(context.Background(), fmt.Sprintf("absent-%d", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if ok {
		t.Error("expected miss for unknown tenant")
	}
}

func TestRedis_ListingTTLExpires(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	adapter := NewRedisAdapter(client)
	ctx := context.Background()
	tenant := fmt.Sprintf("test-ttl-%d", time.Now().UnixNano())
	defer client.Del(ctx, "listing:"+tenant)

	if err := adapter.PutListing(ctx, tenant, []domain.ItemView{{ItemID: "item-1"}}, 50*time.Millisecond); err != nil {
		t.Fatalf("put listing: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if _, ok, _ := adapter.GetListing(ctx, tenant); ok {
		t.Error("expected miss after ttl")
	}
}
