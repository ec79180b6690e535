package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ldinh/marketd/internal/adapter/auth"
	"github.com/ldinh/marketd/internal/adapter/storage"
	"github.com/ldinh/marketd/internal/core/domain"
)

func listingCatalog() domain.Catalog {
	return domain.Catalog{
		{ItemID: "b-cheap", DisplayName: "B Cheap", Category: "beta", MinPrice: 100, MaxPrice: 100, MinStock: 1, MaxStock: 1, PerUserLimit: 1},
		{ItemID: "a-mid", DisplayName: "A Mid", Category: "alpha", MinPrice: 500, MaxPrice: 500, MinStock: 2, MaxStock: 2, PerUserLimit: 1},
		{ItemID: "b-dear", DisplayName: "B Dear", Category: "beta", MinPrice: 900, MaxPrice: 900, MinStock: 3, MaxStock: 3, PerUserLimit: 1},
	}
}

func TestOpen_GenerationStrictlyIncreases(t *testing.T) {
	e := newTestEngine(fixedCatalog(100, 1, 1), 1000)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		state, err := e.markets.Open(ctx, "g1", "admin", time.Hour)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if state.Generation <= last {
			t.Fatalf("generation %d not greater than %d", state.Generation, last)
		}
		last = state.Generation
	}
}

func TestOpen_SupersedesOpenWindow(t *testing.T) {
	e := newTestEngine(fixedCatalog(100, 5, 5), 1000)
	ctx := context.Background()

	first := e.open(t, "g1", time.Hour)
	second := e.open(t, "g1", time.Hour)

	if second.Generation != first.Generation+1 {
		t.Fatalf("expected generation %d, got %d", first.Generation+1, second.Generation)
	}

	// An in-flight purchase validated against the old generation misses
	// its item lookup in the new one.
	if _, err := e.store.GetItem(ctx, "g1", first.Generation, "item-x"); err != nil {
		t.Fatalf("old generation history should be retained: %v", err)
	}
	state, _ := e.markets.Snapshot(ctx, "g1")
	if state.Generation != second.Generation || !state.IsOpen {
		t.Errorf("unexpected state after supersession: %+v", state)
	}
}

func TestClose_Idempotent(t *testing.T) {
	e := newTestEngine(fixedCatalog(100, 1, 1), 1000)
	ctx := context.Background()
	e.open(t, "g1", time.Hour)

	if err := e.markets.Close(ctx, "g1", "admin", "manual"); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := e.markets.Close(ctx, "g1", "admin", "manual"); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}

	state, _ := e.markets.Snapshot(ctx, "g1")
	if state.IsOpen {
		t.Error("expected closed market")
	}
	if !state.ClosesAt.IsZero() {
		t.Errorf("expected zero closes_at, got %v", state.ClosesAt)
	}
}

func TestSnapshot_LazyInitialState(t *testing.T) {
	e := newTestEngine(fixedCatalog(100, 1, 1), 1000)

	state, err := e.markets.Snapshot(context.Background(), "never-opened")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if state.Generation != 0 || state.IsOpen {
		t.Errorf("expected generation 0 closed, got %+v", state)
	}
}

func TestListInventory_OrderAndFilter(t *testing.T) {
	store := storage.NewMemoryAdapter()
	locks := NewTenantLocks()
	markets := NewMarketService(store, listingCatalog(), NewGenerator(1), locks, nil, nil, nil, nil, time.Second, time.Hour)
	purchases := NewPurchaseService(store, store, markets, nil, nil, nil, nil, 100000)
	ctx := context.Background()

	if _, err := markets.Open(ctx, "g1", "admin", time.Hour); err != nil {
		t.Fatalf("open: %v", err)
	}

	// Sell out b-cheap (stock 1) so the listing drops it.
	if _, err := purchases.Purchase(ctx, PurchaseRequest{Tenant: "g1", BuyerID: "buyer-a", ItemID: "b-cheap", Qty: 1}); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	views, err := markets.ListInventory(ctx, "g1")
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}

	want := []string{"a-mid", "b-dear"}
	if len(views) != len(want) {
		t.Fatalf("expected %d views, got %d", len(want), len(views))
	}
	for i, id := range want {
		if views[i].ItemID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, views[i].ItemID)
		}
	}
	for _, v := range views {
		if v.Stock <= 0 {
			t.Errorf("listing returned out-of-stock item %s", v.ItemID)
		}
	}
}

func TestListInventory_ClosedMarketIsEmpty(t *testing.T) {
	e := newTestEngine(fixedCatalog(100, 5, 5), 1000)

	views, err := e.markets.ListInventory(context.Background(), "g1")
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(views) != 0 {
		t.Errorf("expected empty listing, got %d items", len(views))
	}
}

func TestListInventory_ServedFromCache(t *testing.T) {
	store := storage.NewMemoryAdapter()
	cache := newMemCache()
	markets := NewMarketService(store, listingCatalog(), NewGenerator(1), NewTenantLocks(), cache, nil, nil, nil, time.Second, time.Hour)
	ctx := context.Background()

	if _, err := markets.Open(ctx, "g1", "admin", time.Hour); err != nil {
		t.Fatalf("open: %v", err)
	}

	first, err := markets.ListInventory(ctx, "g1")
	if err != nil {
		t.Fatalf("first listing: %v", err)
	}
	if _, ok, _ := cache.GetListing(ctx, "g1"); !ok {
		t.Fatal("expected listing cached after first read")
	}

	second, err := markets.ListInventory(ctx, "g1")
	if err != nil {
		t.Fatalf("second listing: %v", err)
	}
	if len(second) != len(first) {
		t.Errorf("cached listing differs: %d vs %d", len(second), len(first))
	}
}

func TestLifecycle_Unauthorized(t *testing.T) {
	store := storage.NewMemoryAdapter()
	authorizer := auth.NewStaticAuthorizer([]string{"admin-1"})
	markets := NewMarketService(store, fixedCatalog(100, 1, 1), NewGenerator(1), NewTenantLocks(), nil, authorizer, nil, nil, time.Second, time.Hour)
	ctx := context.Background()

	if _, err := markets.Open(ctx, "g1", "random-user", time.Hour); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := markets.Close(ctx, "g1", "random-user", "manual"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if _, err := markets.Open(ctx, "g1", "admin-1", time.Hour); err != nil {
		t.Fatalf("admin open failed: %v", err)
	}
}

func TestOpen_RejectsInvalidDuration(t *testing.T) {
	e := newTestEngine(fixedCatalog(100, 1, 1), 1000)

	if _, err := e.markets.Open(context.Background(), "g1", "admin", 0); err == nil {
		t.Fatal("expected error for zero duration")
	}
	if _, err := e.markets.Open(context.Background(), "g1", "admin", 48*time.Hour); err == nil {
		t.Fatal("expected error for duration above cap")
	}
}
