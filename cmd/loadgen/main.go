package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ldinh/marketd/internal/adapter/storage"
	"github.com/ldinh/marketd/internal/core/domain"
	"github.com/ldinh/marketd/internal/core/service"
)

// loadgen drives concurrent purchases through an in-process engine and
// checks stock conservation: with a single item of stock S and N > S
// one-unit buyers, exactly S purchases must commit.
func main() {
	var (
		stock  = flag.Int("stock", 20, "item stock for the run")
		buyers = flag.Int("buyers", 50, "concurrent one-unit buyers")
		seed   = flag.Int64("seed", 1, "inventory generator seed")
	)
	flag.Parse()

	ctx := context.Background()
	tenant := "loadgen"

	catalog := domain.Catalog{{
		ItemID:       "stress-item",
		DisplayName:  "Stress Item",
		Category:     "test",
		MinPrice:     100,
		MaxPrice:     100,
		MinStock:     *stock,
		MaxStock:     *stock,
		PerUserLimit: 1,
	}}

	store := storage.NewMemoryAdapter()
	locks := service.NewTenantLocks()
	logger := zap.NewNop()
	metrics := service.NewMetrics(nil)

	markets := service.NewMarketService(
		store, catalog, service.NewGenerator(*seed), locks, nil, nil,
		logger, metrics, time.Second, time.Hour,
	)
	purchases := service.NewPurchaseService(
		store, store, markets, nil, nil, logger, metrics, 1000,
	)

	state, err := markets.Open(ctx, tenant, "loadgen", 10*time.Minute)
	if err != nil {
		log.Fatalf("open market: %v", err)
	}

	var successCount, failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *buyers; i++ {
		wg.Add(1)
		go func(buyer int) {
			defer wg.Done()
			_, err := purchases.Purchase(ctx, service.PurchaseRequest{
				Tenant:  tenant,
				BuyerID: fmt.Sprintf("buyer-%d", buyer),
				ItemID:  "stress-item",
				Qty:     1,
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== LOAD RESULTS ==========")
	fmt.Printf("Stock:            %d\n", *stock)
	fmt.Printf("Buyers:           %d\n", *buyers)
	fmt.Printf("Committed:        %d\n", success)
	fmt.Printf("Rejected:         %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==================================")

	want := int32(*stock)
	if int32(*buyers) < want {
		want = int32(*buyers)
	}
	if success == want {
		fmt.Printf("PASS: exactly %d purchases committed\n", want)
	} else {
		fmt.Printf("FAIL: expected %d committed, got %d\n", want, success)
	}

	item, err := store.GetItem(ctx, tenant, state.Generation, "stress-item")
	if err != nil {
		log.Fatalf("final stock read: %v", err)
	}
	fmt.Printf("Final stock: %d\n", item.Stock)
	if item.Stock == *stock-int(want) {
		fmt.Println("PASS: stock conserved")
	} else {
		fmt.Printf("FAIL: expected final stock %d, got %d\n", *stock-int(want), item.Stock)
	}
}
