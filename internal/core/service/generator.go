package service

import (
	"math/rand"
	"sync"

	"github.com/ldinh/marketd/internal/core/domain"
)

// Generator turns catalog templates into concrete inventory for one
// market generation. Price and stock are sampled uniformly from the
// template's inclusive ranges, once per generation; the per-user limit
// is copied verbatim.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate is a pure function of the catalog and the random source.
// The caller persists the result before the window is advertised.
func (g *Generator) Generate(tenant string, generation int64, catalog domain.Catalog) []domain.InventoryItem {
	g.mu.Lock()
	defer g.mu.Unlock()

	items := make([]domain.InventoryItem, 0, len(catalog))
	for _, t := range catalog {
		items = append(items, domain.InventoryItem{
			Tenant:         tenant,
			Generation:     generation,
			ItemID:         t.ItemID,
			DisplayName:    t.DisplayName,
			Category:       t.Category,
			Price:          t.MinPrice + g.rng.Int63n(t.MaxPrice-t.MinPrice+1),
			Stock:          t.MinStock + g.rng.Intn(t.MaxStock-t.MinStock+1),
			PerUserLimit:   t.PerUserLimit,
			EntitlementKey: t.EntitlementKey,
		})
	}
	return items
}
