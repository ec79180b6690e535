package service

import (
	"testing"

	"github.com/ldinh/marketd/internal/core/domain"
)

func TestGenerate_SamplesWithinRanges(t *testing.T) {
	catalog := domain.Catalog{
		{ItemID: "a", Category: "c", MinPrice: 500, MaxPrice: 1500, MinStock: 2, MaxStock: 8, PerUserLimit: 3, EntitlementKey: "role-a"},
		{ItemID: "b", Category: "c", MinPrice: 100, MaxPrice: 100, MinStock: 1, MaxStock: 1, PerUserLimit: 1},
	}
	g := NewGenerator(42)

	for round := 0; round < 100; round++ {
		items := g.Generate("g1", int64(round+1), catalog)
		if len(items) != len(catalog) {
			t.Fatalf("expected %d items, got %d", len(catalog), len(items))
		}
		for i, item := range items {
			tpl := catalog[i]
			if item.Price < tpl.MinPrice || item.Price > tpl.MaxPrice {
				t.Fatalf("item %s price %d outside [%d, %d]", item.ItemID, item.Price, tpl.MinPrice, tpl.MaxPrice)
			}
			if item.Stock < tpl.MinStock || item.Stock > tpl.MaxStock {
				t.Fatalf("item %s stock %d outside [%d, %d]", item.ItemID, item.Stock, tpl.MinStock, tpl.MaxStock)
			}
			if item.PerUserLimit != tpl.PerUserLimit {
				t.Fatalf("item %s limit %d, expected %d", item.ItemID, item.PerUserLimit, tpl.PerUserLimit)
			}
			if item.EntitlementKey != tpl.EntitlementKey {
				t.Fatalf("item %s entitlement %q, expected %q", item.ItemID, item.EntitlementKey, tpl.EntitlementKey)
			}
			if item.Generation != int64(round+1) || item.Tenant != "g1" {
				t.Fatalf("item %s mislabeled: tenant=%s generation=%d", item.ItemID, item.Tenant, item.Generation)
			}
		}
	}
}

func TestGenerate_DeterministicForSeed(t *testing.T) {
	catalog := domain.Catalog{
		{ItemID: "a", Category: "c", MinPrice: 1, MaxPrice: 1000, MinStock: 1, MaxStock: 100, PerUserLimit: 1},
	}

	first := NewGenerator(7).Generate("g1", 1, catalog)
	second := NewGenerator(7).Generate("g1", 1, catalog)

	if first[0].Price != second[0].Price || first[0].Stock != second[0].Stock {
		t.Errorf("same seed produced different samples: %+v vs %+v", first[0], second[0])
	}
}
