package domain

import (
	"errors"
	"fmt"
)

// CatalogTemplate describes one purchasable item type: price and stock
// are given as inclusive ranges sampled once per market generation.
type CatalogTemplate struct {
	ItemID         string
	DisplayName    string
	Category       string
	MinPrice       int64
	MaxPrice       int64
	MinStock       int
	MaxStock       int
	PerUserLimit   int
	EntitlementKey string
}

// Catalog is the static list of item templates. It carries no state and
// is never mutated after load.
type Catalog []CatalogTemplate

func (c Catalog) Validate() error {
	if len(c) == 0 {
		return errors.New("catalog: no templates defined")
	}
	seen := make(map[string]bool, len(c))
	for _, t := range c {
		if t.ItemID == "" {
			return errors.New("catalog: template with empty item id")
		}
		if seen[t.ItemID] {
			return fmt.Errorf("catalog: duplicate item id %q", t.ItemID)
		}
		seen[t.ItemID] = true
		if t.MinPrice <= 0 || t.MaxPrice < t.MinPrice {
			return fmt.Errorf("catalog: item %q has invalid price range [%d, %d]", t.ItemID, t.MinPrice, t.MaxPrice)
		}
		if t.MinStock <= 0 || t.MaxStock < t.MinStock {
			return fmt.Errorf("catalog: item %q has invalid stock range [%d, %d]", t.ItemID, t.MinStock, t.MaxStock)
		}
		if t.PerUserLimit <= 0 {
			return fmt.Errorf("catalog: item %q has non-positive per-user limit", t.ItemID)
		}
	}
	return nil
}
