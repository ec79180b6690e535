package domain

import "sort"

// InventoryItem is one concrete priced and stocked item belonging to
// exactly one (tenant, generation) pair. Items from prior generations
// are immutable history; only the current generation is purchasable.
type InventoryItem struct {
	Tenant         string
	Generation     int64
	ItemID         string
	DisplayName    string
	Category       string
	Price          int64
	Stock          int
	PerUserLimit   int
	EntitlementKey string
}

func (i *InventoryItem) Clone() *InventoryItem {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

// ItemView is the read-only projection handed to the presentation
// layer. It may be stale by the time a purchase is attempted; the
// purchase path re-validates under the tenant lock regardless.
type ItemView struct {
	ItemID       string `json:"item_id"`
	DisplayName  string `json:"display_name"`
	Category     string `json:"category"`
	Price        int64  `json:"price"`
	Stock        int    `json:"stock"`
	PerUserLimit int    `json:"per_user_limit"`
}

func (i *InventoryItem) View() ItemView {
	return ItemView{
		ItemID:       i.ItemID,
		DisplayName:  i.DisplayName,
		Category:     i.Category,
		Price:        i.Price,
		Stock:        i.Stock,
		PerUserLimit: i.PerUserLimit,
	}
}

// SortItemViews orders views by category ascending, then price
// descending, the display order for market listings.
func SortItemViews(views []ItemView) {
	sort.SliceStable(views, func(a, b int) bool {
		if views[a].Category != views[b].Category {
			return views[a].Category < views[b].Category
		}
		return views[a].Price > views[b].Price
	})
}
