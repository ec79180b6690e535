package port

import (
	"context"

	"github.com/ldinh/marketd/internal/core/domain"
)

// MarketRepository persists market state, per-generation inventory and
// the receipt ledger. Implementations must keep receipts append-only
// and apply a Sale as one durable unit.
type MarketRepository interface {
	// GetMarket returns the tenant's market state, lazily creating the
	// initial closed state (generation zero) on first access.
	GetMarket(ctx context.Context, tenant string) (*domain.MarketState, error)

	// SaveMarket overwrites the tenant's market state.
	SaveMarket(ctx context.Context, state *domain.MarketState) error

	// ListOpenMarkets returns every tenant whose market is open.
	ListOpenMarkets(ctx context.Context) ([]domain.MarketState, error)

	// ReplaceInventory stores the freshly generated items for a
	// generation. Items from prior generations are retained untouched.
	ReplaceInventory(ctx context.Context, tenant string, generation int64, items []domain.InventoryItem) error

	// GetItem looks up one item within a generation. Returns
	// domain.ErrItemNotFound when absent.
	GetItem(ctx context.Context, tenant string, generation int64, itemID string) (*domain.InventoryItem, error)

	// ListItems returns all items of a generation, including sold-out ones.
	ListItems(ctx context.Context, tenant string, generation int64) ([]domain.InventoryItem, error)

	// SumQty totals a buyer's committed quantity for an item within a
	// generation, read from the receipt ledger.
	SumQty(ctx context.Context, tenant string, generation int64, buyerID, itemID string) (int, error)

	// ListReceipts returns a generation's receipts in append order.
	ListReceipts(ctx context.Context, tenant string, generation int64) ([]domain.Receipt, error)

	// ApplyPurchase debits the wallet, decrements stock and appends a
	// receipt atomically. The stock and balance guards are re-checked at
	// commit; guard failure surfaces as domain.ErrSoldOut or
	// domain.ErrInsufficientFunds with no partial effect.
	ApplyPurchase(ctx context.Context, sale domain.Sale) (*domain.Receipt, error)
}
