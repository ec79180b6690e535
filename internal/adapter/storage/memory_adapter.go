package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ldinh/marketd/internal/core/domain"
)

var ErrWalletNotFound = errors.New("storage: wallet not found")

type invKey struct {
	tenant     string
	generation int64
	itemID     string
}

// MemoryAdapter keeps the four logical tables (markets, inventory,
// receipts, wallets) in process under one mutex. It backs single-node
// runs and tests; the apply step is atomic but not durable across a
// crash, which is what the MySQL adapter is for.
type MemoryAdapter struct {
	mu            sync.RWMutex
	markets       map[string]*domain.MarketState
	items         map[invKey]*domain.InventoryItem
	receipts      []domain.Receipt
	nextReceiptID int64
	wallets       map[string]*domain.Wallet
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		markets: make(map[string]*domain.MarketState),
		items:   make(map[invKey]*domain.InventoryItem),
		wallets: make(map[string]*domain.Wallet),
	}
}

func (m *MemoryAdapter) GetMarket(ctx context.Context, tenant string) (*domain.MarketState, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.markets[tenant]
	if !ok {
		state = domain.NewMarketState(tenant)
		m.markets[tenant] = state
	}
	return state.Clone(), nil
}

func (m *MemoryAdapter) SaveMarket(ctx context.Context, state *domain.MarketState) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	m.markets[state.Tenant] = state.Clone()
	return nil
}

func (m *MemoryAdapter) ListOpenMarkets(ctx context.Context) ([]domain.MarketState, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	var open []domain.MarketState
	for _, state := range m.markets {
		if state.IsOpen {
			open = append(open, *state)
		}
	}
	return open, nil
}

func (m *MemoryAdapter) ReplaceInventory(ctx context.Context, tenant string, generation int64, items []domain.InventoryItem) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	// Prior generations stay untouched as read-only history.
	for i := range items {
		item := items[i]
		m.items[invKey{tenant, generation, item.ItemID}] = &item
	}
	return nil
}

func (m *MemoryAdapter) GetItem(ctx context.Context, tenant string, generation int64, itemID string) (*domain.InventoryItem, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[invKey{tenant, generation, itemID}]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return item.Clone(), nil
}

func (m *MemoryAdapter) ListItems(ctx context.Context, tenant string, generation int64) ([]domain.InventoryItem, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []domain.InventoryItem
	for key, item := range m.items {
		if key.tenant == tenant && key.generation == generation {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (m *MemoryAdapter) SumQty(ctx context.Context, tenant string, generation int64, buyerID, itemID string) (int, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for i := range m.receipts {
		r := &m.receipts[i]
		if r.Tenant == tenant && r.Generation == generation && r.BuyerID == buyerID && r.ItemID == itemID {
			total += r.Qty
		}
	}
	return total, nil
}

func (m *MemoryAdapter) ListReceipts(ctx context.Context, tenant string, generation int64) ([]domain.Receipt, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	var receipts []domain.Receipt
	for i := range m.receipts {
		if m.receipts[i].Tenant == tenant && m.receipts[i].Generation == generation {
			receipts = append(receipts, m.receipts[i])
		}
	}
	return receipts, nil
}

func (m *MemoryAdapter) ApplyPurchase(ctx context.Context, sale domain.Sale) (*domain.Receipt, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[sale.BuyerID]
	if !ok || wallet.Balance < sale.TotalPrice {
		return nil, domain.ErrInsufficientFunds
	}

	item, ok := m.items[invKey{sale.Tenant, sale.Generation, sale.ItemID}]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if item.Stock < sale.Qty {
		return nil, domain.ErrSoldOut
	}

	now := time.Now().UTC()
	wallet.Balance -= sale.TotalPrice
	wallet.UpdatedAt = now
	item.Stock -= sale.Qty

	m.nextReceiptID++
	receipt := domain.Receipt{
		ID:         m.nextReceiptID,
		Tenant:     sale.Tenant,
		Generation: sale.Generation,
		BuyerID:    sale.BuyerID,
		ItemID:     sale.ItemID,
		Qty:        sale.Qty,
		UnitPrice:  sale.UnitPrice,
		TotalPrice: sale.TotalPrice,
		CreatedAt:  now,
	}
	m.receipts = append(m.receipts, receipt)

	out := receipt
	return &out, nil
}

func (m *MemoryAdapter) GetOrCreate(ctx context.Context, userID string, defaultBalance int64) (*domain.Wallet, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[userID]
	if !ok {
		wallet = &domain.Wallet{
			UserID:    userID,
			Balance:   defaultBalance,
			UpdatedAt: time.Now().UTC(),
		}
		m.wallets[userID] = wallet
	}
	return wallet.Clone(), nil
}

func (m *MemoryAdapter) Credit(ctx context.Context, userID string, amount int64) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[userID]
	if !ok {
		return ErrWalletNotFound
	}
	wallet.Balance += amount
	wallet.UpdatedAt = time.Now().UTC()
	return nil
}
