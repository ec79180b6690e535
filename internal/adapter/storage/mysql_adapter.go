package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ldinh/marketd/internal/core/domain"
)

// applyRetries bounds retries of the purchase transaction on transient
// database errors. Domain rejections are never retried.
const applyRetries = 3

// MySQLAdapter is the durable store. The purchase apply step runs as
// one transaction so a crash can never leave money debited without the
// matching stock decrement and receipt. See schema.sql for the layout.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetMarket(ctx context.Context, tenant string) (*domain.MarketState, error) {
	_, err := m.db.ExecContext(ctx, `
		INSERT IGNORE INTO markets (tenant, generation, is_open, updated_at)
		VALUES (?, 0, 0, NOW())`, tenant)
	if err != nil {
		return nil, fmt.Errorf("init market: %w", err)
	}

	state := domain.NewMarketState(tenant)
	var closesAt sql.NullTime
	err = m.db.QueryRowContext(ctx, `
		SELECT generation, is_open, closes_at, updated_at
		FROM markets WHERE tenant = ?`, tenant,
	).Scan(&state.Generation, &state.IsOpen, &closesAt, &state.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("query market: %w", err)
	}
	if closesAt.Valid {
		state.ClosesAt = closesAt.Time
	}
	return state, nil
}

func (m *MySQLAdapter) SaveMarket(ctx context.Context, state *domain.MarketState) error {
	var closesAt any
	if !state.ClosesAt.IsZero() {
		closesAt = state.ClosesAt
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO markets (tenant, generation, is_open, closes_at, updated_at)
		VALUES (?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE
			generation = VALUES(generation),
			is_open = VALUES(is_open),
			closes_at = VALUES(closes_at),
			updated_at = NOW()`,
		state.Tenant, state.Generation, state.IsOpen, closesAt,
	)
	if err != nil {
		return fmt.Errorf("save market: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListOpenMarkets(ctx context.Context) ([]domain.MarketState, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT tenant, generation, closes_at, updated_at
		FROM markets WHERE is_open = 1`)
	if err != nil {
		return nil, fmt.Errorf("query open markets: %w", err)
	}
	defer rows.Close()

	var open []domain.MarketState
	for rows.Next() {
		state := domain.MarketState{IsOpen: true}
		var closesAt sql.NullTime
		if err := rows.Scan(&state.Tenant, &state.Generation, &closesAt, &state.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		if closesAt.Valid {
			state.ClosesAt = closesAt.Time
		}
		open = append(open, state)
	}
	return open, rows.Err()
}

func (m *MySQLAdapter) ReplaceInventory(ctx context.Context, tenant string, generation int64, items []domain.InventoryItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i := range items {
		item := &items[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO inventory
				(tenant, generation, item_id, display_name, category, price, stock, per_user_limit, entitlement_key)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				display_name = VALUES(display_name),
				category = VALUES(category),
				price = VALUES(price),
				stock = VALUES(stock),
				per_user_limit = VALUES(per_user_limit),
				entitlement_key = VALUES(entitlement_key)`,
			tenant, generation, item.ItemID, item.DisplayName, item.Category,
			item.Price, item.Stock, item.PerUserLimit, item.EntitlementKey,
		)
		if err != nil {
			return fmt.Errorf("insert inventory item %s: %w", item.ItemID, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetItem(ctx context.Context, tenant string, generation int64, itemID string) (*domain.InventoryItem, error) {
	item := domain.InventoryItem{Tenant: tenant, Generation: generation, ItemID: itemID}
	err := m.db.QueryRowContext(ctx, `
		SELECT display_name, category, price, stock, per_user_limit, entitlement_key
		FROM inventory WHERE tenant = ? AND generation = ? AND item_id = ?`,
		tenant, generation, itemID,
	).Scan(&item.DisplayName, &item.Category, &item.Price, &item.Stock, &item.PerUserLimit, &item.EntitlementKey)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (m *MySQLAdapter) ListItems(ctx context.Context, tenant string, generation int64) ([]domain.InventoryItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, display_name, category, price, stock, per_user_limit, entitlement_key
		FROM inventory WHERE tenant = ? AND generation = ?`,
		tenant, generation)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		item := domain.InventoryItem{Tenant: tenant, Generation: generation}
		if err := rows.Scan(&item.ItemID, &item.DisplayName, &item.Category,
			&item.Price, &item.Stock, &item.PerUserLimit, &item.EntitlementKey); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) SumQty(ctx context.Context, tenant string, generation int64, buyerID, itemID string) (int, error) {
	var total int
	err := m.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(qty), 0)
		FROM receipts
		WHERE tenant = ? AND generation = ? AND buyer_id = ? AND item_id = ?`,
		tenant, generation, buyerID, itemID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum receipts: %w", err)
	}
	return total, nil
}

func (m *MySQLAdapter) ListReceipts(ctx context.Context, tenant string, generation int64) ([]domain.Receipt, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, buyer_id, item_id, qty, unit_price, total_price, created_at
		FROM receipts WHERE tenant = ? AND generation = ?
		ORDER BY id`,
		tenant, generation)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []domain.Receipt
	for rows.Next() {
		r := domain.Receipt{Tenant: tenant, Generation: generation}
		if err := rows.Scan(&r.ID, &r.BuyerID, &r.ItemID, &r.Qty, &r.UnitPrice, &r.TotalPrice, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

// ApplyPurchase debits the wallet, decrements stock and appends a
// receipt in one transaction. Guard predicates re-check balance and
// stock at commit, so even a caller that skipped validation cannot
// oversell or overdraw.
func (m *MySQLAdapter) ApplyPurchase(ctx context.Context, sale domain.Sale) (*domain.Receipt, error) {
	var receipt *domain.Receipt
	var err error

	for attempt := 0; attempt < applyRetries; attempt++ {
		receipt, err = m.applyOnce(ctx, sale)
		if err == nil || isDomainErr(err) {
			return receipt, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("apply purchase after %d attempts: %w", applyRetries, err)
}

func (m *MySQLAdapter) applyOnce(ctx context.Context, sale domain.Sale) (*domain.Receipt, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance - ?, updated_at = NOW()
		WHERE user_id = ? AND balance >= ?`,
		sale.TotalPrice, sale.BuyerID, sale.TotalPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("debit wallet: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, domain.ErrInsufficientFunds
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE inventory
		SET stock = stock - ?
		WHERE tenant = ? AND generation = ? AND item_id = ? AND stock >= ?`,
		sale.Qty, sale.Tenant, sale.Generation, sale.ItemID, sale.Qty,
	)
	if err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, domain.ErrSoldOut
	}

	now := time.Now().UTC()
	result, err = tx.ExecContext(ctx, `
		INSERT INTO receipts
			(tenant, generation, buyer_id, item_id, qty, unit_price, total_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.Tenant, sale.Generation, sale.BuyerID, sale.ItemID,
		sale.Qty, sale.UnitPrice, sale.TotalPrice, now,
	)
	if err != nil {
		return nil, fmt.Errorf("append receipt: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("receipt id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}

	return &domain.Receipt{
		ID:         id,
		Tenant:     sale.Tenant,
		Generation: sale.Generation,
		BuyerID:    sale.BuyerID,
		ItemID:     sale.ItemID,
		Qty:        sale.Qty,
		UnitPrice:  sale.UnitPrice,
		TotalPrice: sale.TotalPrice,
		CreatedAt:  now,
	}, nil
}

func (m *MySQLAdapter) GetOrCreate(ctx context.Context, userID string, defaultBalance int64) (*domain.Wallet, error) {
	_, err := m.db.ExecContext(ctx, `
		INSERT IGNORE INTO wallets (user_id, balance, updated_at)
		VALUES (?, ?, NOW())`, userID, defaultBalance)
	if err != nil {
		return nil, fmt.Errorf("init wallet: %w", err)
	}

	wallet := domain.Wallet{UserID: userID}
	err = m.db.QueryRowContext(ctx, `
		SELECT balance, updated_at FROM wallets WHERE user_id = ?`, userID,
	).Scan(&wallet.Balance, &wallet.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("query wallet: %w", err)
	}
	return &wallet, nil
}

func (m *MySQLAdapter) Credit(ctx context.Context, userID string, amount int64) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE wallets SET balance = balance + ?, updated_at = NOW()
		WHERE user_id = ?`, amount, userID)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func isDomainErr(err error) bool {
	return errors.Is(err, domain.ErrInsufficientFunds) ||
		errors.Is(err, domain.ErrSoldOut) ||
		errors.Is(err, domain.ErrItemNotFound)
}
