package port

import (
	"context"

	"github.com/ldinh/marketd/internal/core/domain"
)

// WalletRepository exposes the fund service's read side. The debit
// itself happens inside MarketRepository.ApplyPurchase so it shares the
// sale's atomic unit.
type WalletRepository interface {
	// GetOrCreate returns the buyer's wallet, creating it with the
	// default balance on first touch.
	GetOrCreate(ctx context.Context, userID string, defaultBalance int64) (*domain.Wallet, error)

	// Credit adds funds to an existing wallet.
	Credit(ctx context.Context, userID string, amount int64) error
}
