package domain

import "time"

// Wallet is the buyer's spendable balance. It is owned by the fund
// service but debited inside the same atomic unit as stock and ledger
// updates; the balance never goes negative as a result of a purchase.
type Wallet struct {
	UserID    string
	Balance   int64
	UpdatedAt time.Time
}

func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	clone := *w
	return &clone
}
