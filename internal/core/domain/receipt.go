package domain

import "time"

// Receipt is one row of the append-only sale ledger. Receipts are never
// updated or deleted; a buyer's cumulative quantity toward a per-user
// limit is computed by summing their receipts for the generation.
type Receipt struct {
	ID         int64     `json:"id"`
	Tenant     string    `json:"tenant"`
	Generation int64     `json:"generation"`
	BuyerID    string    `json:"buyer_id"`
	ItemID     string    `json:"item_id"`
	Qty        int       `json:"qty"`
	UnitPrice  int64     `json:"unit_price"`
	TotalPrice int64     `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`

	// Warning is set when the sale committed but the follow-up
	// entitlement grant failed. The sale is not reversed.
	Warning string `json:"warning,omitempty"`
}

// Sale is the atomic application of a validated purchase: debit the
// buyer's wallet, decrement the item's stock, and append a receipt as
// one durable unit.
type Sale struct {
	Tenant     string
	Generation int64
	BuyerID    string
	ItemID     string
	Qty        int
	UnitPrice  int64
	TotalPrice int64
}
