package domain

import "time"

// MarketState tracks one tenant's sale window. A tenant has at most one
// logically open window at a time; Generation increases on every open
// and is never reused, so inventory and purchase-limit accounting from
// older windows stay frozen.
type MarketState struct {
	Tenant     string
	Generation int64
	IsOpen     bool
	ClosesAt   time.Time
	UpdatedAt  time.Time
}

// NewMarketState returns the initial state for a tenant that has never
// opened a market: generation zero, closed.
func NewMarketState(tenant string) *MarketState {
	return &MarketState{Tenant: tenant}
}

// Expired reports whether an open window's deadline has passed.
// A closed market is never expired; it is just closed.
func (m *MarketState) Expired(now time.Time) bool {
	return m.IsOpen && !now.Before(m.ClosesAt)
}

func (m *MarketState) Clone() *MarketState {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}
