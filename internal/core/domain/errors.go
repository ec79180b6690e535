package domain

import "errors"

var (
	// ErrNotOpen means the tenant has no open sale window.
	ErrNotOpen = errors.New("market: not open")

	// ErrExpired means the window's deadline passed before the purchase;
	// the purchase path closes the market as a side effect.
	ErrExpired = errors.New("market: window expired")

	// ErrItemNotFound means the item id does not exist in the current
	// generation (unknown id, or the window was superseded mid-flight).
	ErrItemNotFound = errors.New("market: item not found")

	ErrSoldOut           = errors.New("market: sold out")
	ErrLimitReached      = errors.New("market: per-user limit reached")
	ErrInsufficientFunds = errors.New("market: insufficient funds")

	// ErrDuplicateRequest means a purchase with the same request id was
	// already accepted.
	ErrDuplicateRequest = errors.New("market: duplicate request")

	// ErrUnauthorized applies to lifecycle operations only.
	ErrUnauthorized = errors.New("market: unauthorized")
)
