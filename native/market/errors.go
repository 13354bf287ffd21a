package market

import "errors"

// Precondition failures surfaced to callers. Every rejection voids the whole
// operation: no state, custody, or balance change survives an error return.
var (
	ErrInvalidPrice        = errors.New("market: price must be positive")
	ErrInsufficientFee     = errors.New("market: attached payment below listing fee")
	ErrWrongFee            = errors.New("market: attached payment must equal listing fee")
	ErrWrongPayment        = errors.New("market: attached payment must equal asking price")
	ErrNotListed           = errors.New("market: item is not escrowed with the marketplace")
	ErrNotOwner            = errors.New("market: caller does not hold the item")
	ErrUnauthorized        = errors.New("market: caller is not the marketplace operator")
	ErrNotFound            = errors.New("market: listing not found")
	ErrInsufficientBalance = errors.New("market: insufficient balance")
)
