package types

import "math/big"

// Account tracks the native-currency balance for a single address. The
// marketplace engine debits and credits these balances during settlement;
// balances are never allowed to go negative.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// NewAccount returns an account with a zeroed balance so callers never have to
// nil-check the big.Int.
func NewAccount() *Account {
	return &Account{Balance: big.NewInt(0)}
}

// Normalize backfills a nil balance with zero. Stored accounts may predate
// fields added later, so every load path runs through here.
func (a *Account) Normalize() *Account {
	if a == nil {
		return NewAccount()
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	return a
}

// Clone returns a deep copy so callers can mutate the result without touching
// the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return NewAccount()
	}
	clone := &Account{Nonce: a.Nonce, Balance: big.NewInt(0)}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return clone
}
