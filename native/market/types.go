package market

import "math/big"

// ListingStatus is the lifecycle tag of a market record. The tag replaces the
// usual owner-field sentinel overload: a listed item is always escrowed with
// the marketplace vault, a sold item is always held by its buyer.
type ListingStatus uint8

const (
	// StatusListed marks an item escrowed with the marketplace and awaiting
	// a buyer.
	StatusListed ListingStatus = iota + 1
	// StatusSold marks an item held by the buyer of its last completed sale.
	StatusSold
)

// Valid reports whether the status value is within the supported range.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusListed, StatusSold:
		return true
	default:
		return false
	}
}

func (s ListingStatus) String() string {
	switch s {
	case StatusListed:
		return "listed"
	case StatusSold:
		return "sold"
	default:
		return "unknown"
	}
}

// Listing is the market record kept per identifier. A record is created at
// listing time, mutated in place by purchases and resales, and never deleted.
// Seller identifies the party entitled to sale proceeds; Holder is meaningful
// only while Status is StatusSold and identifies the buyer keeping custody.
type Listing struct {
	ID        uint64        `json:"id"`
	Seller    [20]byte      `json:"seller"`
	Holder    [20]byte      `json:"holder"`
	Price     *big.Int      `json:"price"`
	Status    ListingStatus `json:"status"`
	CreatedAt int64         `json:"createdAt"`
	UpdatedAt int64         `json:"updatedAt"`
}

// Sold reports whether the record currently sits in the sold state.
func (l *Listing) Sold() bool {
	return l != nil && l.Status == StatusSold
}

// Custodian resolves the party holding the asset: the marketplace vault while
// the item is listed, the buyer after a completed sale.
func (l *Listing) Custodian(vault [20]byte) [20]byte {
	if l == nil {
		return [20]byte{}
	}
	if l.Status == StatusListed {
		return vault
	}
	return l.Holder
}

// Clone returns a deep copy of the listing so callers can safely mutate the
// copy without affecting the stored instance.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// Counters holds the ledger-wide mutable aggregates. SoldCount is maintained
// incrementally on every purchase and resale; ListingFee is the flat charge
// owed by sellers at listing and relisting time.
type Counters struct {
	SoldCount  uint64   `json:"soldCount"`
	ListingFee *big.Int `json:"listingFee"`
}

// Clone returns a deep copy of the counters.
func (c Counters) Clone() Counters {
	clone := Counters{SoldCount: c.SoldCount, ListingFee: big.NewInt(0)}
	if c.ListingFee != nil {
		clone.ListingFee = new(big.Int).Set(c.ListingFee)
	}
	return clone
}
