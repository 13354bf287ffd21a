package state

import (
	"math/big"

	"quickart/native/market"
)

// MarketPut persists a market listing record.
func (m *Manager) MarketPut(listing *market.Listing) error {
	return m.KVPut(listingKey(listing.ID), listing)
}

// MarketGet loads the listing stored for the identifier.
func (m *Manager) MarketGet(id uint64) (*market.Listing, bool) {
	var stored market.Listing
	ok, err := m.KVGet(listingKey(id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &stored, true
}

// MarketDelete removes the listing stored for the identifier. Deleting an
// absent record is not an error.
func (m *Manager) MarketDelete(id uint64) error {
	return m.db.Delete(listingKey(id))
}

// MarketCounters loads the ledger-wide counters. Missing counters resolve to
// a zeroed value so a fresh database starts with fee 0 and no sales.
func (m *Manager) MarketCounters() (market.Counters, error) {
	var stored market.Counters
	ok, err := m.KVGet(marketCountersKey, &stored)
	if err != nil {
		return market.Counters{}, err
	}
	if !ok {
		return market.Counters{ListingFee: big.NewInt(0)}, nil
	}
	return stored.Clone(), nil
}

// SetMarketCounters persists the ledger-wide counters.
func (m *Manager) SetMarketCounters(counters market.Counters) error {
	return m.KVPut(marketCountersKey, counters.Clone())
}

// InitializeMarketCounters seeds the counters with the genesis listing fee if
// no counters have been stored yet. Called once at daemon start-up.
func (m *Manager) InitializeMarketCounters(fee *big.Int) error {
	var stored market.Counters
	ok, err := m.KVGet(marketCountersKey, &stored)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	seed := market.Counters{ListingFee: big.NewInt(0)}
	if fee != nil {
		seed.ListingFee = new(big.Int).Set(fee)
	}
	return m.SetMarketCounters(seed)
}
