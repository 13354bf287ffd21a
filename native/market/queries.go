package market

// Query helpers scan every identifier the registry has issued so far. Each
// runs two passes, one to size the result and one to fill it, so callers get
// an exactly-sized slice ordered by ascending identifier.

func (e *Engine) scan(match func(*Listing) bool) ([]*Listing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	minted, err := e.registry.MintedCount()
	if err != nil {
		return nil, err
	}
	count := 0
	for id := uint64(1); id <= minted; id++ {
		if listing, ok := e.state.MarketGet(id); ok && match(listing) {
			count++
		}
	}
	results := make([]*Listing, 0, count)
	for id := uint64(1); id <= minted; id++ {
		if listing, ok := e.state.MarketGet(id); ok && match(listing) {
			results = append(results, listing.Clone())
		}
	}
	return results, nil
}

// UnsoldItems returns every record currently escrowed with the marketplace,
// i.e. listed and available for purchase.
func (e *Engine) UnsoldItems() ([]*Listing, error) {
	return e.scan(func(l *Listing) bool {
		return l.Status == StatusListed
	})
}

// ItemsOf returns every record whose current custodian is the given address.
func (e *Engine) ItemsOf(addr [20]byte) ([]*Listing, error) {
	vault := e.vault
	return e.scan(func(l *Listing) bool {
		return l.Custodian(vault) == addr
	})
}

// ListingsOf returns every record whose proceeds-entitled seller is the given
// address, whether or not the item is currently escrowed.
func (e *Engine) ListingsOf(addr [20]byte) ([]*Listing, error) {
	return e.scan(func(l *Listing) bool {
		return l.Seller == addr
	})
}
