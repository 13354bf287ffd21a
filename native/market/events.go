package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"quickart/core/types"
)

const (
	EventTypeMarketListed     = "market.listed"
	EventTypeMarketSold       = "market.sold"
	EventTypeMarketRelisted   = "market.relisted"
	EventTypeMarketFeeUpdated = "market.fee_updated"
)

// NewListedEvent returns the canonical event payload for a freshly created
// listing.
func NewListedEvent(l *Listing, vault [20]byte) *types.Event {
	return newListingEvent(EventTypeMarketListed, l, vault)
}

// NewRelistedEvent returns the canonical event payload emitted when a sold
// item returns to the listed state.
func NewRelistedEvent(l *Listing, vault [20]byte) *types.Event {
	return newListingEvent(EventTypeMarketRelisted, l, vault)
}

// NewSoldEvent returns the canonical event payload for a completed sale.
func NewSoldEvent(l *Listing, buyer [20]byte) *types.Event {
	evt := newListingEvent(EventTypeMarketSold, l, buyer)
	evt.Attributes["buyer"] = hex.EncodeToString(buyer[:])
	return evt
}

// NewFeeUpdatedEvent returns the event payload emitted when the operator
// changes the listing fee.
func NewFeeUpdatedEvent(fee *big.Int) *types.Event {
	attrs := map[string]string{"fee": "0"}
	if fee != nil {
		attrs["fee"] = fee.String()
	}
	return &types.Event{Type: EventTypeMarketFeeUpdated, Attributes: attrs}
}

func newListingEvent(eventType string, l *Listing, custodian [20]byte) *types.Event {
	attrs := make(map[string]string)
	if l == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(l.ID, 10)
	attrs["seller"] = hex.EncodeToString(l.Seller[:])
	attrs["custodian"] = hex.EncodeToString(custodian[:])
	attrs["sold"] = strconv.FormatBool(l.Sold())
	if l.Price != nil {
		attrs["price"] = l.Price.String()
	} else {
		attrs["price"] = "0"
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
