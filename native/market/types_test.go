package market

import (
	"math/big"
	"testing"
)

func TestListingStatusValid(t *testing.T) {
	for _, status := range []ListingStatus{StatusListed, StatusSold} {
		if !status.Valid() {
			t.Fatalf("status %v must be valid", status)
		}
	}
	for _, status := range []ListingStatus{0, 3, 200} {
		if status.Valid() {
			t.Fatalf("status %v must be invalid", status)
		}
	}
}

func TestListingCustodian(t *testing.T) {
	vault := testAddress(0xFE)
	holder := testAddress(0xB2)
	listed := &Listing{ID: 1, Status: StatusListed, Price: big.NewInt(10)}
	if listed.Custodian(vault) != vault {
		t.Fatalf("listed item must be escrowed with the vault")
	}
	sold := &Listing{ID: 1, Status: StatusSold, Holder: holder, Price: big.NewInt(10)}
	if sold.Custodian(vault) != holder {
		t.Fatalf("sold item must be held by the buyer")
	}
}

func TestListingCloneIsDeep(t *testing.T) {
	original := &Listing{ID: 7, Status: StatusListed, Price: big.NewInt(100)}
	clone := original.Clone()
	clone.Price.SetInt64(999)
	clone.Status = StatusSold
	if original.Price.Int64() != 100 {
		t.Fatalf("clone must not alias the price")
	}
	if original.Status != StatusListed {
		t.Fatalf("clone must not alias the status")
	}
}

func TestCountersCloneIsDeep(t *testing.T) {
	counters := Counters{SoldCount: 2, ListingFee: big.NewInt(100)}
	clone := counters.Clone()
	clone.ListingFee.SetInt64(5)
	if counters.ListingFee.Int64() != 100 {
		t.Fatalf("clone must not alias the fee")
	}
}
