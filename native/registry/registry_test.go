package registry

import (
	"errors"
	"testing"
)

type mockState struct {
	tokens map[uint64]*Token
	count  uint64
}

func newMockState() *mockState {
	return &mockState{tokens: make(map[uint64]*Token)}
}

func (m *mockState) TokenPut(token *Token) error {
	m.tokens[token.ID] = token.Clone()
	return nil
}

func (m *mockState) TokenGet(id uint64) (*Token, bool) {
	token, ok := m.tokens[id]
	if !ok {
		return nil, false
	}
	return token.Clone(), true
}

func (m *mockState) TokenCount() (uint64, error) { return m.count, nil }

func (m *mockState) SetTokenCount(count uint64) error {
	m.count = count
	return nil
}

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func newTestEngine() (*Engine, *mockState) {
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return 42 })
	return engine, state
}

func TestMintAssignsMonotonicIdentifiers(t *testing.T) {
	engine, _ := newTestEngine()
	owner := testAddress(0xA1)

	for want := uint64(1); want <= 3; want++ {
		id, err := engine.Mint(owner, "ipfs://meta")
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		if id != want {
			t.Fatalf("expected identifier %d, got %d", want, id)
		}
	}
	if count, _ := engine.MintedCount(); count != 3 {
		t.Fatalf("minted count must be 3, got %d", count)
	}
	if custodian, err := engine.CustodianOf(1); err != nil || custodian != owner {
		t.Fatalf("fresh token must be held by its minter")
	}
	if uri, err := engine.TokenURI(1); err != nil || uri != "ipfs://meta" {
		t.Fatalf("token URI mismatch: %q %v", uri, err)
	}
}

func TestTransferCustody(t *testing.T) {
	engine, _ := newTestEngine()
	owner := testAddress(0xA1)
	next := testAddress(0xB2)

	id, err := engine.Mint(owner, "")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := engine.TransferCustody(id, next, owner); !errors.Is(err, ErrNotCustodian) {
		t.Fatalf("expected ErrNotCustodian, got %v", err)
	}
	if err := engine.TransferCustody(id, owner, next); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if custodian, _ := engine.CustodianOf(id); custodian != next {
		t.Fatalf("custody must move to the recipient")
	}
	if err := engine.TransferCustody(99, owner, next); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestCustodianOfUnknownToken(t *testing.T) {
	engine, _ := newTestEngine()
	if _, err := engine.CustodianOf(1); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}
