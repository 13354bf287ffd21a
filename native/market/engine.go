package market

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"quickart/core/events"
	"quickart/core/types"
)

var (
	errNilState    = errors.New("market engine: state not configured")
	errNilRegistry = errors.New("market engine: asset registry not configured")
	errNilVault    = errors.New("market engine: custody vault not configured")
	errNilOperator = errors.New("market engine: operator not configured")
)

type engineState interface {
	MarketPut(*Listing) error
	MarketGet(id uint64) (*Listing, bool)
	MarketDelete(id uint64) error
	MarketCounters() (Counters, error)
	SetMarketCounters(Counters) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Registry is the asset-ownership capability the ledger settles against. It
// issues identifiers and records raw custody; the engine never reimplements
// either, it only keeps its own records in lockstep.
type Registry interface {
	Mint(owner [20]byte, uri string) (uint64, error)
	TransferCustody(id uint64, from, to [20]byte) error
	CustodianOf(id uint64) ([20]byte, error)
	MintedCount() (uint64, error)
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Engine wires the marketplace lifecycle state machine with external state,
// the asset registry and an event emitter. All mutating operations run to
// completion or abort with every state, custody and balance change undone;
// balances are moved only after the record mutation has been committed so a
// transfer can never observe a half-applied transition.
type Engine struct {
	state    engineState
	registry Registry
	emitter  events.Emitter
	operator [20]byte
	vault    [20]byte
	nowFn    func() int64
}

// NewEngine creates a market engine with a no-op emitter. Callers can override
// the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistry configures the asset registry custody moves are mirrored to.
func (e *Engine) SetRegistry(registry Registry) { e.registry = registry }

// SetOperator configures the identity entitled to listing fees and fee
// updates.
func (e *Engine) SetOperator(addr [20]byte) { e.operator = addr }

// SetVault configures the marketplace custody address holding escrowed items
// and in-flight payments.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

// SetNowFunc overrides the time source used for record timestamps. Primarily
// intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Operator returns the configured marketplace operator address.
func (e *Engine) Operator() [20]byte { return e.operator }

// Vault returns the configured marketplace custody address.
func (e *Engine) Vault() [20]byte { return e.vault }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.registry == nil {
		return errNilRegistry
	}
	if e.vault == ([20]byte{}) {
		return errNilVault
	}
	if e.operator == ([20]byte{}) {
		return errNilOperator
	}
	return nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) balanceOf(addr [20]byte) (*big.Int, error) {
	acc, err := e.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return acc.Normalize().Balance, nil
}

func (e *Engine) transferValue(from, to [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("market: negative transfer amount")
	}
	if from == to {
		return nil
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = fromAcc.Normalize()
	toAcc = toAcc.Normalize()
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	prevFromBalance := fromAcc.Balance
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(to[:], toAcc); err != nil {
		// Restore the debited side so a failed credit never destroys value.
		fromAcc.Balance = prevFromBalance
		_ = e.state.PutAccount(from[:], fromAcc)
		return err
	}
	return nil
}

func (e *Engine) counters() (Counters, error) {
	counters, err := e.state.MarketCounters()
	if err != nil {
		return Counters{}, err
	}
	return counters.Clone(), nil
}

// ListingFee returns the flat fee currently owed by sellers at listing and
// relisting time.
func (e *Engine) ListingFee() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	counters, err := e.counters()
	if err != nil {
		return nil, err
	}
	return counters.ListingFee, nil
}

// SetListingFee updates the flat listing fee. Only the marketplace operator
// may call it; the new value itself is accepted unchecked.
func (e *Engine) SetListingFee(caller [20]byte, fee *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if caller != e.operator {
		return ErrUnauthorized
	}
	counters, err := e.counters()
	if err != nil {
		return err
	}
	counters.ListingFee = cloneBigInt(fee)
	if err := e.state.SetMarketCounters(counters); err != nil {
		return err
	}
	e.emit(NewFeeUpdatedEvent(counters.ListingFee))
	return nil
}

// SoldCount returns the number of records currently in the sold state.
func (e *Engine) SoldCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	counters, err := e.state.MarketCounters()
	if err != nil {
		return 0, err
	}
	return counters.SoldCount, nil
}

// Get returns a copy of the record stored for the identifier.
func (e *Engine) Get(id uint64) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	listing, ok := e.state.MarketGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	return listing.Clone(), nil
}

// CreateListing mints a fresh identifier, escrows it with the marketplace
// vault and records the listing. The attached payment must cover the listing
// fee and is retained by the vault in full.
func (e *Engine) CreateListing(seller [20]byte, uri string, price, payment *big.Int) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if price == nil || price.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}
	counters, err := e.counters()
	if err != nil {
		return 0, err
	}
	pay := cloneBigInt(payment)
	if pay.Cmp(counters.ListingFee) < 0 {
		return 0, ErrInsufficientFee
	}
	balance, err := e.balanceOf(seller)
	if err != nil {
		return 0, err
	}
	if balance.Cmp(pay) < 0 {
		return 0, ErrInsufficientBalance
	}

	id, err := e.registry.Mint(seller, uri)
	if err != nil {
		return 0, err
	}
	now := e.now()
	listing := &Listing{
		ID:        id,
		Seller:    seller,
		Price:     cloneBigInt(price),
		Status:    StatusListed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.state.MarketPut(listing); err != nil {
		return 0, err
	}
	if err := e.registry.TransferCustody(id, seller, e.vault); err != nil {
		_ = e.state.MarketDelete(id)
		return 0, err
	}
	if err := e.transferValue(seller, e.vault, pay); err != nil {
		_ = e.registry.TransferCustody(id, e.vault, seller)
		_ = e.state.MarketDelete(id)
		return 0, err
	}
	e.emit(NewListedEvent(listing, e.vault))
	return id, nil
}

// Purchase completes the sale of a listed item. The attached payment must
// equal the asking price exactly. The seller receives the full payment and
// the operator receives the listing fee out of the vault; the record and the
// registry custody move to the buyer before any value is transferred.
func (e *Engine) Purchase(buyer [20]byte, id uint64, payment *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	listing, ok := e.state.MarketGet(id)
	if !ok {
		return ErrNotFound
	}
	if listing.Status != StatusListed {
		return ErrNotListed
	}
	pay := cloneBigInt(payment)
	if listing.Price == nil || pay.Cmp(listing.Price) != 0 {
		return ErrWrongPayment
	}
	counters, err := e.counters()
	if err != nil {
		return err
	}
	buyerBalance, err := e.balanceOf(buyer)
	if err != nil {
		return err
	}
	if buyerBalance.Cmp(pay) < 0 {
		return ErrInsufficientBalance
	}
	// The fee is paid out of the vault, not deducted from the payment, so the
	// vault must already hold at least the fee.
	vaultBalance, err := e.balanceOf(e.vault)
	if err != nil {
		return err
	}
	if vaultBalance.Cmp(counters.ListingFee) < 0 {
		return ErrInsufficientBalance
	}

	prev := listing.Clone()
	prevCounters := counters.Clone()
	updated := listing.Clone()
	updated.Status = StatusSold
	updated.Holder = buyer
	updated.UpdatedAt = e.now()
	counters.SoldCount++

	if err := e.state.MarketPut(updated); err != nil {
		return err
	}
	if err := e.state.SetMarketCounters(counters); err != nil {
		e.revertRecord(prev, prevCounters)
		return err
	}
	if err := e.registry.TransferCustody(id, e.vault, buyer); err != nil {
		e.revertRecord(prev, prevCounters)
		return err
	}
	if err := e.settlePurchase(buyer, updated.Seller, pay, counters.ListingFee); err != nil {
		_ = e.registry.TransferCustody(id, buyer, e.vault)
		e.revertRecord(prev, prevCounters)
		return err
	}
	e.emit(NewSoldEvent(updated, buyer))
	return nil
}

func (e *Engine) settlePurchase(buyer, seller [20]byte, payment, fee *big.Int) error {
	if err := e.transferValue(buyer, e.vault, payment); err != nil {
		return err
	}
	if err := e.transferValue(e.vault, seller, payment); err != nil {
		_ = e.transferValue(e.vault, buyer, payment)
		return err
	}
	if err := e.transferValue(e.vault, e.operator, fee); err != nil {
		_ = e.transferValue(seller, e.vault, payment)
		_ = e.transferValue(e.vault, buyer, payment)
		return err
	}
	return nil
}

func (e *Engine) revertRecord(prev *Listing, prevCounters Counters) {
	_ = e.state.MarketPut(prev)
	_ = e.state.SetMarketCounters(prevCounters)
}

// Resell returns a sold item to the listed state. Only the current holder may
// relist, the attached payment must equal the listing fee exactly, and the
// caller becomes the seller entitled to the next sale's proceeds.
func (e *Engine) Resell(caller [20]byte, id uint64, newPrice, payment *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	listing, ok := e.state.MarketGet(id)
	if !ok {
		return ErrNotFound
	}
	if listing.Custodian(e.vault) != caller {
		return ErrNotOwner
	}
	counters, err := e.counters()
	if err != nil {
		return err
	}
	pay := cloneBigInt(payment)
	if pay.Cmp(counters.ListingFee) != 0 {
		return ErrWrongFee
	}
	if newPrice == nil || newPrice.Sign() <= 0 {
		return ErrInvalidPrice
	}
	balance, err := e.balanceOf(caller)
	if err != nil {
		return err
	}
	if balance.Cmp(pay) < 0 {
		return ErrInsufficientBalance
	}

	prev := listing.Clone()
	prevCounters := counters.Clone()
	updated := listing.Clone()
	updated.Seller = caller
	updated.Holder = [20]byte{}
	updated.Price = cloneBigInt(newPrice)
	updated.Status = StatusListed
	updated.UpdatedAt = e.now()
	if counters.SoldCount == 0 {
		return fmt.Errorf("market: sold counter underflow for listing %d", id)
	}
	counters.SoldCount--

	if err := e.state.MarketPut(updated); err != nil {
		return err
	}
	if err := e.state.SetMarketCounters(counters); err != nil {
		e.revertRecord(prev, prevCounters)
		return err
	}
	if err := e.registry.TransferCustody(id, caller, e.vault); err != nil {
		e.revertRecord(prev, prevCounters)
		return err
	}
	if err := e.transferValue(caller, e.vault, pay); err != nil {
		_ = e.registry.TransferCustody(id, e.vault, caller)
		e.revertRecord(prev, prevCounters)
		return err
	}
	e.emit(NewRelistedEvent(updated, e.vault))
	return nil
}
