package registry

import (
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"quickart/core/events"
	"quickart/core/types"
)

var (
	errNilState = errors.New("registry engine: state not configured")

	// ErrTokenNotFound is returned when no token exists for an identifier.
	ErrTokenNotFound = errors.New("registry: token not found")
	// ErrNotCustodian rejects a custody transfer whose from-party does not
	// currently hold the token.
	ErrNotCustodian = errors.New("registry: transfer from non-custodian")
)

// Token is the registry's record of a single minted asset. Identifiers start
// at 1, increase monotonically and are never reused; the URI is opaque
// metadata attached at mint time.
type Token struct {
	ID       uint64   `json:"id"`
	Owner    [20]byte `json:"owner"`
	URI      string   `json:"uri"`
	MintedAt int64    `json:"mintedAt"`
}

// Clone returns a copy callers can mutate safely.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

type engineState interface {
	TokenPut(*Token) error
	TokenGet(id uint64) (*Token, bool)
	TokenCount() (uint64, error)
	SetTokenCount(uint64) error
}

const (
	EventTypeTokenMinted      = "registry.minted"
	EventTypeTokenTransferred = "registry.transferred"
)

type registryEvent struct {
	evt *types.Event
}

func (e registryEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e registryEvent) Event() *types.Event { return e.evt }

// Engine implements identifier issuance and raw custody transfer. It knows
// nothing about listings, prices or fees; the market engine layers those on
// top and mirrors every custody move through here.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a registry engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for mint timestamps. Primarily
// intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(registryEvent{evt: event})
}

// Mint issues the next identifier to the owner and attaches the metadata URI.
func (e *Engine) Mint(owner [20]byte, uri string) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	count, err := e.state.TokenCount()
	if err != nil {
		return 0, err
	}
	id := count + 1
	token := &Token{ID: id, Owner: owner, URI: uri, MintedAt: e.nowFn()}
	if err := e.state.TokenPut(token); err != nil {
		return 0, err
	}
	if err := e.state.SetTokenCount(id); err != nil {
		return 0, err
	}
	e.emit(&types.Event{Type: EventTypeTokenMinted, Attributes: map[string]string{
		"id":    strconv.FormatUint(id, 10),
		"owner": hex.EncodeToString(owner[:]),
	}})
	return id, nil
}

// TransferCustody moves the token from its current holder to another party.
// The from-party must match the recorded holder.
func (e *Engine) TransferCustody(id uint64, from, to [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	token, ok := e.state.TokenGet(id)
	if !ok {
		return ErrTokenNotFound
	}
	if token.Owner != from {
		return ErrNotCustodian
	}
	updated := token.Clone()
	updated.Owner = to
	if err := e.state.TokenPut(updated); err != nil {
		return err
	}
	e.emit(&types.Event{Type: EventTypeTokenTransferred, Attributes: map[string]string{
		"id":   strconv.FormatUint(id, 10),
		"from": hex.EncodeToString(from[:]),
		"to":   hex.EncodeToString(to[:]),
	}})
	return nil
}

// CustodianOf returns the party currently holding the token.
func (e *Engine) CustodianOf(id uint64) ([20]byte, error) {
	if e == nil || e.state == nil {
		return [20]byte{}, errNilState
	}
	token, ok := e.state.TokenGet(id)
	if !ok {
		return [20]byte{}, ErrTokenNotFound
	}
	return token.Owner, nil
}

// TokenURI returns the opaque metadata reference attached at mint time.
func (e *Engine) TokenURI(id uint64) (string, error) {
	if e == nil || e.state == nil {
		return "", errNilState
	}
	token, ok := e.state.TokenGet(id)
	if !ok {
		return "", ErrTokenNotFound
	}
	return token.URI, nil
}

// MintedCount returns the highest identifier issued so far.
func (e *Engine) MintedCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.TokenCount()
}
