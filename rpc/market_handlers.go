package rpc

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"quickart/crypto"
	"quickart/native/market"
)

const (
	codeMarketInvalidParams = -32041
	codeMarketNotFound      = -32042
	codeMarketForbidden     = -32043
	codeMarketConflict      = -32044
	codeMarketInternal      = -32045
)

type feeUpdateParams struct {
	Caller string `json:"caller"`
	Fee    string `json:"fee"`
}

type createListingParams struct {
	Caller  string `json:"caller"`
	URI     string `json:"uri,omitempty"`
	Price   string `json:"price"`
	Payment string `json:"payment"`
}

type purchaseParams struct {
	Caller  string `json:"caller"`
	ID      uint64 `json:"id"`
	Payment string `json:"payment"`
}

type resellParams struct {
	Caller  string `json:"caller"`
	ID      uint64 `json:"id"`
	Price   string `json:"price"`
	Payment string `json:"payment"`
}

type listingIDParams struct {
	ID uint64 `json:"id"`
}

type addressParams struct {
	Address string `json:"address"`
}

type listingResult struct {
	ID        uint64   `json:"id"`
	Seller    string   `json:"seller"`
	Custodian string   `json:"custodian"`
	Price     *big.Int `json:"price"`
	Sold      bool     `json:"sold"`
	Status    string   `json:"status"`
}

type createListingResult struct {
	ID uint64 `json:"id"`
}

type feeResult struct {
	Fee *big.Int `json:"fee"`
}

type balanceResult struct {
	Address string   `json:"address"`
	Balance *big.Int `json:"balance"`
}

func parseAddress(field, value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, fmt.Errorf("%s: %w", field, err)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("%s: amount required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%s: %q is not a base-10 amount", field, trimmed)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%s: amount must not be negative", field)
	}
	return amount, nil
}

func renderAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.ArtPrefix, addr[:]).String()
}

func (s *Server) renderListing(l *market.Listing) listingResult {
	custodian := l.Custodian(s.market.Vault())
	return listingResult{
		ID:        l.ID,
		Seller:    renderAddress(l.Seller),
		Custodian: renderAddress(custodian),
		Price:     l.Price,
		Sold:      l.Sold(),
		Status:    l.Status.String(),
	}
}

func (s *Server) renderListings(listings []*market.Listing) []listingResult {
	out := make([]listingResult, 0, len(listings))
	for _, l := range listings {
		out = append(out, s.renderListing(l))
	}
	return out
}

// writeMarketError translates engine sentinels into module error codes and
// HTTP statuses.
func writeMarketError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, market.ErrNotFound):
		writeError(w, http.StatusNotFound, id, codeMarketNotFound, err.Error(), nil)
	case errors.Is(err, market.ErrUnauthorized), errors.Is(err, market.ErrNotOwner):
		writeError(w, http.StatusForbidden, id, codeMarketForbidden, err.Error(), nil)
	case errors.Is(err, market.ErrNotListed), errors.Is(err, market.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, id, codeMarketConflict, err.Error(), nil)
	case errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, market.ErrInsufficientFee),
		errors.Is(err, market.ErrWrongFee),
		errors.Is(err, market.ErrWrongPayment):
		writeError(w, http.StatusBadRequest, id, codeMarketInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeMarketInternal, err.Error(), nil)
	}
}

func (s *Server) handleGetListingFee(w http.ResponseWriter, req *RPCRequest) {
	fee, err := s.market.ListingFee()
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, feeResult{Fee: fee})
}

func (s *Server) handleSetListingFee(w http.ResponseWriter, req *RPCRequest) {
	var params feeUpdateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	fee, err := parseAmount("fee", params.Fee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.market.SetListingFee(caller, fee); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, feeResult{Fee: fee})
}

func (s *Server) handleCreateListing(w http.ResponseWriter, req *RPCRequest) {
	var params createListingParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	price, err := parseAmount("price", params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	payment, err := parseAmount("payment", params.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	id, err := s.market.CreateListing(caller, params.URI, price, payment)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, createListingResult{ID: id})
}

func (s *Server) handlePurchase(w http.ResponseWriter, req *RPCRequest) {
	var params purchaseParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	payment, err := parseAmount("payment", params.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.market.Purchase(caller, params.ID, payment); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	listing, err := s.market.Get(params.ID)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.renderListing(listing))
}

func (s *Server) handleResell(w http.ResponseWriter, req *RPCRequest) {
	var params resellParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	price, err := parseAmount("price", params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	payment, err := parseAmount("payment", params.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.market.Resell(caller, params.ID, price, payment); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	listing, err := s.market.Get(params.ID)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.renderListing(listing))
}

func (s *Server) handleGetListing(w http.ResponseWriter, req *RPCRequest) {
	var params listingIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	listing, err := s.market.Get(params.ID)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.renderListing(listing))
}

func (s *Server) handleUnsoldItems(w http.ResponseWriter, req *RPCRequest) {
	listings, err := s.market.UnsoldItems()
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.renderListings(listings))
}

func (s *Server) handleMyItems(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	listings, err := s.market.ItemsOf(addr)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.renderListings(listings))
}

func (s *Server) handleMyListings(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	listings, err := s.market.ListingsOf(addr)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.renderListings(listings))
}

func (s *Server) handleBalance(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	account, err := s.state.GetAccount(addr[:])
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, balanceResult{Address: renderAddress(addr), Balance: account.Balance})
}
