package rpc

import (
	"errors"
	"net/http"

	"quickart/native/registry"
)

const (
	codeRegistryNotFound = -32051
	codeRegistryInternal = -32052
)

type custodianResult struct {
	ID        uint64 `json:"id"`
	Custodian string `json:"custodian"`
}

type tokenURIResult struct {
	ID  uint64 `json:"id"`
	URI string `json:"uri"`
}

func writeRegistryError(w http.ResponseWriter, id interface{}, err error) {
	if errors.Is(err, registry.ErrTokenNotFound) {
		writeError(w, http.StatusNotFound, id, codeRegistryNotFound, err.Error(), nil)
		return
	}
	writeError(w, http.StatusInternalServerError, id, codeRegistryInternal, err.Error(), nil)
}

func (s *Server) handleCustodianOf(w http.ResponseWriter, req *RPCRequest) {
	var params listingIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	custodian, err := s.registry.CustodianOf(params.ID)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, custodianResult{ID: params.ID, Custodian: renderAddress(custodian)})
}

func (s *Server) handleTokenURI(w http.ResponseWriter, req *RPCRequest) {
	var params listingIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	uri, err := s.registry.TokenURI(params.ID)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, tokenURIResult{ID: params.ID, URI: uri})
}
