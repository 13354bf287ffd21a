package rpc

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"quickart/core/state"
	"quickart/native/market"
	"quickart/native/registry"
	"quickart/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB

	authTokenEnv = "QUICKART_RPC_TOKEN"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

const (
	defaultWritePerSecond = 25
	defaultWriteBurst     = 50
)

// Server exposes the marketplace ledger and the asset registry over JSON-RPC.
type Server struct {
	market       *market.Engine
	registry     *registry.Engine
	state        *state.Manager
	authToken    string
	writeLimiter *rate.Limiter
}

// NewServer wires a server around the engines and the state manager. Mutating
// methods require the bearer token from QUICKART_RPC_TOKEN when one is set and
// are throttled by a process-wide rate limiter.
func NewServer(marketEngine *market.Engine, registryEngine *registry.Engine, manager *state.Manager) *Server {
	token := strings.TrimSpace(os.Getenv(authTokenEnv))
	return &Server{
		market:       marketEngine,
		registry:     registryEngine,
		state:        manager,
		authToken:    token,
		writeLimiter: rate.NewLimiter(rate.Limit(defaultWritePerSecond), defaultWriteBurst),
	}
}

// SetWriteLimiter overrides the limiter applied to mutating methods. Passing
// nil disables write throttling.
func (s *Server) SetWriteLimiter(limiter *rate.Limiter) {
	s.writeLimiter = limiter
}

// Router assembles the HTTP surface: the JSON-RPC endpoint plus the
// prometheus scrape endpoint and a liveness probe.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Start serves the router on the given address and blocks.
func (s *Server) Start(addr string) error {
	fmt.Printf("Starting JSON-RPC server on %s\n", addr)
	return http.ListenAndServe(addr, s.Router())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// rpcCapture buffers the response of a single handler so the dispatcher can
// record the final status in the module metrics.
type rpcCapture struct {
	http.ResponseWriter
	status int
}

func (c *rpcCapture) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func mutatingMethod(method string) bool {
	switch method {
	case "market_setListingFee", "market_createListing", "market_purchase", "market_resell":
		return true
	default:
		return false
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	return header == "Bearer "+s.authToken
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON-RPC request", nil)
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported JSON-RPC version", nil)
		return
	}
	if mutatingMethod(req.Method) {
		if !s.authorized(r) {
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "missing or invalid bearer token", nil)
			return
		}
		if s.writeLimiter != nil && !s.writeLimiter.Allow() {
			writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
			return
		}
	}

	module := "rpc"
	if idx := strings.IndexByte(req.Method, '_'); idx > 0 {
		module = req.Method[:idx]
	}
	capture := &rpcCapture{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	s.dispatch(capture, &req)
	observability.ModuleMetrics().Observe(module, req.Method, capture.status, time.Since(start))
}

func (s *Server) dispatch(w http.ResponseWriter, req *RPCRequest) {
	switch req.Method {
	case "market_getListingFee":
		s.handleGetListingFee(w, req)
	case "market_setListingFee":
		s.handleSetListingFee(w, req)
	case "market_createListing":
		s.handleCreateListing(w, req)
	case "market_purchase":
		s.handlePurchase(w, req)
	case "market_resell":
		s.handleResell(w, req)
	case "market_get":
		s.handleGetListing(w, req)
	case "market_unsoldItems":
		s.handleUnsoldItems(w, req)
	case "market_myItems":
		s.handleMyItems(w, req)
	case "market_myListings":
		s.handleMyListings(w, req)
	case "market_balance":
		s.handleBalance(w, req)
	case "registry_custodianOf":
		s.handleCustodianOf(w, req)
	case "registry_tokenURI":
		s.handleTokenURI(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) == 0 {
		return fmt.Errorf("missing params object")
	}
	if len(req.Params) != 1 {
		return fmt.Errorf("expected a single params object")
	}
	return json.Unmarshal(req.Params[0], out)
}
