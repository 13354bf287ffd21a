package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"quickart/core/state"
	"quickart/core/types"
	"quickart/crypto"
	"quickart/native/market"
	"quickart/native/registry"
	"quickart/storage"
)

type testHarness struct {
	server   *httptest.Server
	rpc      *Server
	manager  *state.Manager
	operator [20]byte
	seller   [20]byte
	buyer    [20]byte
}

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func bech(addr [20]byte) string {
	return crypto.NewAddress(crypto.ArtPrefix, addr[:]).String()
}

func newTestHarness(t *testing.T, fee int64) *testHarness {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	if err := manager.InitializeMarketCounters(big.NewInt(fee)); err != nil {
		t.Fatalf("seed counters: %v", err)
	}

	operator := testAddress(0x01)
	vault := testAddress(0xFE)
	seller := testAddress(0xA1)
	buyer := testAddress(0xB2)

	reg := registry.NewEngine()
	reg.SetState(manager)
	engine := market.NewEngine()
	engine.SetState(manager)
	engine.SetRegistry(reg)
	engine.SetOperator(operator)
	engine.SetVault(vault)

	rpcServer := NewServer(engine, reg, manager)
	ts := httptest.NewServer(rpcServer.Router())
	t.Cleanup(ts.Close)

	return &testHarness{
		server:   ts,
		rpc:      rpcServer,
		manager:  manager,
		operator: operator,
		seller:   seller,
		buyer:    buyer,
	}
}

func (h *testHarness) fund(t *testing.T, addr [20]byte, amount int64) {
	t.Helper()
	if err := h.manager.PutAccount(addr[:], &types.Account{Balance: big.NewInt(amount)}); err != nil {
		t.Fatalf("fund account: %v", err)
	}
}

func (h *testHarness) call(t *testing.T, method string, params interface{}) (*RPCResponse, int) {
	t.Helper()
	req := map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      1,
		"method":  method,
	}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(h.server.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()
	var rpcResp RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &rpcResp, resp.StatusCode
}

func decodeResult(t *testing.T, resp *RPCResponse, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-marshal result: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func TestListingLifecycleOverRPC(t *testing.T) {
	h := newTestHarness(t, 100)
	h.fund(t, h.seller, 100)
	h.fund(t, h.buyer, 1_100)

	resp, status := h.call(t, "market_createListing", map[string]string{
		"caller":  bech(h.seller),
		"uri":     "ipfs://art/1",
		"price":   "1000",
		"payment": "100",
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("create listing failed: %d %+v", status, resp.Error)
	}
	var created createListingResult
	decodeResult(t, resp, &created)
	if created.ID != 1 {
		t.Fatalf("expected identifier 1, got %d", created.ID)
	}

	resp, status = h.call(t, "market_unsoldItems", nil)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("unsold items failed: %d %+v", status, resp.Error)
	}
	var unsold []listingResult
	decodeResult(t, resp, &unsold)
	if len(unsold) != 1 || unsold[0].Sold {
		t.Fatalf("expected one unsold listing, got %+v", unsold)
	}

	resp, status = h.call(t, "market_purchase", map[string]interface{}{
		"caller":  bech(h.buyer),
		"id":      created.ID,
		"payment": "1000",
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("purchase failed: %d %+v", status, resp.Error)
	}
	var purchased listingResult
	decodeResult(t, resp, &purchased)
	if !purchased.Sold || purchased.Custodian != bech(h.buyer) {
		t.Fatalf("purchase result mismatch: %+v", purchased)
	}

	resp, status = h.call(t, "market_balance", map[string]string{"address": bech(h.seller)})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("balance query failed: %d %+v", status, resp.Error)
	}
	var balance balanceResult
	decodeResult(t, resp, &balance)
	if balance.Balance.Int64() != 1_000 {
		t.Fatalf("seller must receive the full payment, got %s", balance.Balance)
	}

	resp, status = h.call(t, "registry_custodianOf", map[string]interface{}{"id": created.ID})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("custodian query failed: %d %+v", status, resp.Error)
	}
	var custodian custodianResult
	decodeResult(t, resp, &custodian)
	if custodian.Custodian != bech(h.buyer) {
		t.Fatalf("registry custodian mismatch: %+v", custodian)
	}

	resp, status = h.call(t, "market_resell", map[string]interface{}{
		"caller":  bech(h.buyer),
		"id":      created.ID,
		"price":   "2000",
		"payment": "100",
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("resell failed: %d %+v", status, resp.Error)
	}
	var relisted listingResult
	decodeResult(t, resp, &relisted)
	if relisted.Sold || relisted.Seller != bech(h.buyer) {
		t.Fatalf("resell result mismatch: %+v", relisted)
	}
}

func TestRPCErrorMapping(t *testing.T) {
	h := newTestHarness(t, 100)
	h.fund(t, h.seller, 1_000)

	resp, status := h.call(t, "market_createListing", map[string]string{
		"caller":  bech(h.seller),
		"price":   "0",
		"payment": "100",
	})
	if status != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != codeMarketInvalidParams {
		t.Fatalf("zero price must map to invalid params, got %d %+v", status, resp.Error)
	}

	resp, status = h.call(t, "market_get", map[string]interface{}{"id": 404})
	if status != http.StatusNotFound || resp.Error == nil || resp.Error.Code != codeMarketNotFound {
		t.Fatalf("unknown listing must map to not found, got %d %+v", status, resp.Error)
	}

	resp, status = h.call(t, "market_setListingFee", map[string]string{
		"caller": bech(h.seller),
		"fee":    "250",
	})
	if status != http.StatusForbidden || resp.Error == nil || resp.Error.Code != codeMarketForbidden {
		t.Fatalf("non-operator fee update must map to forbidden, got %d %+v", status, resp.Error)
	}

	resp, status = h.call(t, "market_unknownMethod", nil)
	if status != http.StatusNotFound || resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("unknown method must map to method-not-found, got %d %+v", status, resp.Error)
	}
}

func TestMutatingMethodsRequireBearerToken(t *testing.T) {
	t.Setenv(authTokenEnv, "secret-token")

	h := newTestHarness(t, 0)
	h.fund(t, h.seller, 100)

	resp, status := h.call(t, "market_createListing", map[string]string{
		"caller":  bech(h.seller),
		"price":   "10",
		"payment": "0",
	})
	if status != http.StatusUnauthorized || resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("write without token must be rejected, got %d %+v", status, resp.Error)
	}

	// Reads stay open.
	resp, status = h.call(t, "market_getListingFee", nil)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("read with token configured must succeed, got %d %+v", status, resp.Error)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      1,
		"method":  "market_createListing",
		"params": []interface{}{map[string]string{
			"caller":  bech(h.seller),
			"price":   "10",
			"payment": "0",
		}},
	})
	req, err := http.NewRequest(http.MethodPost, h.server.URL, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret-token")
	httpResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authorized request: %v", err)
	}
	defer httpResp.Body.Close()
	var rpcResp RPCResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if httpResp.StatusCode != http.StatusOK || rpcResp.Error != nil {
		t.Fatalf("authorized write must succeed, got %d %+v", httpResp.StatusCode, rpcResp.Error)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	h := newTestHarness(t, 0)

	resp, err := http.Get(h.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz must return 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(h.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics must return 200, got %d", resp.StatusCode)
	}
}

func TestMutatingMethodsAreRateLimited(t *testing.T) {
	h := newTestHarness(t, 0)
	// Burst of one with no refill, so only the first write is admitted.
	h.rpc.SetWriteLimiter(rate.NewLimiter(0, 1))

	params := feeUpdateParams{Caller: bech(h.operator), Fee: "250"}
	resp, status := h.call(t, "market_setListingFee", params)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("first write must pass, got %d %+v", status, resp.Error)
	}

	resp, status = h.call(t, "market_setListingFee", params)
	if status != http.StatusTooManyRequests {
		t.Fatalf("throttled write must return 429, got %d", status)
	}
	if resp.Error == nil || resp.Error.Code != codeRateLimited {
		t.Fatalf("throttled write must carry code %d, got %+v", codeRateLimited, resp.Error)
	}

	// Read methods bypass the limiter entirely.
	resp, status = h.call(t, "market_getListingFee", nil)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("reads must not be throttled, got %d %+v", status, resp.Error)
	}
}
