package raydium

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue/httpx"
)

const (
	wsol = "So11111111111111111111111111111111111111112"
	ray  = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"
)

func testRoute() []RouteStep {
	return []RouteStep{{
		SwapType:             "BaseIn",
		InputMint:            wsol,
		OutputMint:           ray,
		InputAmount:          "1000000000",
		OutputAmount:         "420000000",
		OtherAmountThreshold: "415800000",
		SlippageBps:          100,
		PriceImpactPct:       "0.05",
	}}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, httpx.New(zap.NewNop(), httpx.WithRetries(0)), zap.NewNop())
}

func TestCompute(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/compute/swap-base-in", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, wsol, q.Get("inputMint"))
		assert.Equal(t, ray, q.Get("outputMint"))
		assert.Equal(t, "1000000000", q.Get("amount"))
		assert.Equal(t, "V0", q.Get("txVersion"))
		_ = json.NewEncoder(w).Encode(computeResponse{Success: true, Data: testRoute()})
	})

	route, err := c.Compute(context.Background(), wsol, ray, 1_000_000_000, 100)
	require.NoError(t, err)
	require.Len(t, route, 1)
	assert.Equal(t, "420000000", route[0].OutputAmount)
}

func TestComputeRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(computeResponse{Success: false, Msg: "insufficient liquidity"})
	})

	_, err := c.Compute(context.Background(), wsol, ray, 1_000_000_000, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient liquidity")
}

func TestComputeEmptyRoute(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(computeResponse{Success: true})
	})

	_, err := c.Compute(context.Background(), wsol, ray, 1_000_000_000, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty route")
}

func TestBuildSwap(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/swap-base-in", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req transactionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "V0", req.TxVersion)
		assert.Equal(t, "owner", req.Wallet)
		assert.Equal(t, "1000", req.ComputeUnitPriceMicroLamports)
		assert.True(t, req.WrapSol)
		assert.True(t, req.UnwrapSol)
		require.Len(t, req.SwapResponse, 1)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []map[string]string{{"transaction": "dHgtYmxvYg=="}},
		})
	})

	blob, err := c.BuildSwap(context.Background(), testRoute(), "owner", 1000)
	require.NoError(t, err)
	assert.Equal(t, "dHgtYmxvYg==", blob)
}

func TestBuildSwapRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "msg": "stale route"})
	})

	_, err := c.BuildSwap(context.Background(), testRoute(), "owner", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stale route")
}

func TestBuildSwapEmptyRoute(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty route")
	})

	_, err := c.BuildSwap(context.Background(), nil, "owner", 0)
	require.Error(t, err)
}
