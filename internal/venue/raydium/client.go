// Package raydium talks to the Raydium trade API. Quotes come back as
// a route array and the aggregate amounts live on the first element.
package raydium

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue/httpx"
)

const DefaultBaseURL = "https://transaction-v1.raydium.io"

type Client struct {
	baseURL string
	http    *httpx.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, http *httpx.Client, logger *zap.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    http,
		logger:  logger.With(zap.String("venue", "raydium")),
	}
}

// Compute prices an ExactIn swap. The returned slice is the full route;
// callers read the first step for the route-level amounts.
func (c *Client) Compute(ctx context.Context, inputMint, outputMint string, amount, slippageBps uint64) ([]RouteStep, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.FormatUint(slippageBps, 10))
	q.Set("txVersion", "V0")

	var resp computeResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/compute/swap-base-in?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("raydium compute: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("raydium compute rejected: %s", resp.Msg)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("raydium compute: empty route for %s -> %s", inputMint, outputMint)
	}

	c.logger.Debug("route computed",
		zap.String("output_amount", resp.Data[0].OutputAmount),
		zap.Int("route_steps", len(resp.Data)))
	return resp.Data, nil
}

// BuildSwap exchanges a computed route for a base64-encoded unsigned
// V0 transaction.
func (c *Client) BuildSwap(ctx context.Context, route []RouteStep, owner string, priorityFeeMicroLamports uint64) (string, error) {
	if len(route) == 0 {
		return "", fmt.Errorf("raydium swap build: empty route")
	}
	req := transactionRequest{
		ComputeUnitPriceMicroLamports: strconv.FormatUint(priorityFeeMicroLamports, 10),
		SwapResponse:                  route,
		TxVersion:                     "V0",
		Wallet:                        owner,
		WrapSol:                       true,
		UnwrapSol:                     true,
	}

	var resp transactionResponse
	if err := c.http.PostJSON(ctx, c.baseURL+"/transaction/swap-base-in", req, &resp); err != nil {
		return "", fmt.Errorf("raydium swap build: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("raydium swap build rejected: %s", resp.Msg)
	}
	if len(resp.Data) == 0 || resp.Data[0].Transaction == "" {
		return "", fmt.Errorf("raydium swap build: empty transaction")
	}
	return resp.Data[0].Transaction, nil
}
