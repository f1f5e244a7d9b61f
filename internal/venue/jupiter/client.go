// Package jupiter talks to the Jupiter swap API (quote + server-built
// versioned transactions).
package jupiter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue/httpx"
)

const DefaultBaseURL = "https://api.jup.ag/swap/v1"

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
		logger:  logger.With(zap.String("venue", "jupiter")),
	}
}

// Quote fetches an ExactIn route for the pair. Amount is base units
// of the input mint.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint string, amount, slippageBps uint64) (*QuoteResponse, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.FormatUint(slippageBps, 10))
	q.Set("swapMode", "ExactIn")

	var resp QuoteResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/quote?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	if resp.OutAmount == "" || len(resp.RoutePlan) == 0 {
		return nil, fmt.Errorf("jupiter quote: empty route for %s -> %s", inputMint, outputMint)
	}

	c.logger.Debug("quote received",
		zap.String("in_amount", resp.InAmount),
		zap.String("out_amount", resp.OutAmount),
		zap.Int("route_hops", len(resp.RoutePlan)))
	return &resp, nil
}

// BuildSwap exchanges a quote for a base64-encoded unsigned versioned
// transaction built server-side for the given owner.
func (c *Client) BuildSwap(ctx context.Context, quote *QuoteResponse, owner string, priorityFeeMicroLamports uint64) (string, error) {
	req := swapRequest{
		QuoteResponse:             quote,
		UserPublicKey:             owner,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: priorityFeeMicroLamports,
	}

	var resp swapResponse
	if err := c.http.PostJSON(ctx, c.baseURL+"/swap", req, &resp); err != nil {
		return "", fmt.Errorf("jupiter swap build: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("jupiter swap build: %s", resp.Error)
	}
	if resp.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter swap build: empty transaction")
	}
	return resp.SwapTransaction, nil
}
