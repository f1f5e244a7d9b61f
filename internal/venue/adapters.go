package venue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/txcodec"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue/jupiter"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue/pumpswap"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue/raydium"
)

// Deps carries the shared clients the adapters are built from.
type Deps struct {
	Jupiter  *jupiter.Client
	Raydium  *raydium.Client
	PumpSwap *pumpswap.Client

	PriorityFeeMicroLamports uint64
	Logger                   *zap.Logger
}

// ByName returns the adapter for a venue name. Matching is
// case-insensitive.
func ByName(name string, deps Deps) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "jupiter":
		if deps.Jupiter == nil {
			return nil, fmt.Errorf("jupiter client not configured")
		}
		return &jupiterAdapter{client: deps.Jupiter, priorityFee: deps.PriorityFeeMicroLamports}, nil
	case "raydium":
		if deps.Raydium == nil {
			return nil, fmt.Errorf("raydium client not configured")
		}
		return &raydiumAdapter{client: deps.Raydium, priorityFee: deps.PriorityFeeMicroLamports}, nil
	case "pumpswap":
		if deps.PumpSwap == nil {
			return nil, fmt.Errorf("pumpswap client not configured")
		}
		return &pumpSwapAdapter{client: deps.PumpSwap, priorityFee: deps.PriorityFeeMicroLamports}, nil
	default:
		return nil, fmt.Errorf("unknown venue: %q", name)
	}
}

// jupiterAdapter maps the Jupiter API onto the venue contract. Jupiter
// reports base-unit amounts as decimal strings.
type jupiterAdapter struct {
	client      *jupiter.Client
	priorityFee uint64
}

func (a *jupiterAdapter) Name() string { return "jupiter" }

func (a *jupiterAdapter) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	resp, err := a.client.Quote(ctx, req.InputMint.String(), req.OutputMint.String(), req.AmountIn, req.SlippageBps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	inAmount, err := strconv.ParseUint(resp.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad inAmount %q", ErrQuoteUnavailable, resp.InAmount)
	}
	outAmount, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad outAmount %q", ErrQuoteUnavailable, resp.OutAmount)
	}
	minOut, err := strconv.ParseUint(resp.OtherAmountThreshold, 10, 64)
	if err != nil {
		minOut = outAmount
	}
	impact, _ := strconv.ParseFloat(resp.PriceImpactPct, 64)

	return &Quote{
		Venue:       a.Name(),
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		InAmount:    inAmount,
		OutAmount:   outAmount,
		MinOut:      minOut,
		PriceImpact: impact,
		Route:       resp,
	}, nil
}

func (a *jupiterAdapter) BuildSwapTransaction(ctx context.Context, quote *Quote, owner solana.PublicKey) (txcodec.Envelope, error) {
	resp, ok := quote.Route.(*jupiter.QuoteResponse)
	if !ok {
		return txcodec.Envelope{}, fmt.Errorf("%w: quote is not a jupiter route", ErrBuildFailed)
	}
	blob, err := a.client.BuildSwap(ctx, resp, owner.String(), a.priorityFee)
	if err != nil {
		return txcodec.Envelope{}, fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}
	return txcodec.FromBase64(blob), nil
}

// raydiumAdapter maps the Raydium trade API onto the venue contract.
// Raydium returns a route array; the aggregate amounts are read from
// the first step.
type raydiumAdapter struct {
	client      *raydium.Client
	priorityFee uint64
}

func (a *raydiumAdapter) Name() string { return "raydium" }

func (a *raydiumAdapter) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	route, err := a.client.Compute(ctx, req.InputMint.String(), req.OutputMint.String(), req.AmountIn, req.SlippageBps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	head := route[0]
	inAmount, err := strconv.ParseUint(head.InputAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad inputAmount %q", ErrQuoteUnavailable, head.InputAmount)
	}
	outAmount, err := strconv.ParseUint(head.OutputAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad outputAmount %q", ErrQuoteUnavailable, head.OutputAmount)
	}
	minOut, err := strconv.ParseUint(head.OtherAmountThreshold, 10, 64)
	if err != nil {
		minOut = outAmount
	}
	impact, _ := strconv.ParseFloat(head.PriceImpactPct, 64)

	return &Quote{
		Venue:       a.Name(),
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		InAmount:    inAmount,
		OutAmount:   outAmount,
		MinOut:      minOut,
		PriceImpact: impact,
		Route:       route,
	}, nil
}

func (a *raydiumAdapter) BuildSwapTransaction(ctx context.Context, quote *Quote, owner solana.PublicKey) (txcodec.Envelope, error) {
	route, ok := quote.Route.([]raydium.RouteStep)
	if !ok {
		return txcodec.Envelope{}, fmt.Errorf("%w: quote is not a raydium route", ErrBuildFailed)
	}
	blob, err := a.client.BuildSwap(ctx, route, owner.String(), a.priorityFee)
	if err != nil {
		return txcodec.Envelope{}, fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}
	return txcodec.FromBase64(blob), nil
}

// pumpSwapAdapter prices and builds swaps on-chain, so its envelope is
// a legacy transaction rather than a server-built blob.
type pumpSwapAdapter struct {
	client      *pumpswap.Client
	priorityFee uint64
}

func (a *pumpSwapAdapter) Name() string { return "pumpswap" }

func (a *pumpSwapAdapter) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	plan, err := a.client.Quote(ctx, req.InputMint, req.OutputMint, req.AmountIn, req.SlippageBps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	return &Quote{
		Venue:      a.Name(),
		InputMint:  req.InputMint,
		OutputMint: req.OutputMint,
		InAmount:   req.AmountIn,
		OutAmount:  plan.ExpectedOut,
		MinOut:     plan.MinOut,
		Route:      plan,
	}, nil
}

func (a *pumpSwapAdapter) BuildSwapTransaction(ctx context.Context, quote *Quote, owner solana.PublicKey) (txcodec.Envelope, error) {
	plan, ok := quote.Route.(*pumpswap.SwapPlan)
	if !ok {
		return txcodec.Envelope{}, fmt.Errorf("%w: quote is not a pumpswap plan", ErrBuildFailed)
	}
	tx, err := a.client.BuildSwap(ctx, plan, owner, a.priorityFee)
	if err != nil {
		return txcodec.Envelope{}, fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}
	return txcodec.FromLegacy(tx), nil
}
