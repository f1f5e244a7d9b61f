// Package venue defines the aggregator contract shared by the swap
// orchestrator and the per-venue clients under the subpackages.
package venue

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/txcodec"
)

var (
	// ErrQuoteUnavailable marks a quote request the venue rejected or
	// could not serve. Retrying the same venue is allowed; switching
	// venues is the caller's decision, never the adapter's.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrBuildFailed marks a swap-build request that did not produce a
	// usable transaction.
	ErrBuildFailed = errors.New("swap build failed")
)

// QuoteRequest describes one swap leg. Amounts are base units of the
// input mint.
type QuoteRequest struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	AmountIn    uint64
	SlippageBps uint64
}

// Quote is the venue-neutral result of a quote request. InAmount and
// OutAmount are base units regardless of how the venue reports them.
// Route carries the venue's raw quote payload and is passed back
// untouched to BuildSwapTransaction.
type Quote struct {
	Venue       string
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	InAmount    uint64
	OutAmount   uint64
	MinOut      uint64
	PriceImpact float64
	Route       any
}

// Adapter is implemented once per venue. BuildSwapTransaction returns
// an unsigned transaction envelope; the codec normalizes it before
// signing, so adapters are free to return whichever wire shape their
// venue produces.
type Adapter interface {
	Name() string
	GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error)
	BuildSwapTransaction(ctx context.Context, quote *Quote, owner solana.PublicKey) (txcodec.Envelope, error)
}
