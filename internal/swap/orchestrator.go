// Package swap sequences quote, build, normalize and sign-and-send
// into one venue-agnostic entry point.
package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/events"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/fee"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/gateway"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/metrics"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/txcodec"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/wallet"
)

// Request describes one swap. Amounts are base units of the input mint.
type Request struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	AmountIn    uint64
	SlippageBps uint64

	// Status receives lifecycle updates; delivery is best-effort.
	Status gateway.StatusFunc
}

// Result is the outcome of one ExecuteSwap call. Signature is set for
// every outcome at or past broadcast, including timeouts, so callers
// can poll later.
type Result struct {
	Success   bool
	State     gateway.State
	Signature solana.Signature
	Quote     *venue.Quote
	InAmount  uint64
	OutAmount uint64
	Err       *Error

	// Fee reports the post-swap fee collection attempt. It never
	// affects Success.
	Fee *fee.Record
}

// Orchestrator wires the session, codec, gateway and fee collector
// behind one ExecuteSwap entry point. Each call is self-contained;
// concurrent calls share nothing but the RPC client.
type Orchestrator struct {
	session   *wallet.Session
	codec     *txcodec.Codec
	gateway   *gateway.Gateway
	blockhash txcodec.BlockhashFunc
	fees      *fee.Collector
	bus       *events.Bus
	logger    *zap.Logger
	recorder  metrics.Recorder
}

func NewOrchestrator(
	session *wallet.Session,
	codec *txcodec.Codec,
	gw *gateway.Gateway,
	blockhash txcodec.BlockhashFunc,
	fees *fee.Collector,
	bus *events.Bus,
	logger *zap.Logger,
	recorder metrics.Recorder,
) *Orchestrator {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Orchestrator{
		session:   session,
		codec:     codec,
		gateway:   gw,
		blockhash: blockhash,
		fees:      fees,
		bus:       bus,
		logger:    logger.Named("swap"),
		recorder:  recorder,
	}
}

// ExecuteSwap runs quote, build, normalize and sign-and-send in strict
// order, short-circuiting on the first failure. Failures at or past
// broadcast keep the signature and surface as a timeout rather than a
// failure, because the transaction may still land.
func (o *Orchestrator) ExecuteSwap(ctx context.Context, adapter venue.Adapter, req Request) *Result {
	start := time.Now()
	log := o.logger.With(
		zap.String("venue", adapter.Name()),
		zap.String("input_mint", req.InputMint.String()),
		zap.String("output_mint", req.OutputMint.String()),
		zap.Uint64("amount_in", req.AmountIn),
	)

	snap := o.session.Snapshot()
	if snap.Capability == nil {
		return o.fail(adapter, start, newError(KindWalletNotConnected, errors.New("no wallet capability available")))
	}
	if !snap.Capability.CanSign() {
		return o.fail(adapter, start, newError(KindWalletNotConnected,
			fmt.Errorf("capability %s is watch-only", snap.Capability.Kind())))
	}
	owner := snap.Capability.PublicKey()

	quote, err := adapter.GetQuote(ctx, venue.QuoteRequest{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		AmountIn:    req.AmountIn,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		log.Warn("quote failed", zap.Error(err))
		return o.fail(adapter, start, classifyVenueErr(err))
	}
	log.Info("quote received",
		zap.Uint64("out_amount", quote.OutAmount),
		zap.Uint64("min_out", quote.MinOut))

	env, err := adapter.BuildSwapTransaction(ctx, quote, owner)
	if err != nil {
		log.Warn("swap build failed", zap.Error(err))
		res := o.fail(adapter, start, classifyVenueErr(err))
		res.Quote = quote
		return res
	}

	ntx, err := o.codec.Normalize(ctx, env, owner, o.blockhash)
	if err != nil {
		log.Warn("normalize failed", zap.Error(err))
		res := o.fail(adapter, start, newError(KindMalformedTransaction, err))
		res.Quote = quote
		return res
	}

	// A wallet switch after the snapshot must fail this operation
	// rather than sign with a capability the user no longer holds.
	if o.session.Epoch() != snap.Epoch {
		res := o.fail(adapter, start, newError(KindWalletNotConnected,
			errors.New("wallet changed while swap was in flight")))
		res.Quote = quote
		return res
	}

	receipt := o.gateway.Send(ctx, snap.Capability, ntx, req.Status)

	result := &Result{
		State:     receipt.State,
		Signature: receipt.Signature,
		Quote:     quote,
		InAmount:  quote.InAmount,
	}

	switch receipt.State {
	case gateway.StateConfirmed:
		result.Success = true
		result.OutAmount = quote.OutAmount
	case gateway.StateTimedOut:
		result.Err = newError(KindConfirmationTimeout, receipt.Err)
	default:
		result.Err = classifyGatewayErr(receipt.Err)
	}

	o.recorder.RecordSwap(adapter.Name(), receipt.State.String(), time.Since(start))
	o.publishOutcome(adapter.Name(), req, result)

	if result.Success && o.fees != nil {
		// The swap result is already final. Fee collection runs on a
		// detached context so caller cancellation cannot interrupt it.
		result.Fee = o.fees.MaybeCollect(context.WithoutCancel(ctx), result.OutAmount, snap.Capability, req.Status)
		if result.Fee.Err != nil {
			log.Warn("fee collection failed", zap.Error(result.Fee.Err))
		}
		o.publishFee(result.Fee)
	}

	if result.Success {
		log.Info("swap confirmed",
			zap.String("signature", receipt.Signature.String()),
			zap.Uint64("out_amount", result.OutAmount),
			zap.Duration("elapsed", time.Since(start)))
	} else {
		log.Warn("swap did not confirm",
			zap.Stringer("state", receipt.State),
			zap.Error(result.Err))
	}
	return result
}

func (o *Orchestrator) publishOutcome(venueName string, req Request, result *Result) {
	if o.bus == nil {
		return
	}
	var t events.EventType
	var errMsg string
	switch result.State {
	case gateway.StateConfirmed:
		t = events.SwapConfirmed
	case gateway.StateTimedOut:
		t = events.SwapTimedOut
	default:
		t = events.SwapFailed
	}
	if result.Err != nil {
		errMsg = result.Err.Error()
	}
	_ = o.bus.Publish(events.NewSwapEvent(t, venueName, result.Signature,
		req.InputMint, req.OutputMint, req.AmountIn, result.OutAmount, errMsg))
}

func (o *Orchestrator) publishFee(rec *fee.Record) {
	if o.bus == nil || rec == nil || !rec.Attempted {
		return
	}
	t := events.FeeCollected
	var errMsg string
	if rec.Err != nil {
		t = events.FeeFailed
		errMsg = rec.Err.Error()
	}
	_ = o.bus.Publish(events.NewFeeEvent(t, rec.Amount, rec.Recipient, rec.Signature, errMsg))
}

func (o *Orchestrator) fail(adapter venue.Adapter, start time.Time, err *Error) *Result {
	o.recorder.RecordSwap(adapter.Name(), err.Kind.String(), time.Since(start))
	return &Result{State: gateway.StateFailed, Err: err}
}

func classifyVenueErr(err error) *Error {
	switch {
	case errors.Is(err, venue.ErrQuoteUnavailable):
		return newError(KindQuoteUnavailable, err)
	case errors.Is(err, venue.ErrBuildFailed):
		return newError(KindBuildFailed, err)
	default:
		return newError(KindInternal, err)
	}
}

func classifyGatewayErr(err error) *Error {
	switch {
	case errors.Is(err, wallet.ErrSigningDeclined):
		return newError(KindSigningDeclined, err)
	case errors.Is(err, wallet.ErrNoSigner):
		return newError(KindWalletNotConnected, err)
	case errors.Is(err, gateway.ErrOnChainFailure):
		return newError(KindOnChainFailure, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newError(KindInternal, err)
	default:
		return newError(KindInternal, err)
	}
}
