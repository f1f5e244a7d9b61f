// Package gateway drives one transaction through sign → broadcast → confirm
// against a wallet capability and an RPC connection.
//
// The state machine distinguishes TimedOut from Failed on purpose: a timed
// out transaction may still land later, so callers must treat it as an
// unknown outcome keyed by signature, never as "did not happen".
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/chain"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/metrics"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/txcodec"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/wallet"
)

var (
	// ErrConfirmationTimeout means the retry budget was exhausted without a
	// definitive status. The transaction may still land; the signature in
	// the receipt stays valid for follow-up checks.
	ErrConfirmationTimeout = errors.New("confirmation timed out")
	// ErrOnChainFailure means the cluster executed the transaction and it
	// failed.
	ErrOnChainFailure = errors.New("transaction failed on chain")
)

// StatusFunc receives human-readable progress updates. Delivery is
// best-effort and fire-and-forget; errors or panics inside the callback are
// swallowed and logged, never propagated into the gateway.
type StatusFunc func(status string)

// ChainRPC is the slice of the RPC connection the gateway uses.
type ChainRPC interface {
	SendRawTransaction(ctx context.Context, raw []byte, opts chain.SendOptions) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	Commitment() rpc.CommitmentType
}

// Config bounds the confirmation loop. Zero values fall back to defaults.
type Config struct {
	// ConfirmRetries is the polling budget after broadcast.
	ConfirmRetries int
	// ConfirmDelay is the wait between polls.
	ConfirmDelay time.Duration
	// FollowUpChecks bounds the post-timeout re-verification pass that
	// searches transaction history before giving up.
	FollowUpChecks int
	SkipPreflight  bool
}

func (c *Config) applyDefaults() {
	if c.ConfirmRetries <= 0 {
		c.ConfirmRetries = 3
	}
	if c.ConfirmDelay <= 0 {
		c.ConfirmDelay = 2 * time.Second
	}
	if c.FollowUpChecks < 0 {
		c.FollowUpChecks = 0
	}
}

// Receipt is the terminal outcome of one Send call. Signature is populated
// on every path that reached broadcast, including failures after it.
type Receipt struct {
	State     State
	Signature solana.Signature
	Err       error
}

type Gateway struct {
	client   ChainRPC
	logger   *zap.Logger
	recorder metrics.Recorder
	cfg      Config
}

func New(client ChainRPC, cfg Config, logger *zap.Logger, recorder metrics.Recorder) *Gateway {
	cfg.applyDefaults()
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Gateway{
		client:   client,
		logger:   logger.Named("signing-gateway"),
		recorder: recorder,
		cfg:      cfg,
	}
}

// Send drives a normalized transaction to a terminal state. The caller's
// context is honored before every suspension point up to broadcast; once the
// transaction is live on chain, cancellation no longer stops confirmation;
// the result is still computed and surfaced through the status callback.
func (g *Gateway) Send(ctx context.Context, capability wallet.Capability, ntx *txcodec.Normalized, status StatusFunc) *Receipt {
	emit := g.emitter(status)

	emit("Transaction prepared")
	g.logger.Debug("Entering prepared state", zap.String("kind", ntx.Kind.String()))

	if err := ctx.Err(); err != nil {
		return g.failed(emit, solana.Signature{}, err)
	}

	signer, err := capability.AcquireSigner(ctx)
	if err != nil {
		return g.failed(emit, solana.Signature{}, err)
	}

	emit("Awaiting wallet approval...")

	var sig solana.Signature
	if broadcaster, ok := signer.(wallet.Broadcaster); ok {
		// Provider broadcasts internally; approval and submission
		// collapse into one suspension point.
		sig, err = broadcaster.SignAndSendTransaction(ctx, ntx.Tx)
		if err != nil {
			return g.failed(emit, solana.Signature{}, err)
		}
	} else {
		if err := signer.SignTransaction(ctx, ntx.Tx); err != nil {
			return g.failed(emit, solana.Signature{}, err)
		}

		// Last cancellation checkpoint before the irreversible step.
		if err := ctx.Err(); err != nil {
			return g.failed(emit, solana.Signature{}, err)
		}

		raw, err := ntx.Raw()
		if err != nil {
			return g.failed(emit, solana.Signature{}, fmt.Errorf("failed to serialize transaction: %w", err))
		}

		sig, err = g.client.SendRawTransaction(ctx, raw, chain.SendOptions{
			SkipPreflight:       g.cfg.SkipPreflight,
			PreflightCommitment: rpc.CommitmentProcessed,
		})
		if err != nil {
			return g.failed(emit, solana.Signature{}, err)
		}
	}

	emit("Transaction submitted: " + sig.String())
	g.logger.Info("Transaction submitted", zap.String("signature", sig.String()))
	emit("Confirming transaction...")

	// The transaction is live regardless of caller interest from here on.
	return g.confirm(context.WithoutCancel(ctx), sig, emit)
}

func (g *Gateway) confirm(ctx context.Context, sig solana.Signature, emit StatusFunc) *Receipt {
	start := time.Now()
	ticker := time.NewTicker(g.cfg.ConfirmDelay)
	defer ticker.Stop()

	for attempt := 1; attempt <= g.cfg.ConfirmRetries; attempt++ {
		<-ticker.C

		done, err := g.checkOnce(ctx, sig, false)
		if err != nil {
			if errors.Is(err, ErrOnChainFailure) {
				return g.terminal(emit, StateFailed, sig, err, start)
			}
			// Transient RPC error: the outcome is unknown, keep
			// polling within the budget.
			g.logger.Warn("Confirmation check failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		if done {
			return g.terminal(emit, StateConfirmed, sig, nil, start)
		}
	}

	// Budget exhausted. Re-verify a bounded number of times with history
	// search before declaring the outcome unknown.
	for i := 0; i < g.cfg.FollowUpChecks; i++ {
		done, err := g.checkOnce(ctx, sig, true)
		if err != nil {
			if errors.Is(err, ErrOnChainFailure) {
				return g.terminal(emit, StateFailed, sig, err, start)
			}
			break
		}
		if done {
			return g.terminal(emit, StateConfirmed, sig, nil, start)
		}
	}

	return g.terminal(emit, StateTimedOut, sig, ErrConfirmationTimeout, start)
}

// checkOnce queries the signature status once. Returns done=true when the
// configured commitment level is met, ErrOnChainFailure when the cluster
// reports an execution error, and (false, nil) when the status is still
// unknown.
func (g *Gateway) checkOnce(ctx context.Context, sig solana.Signature, searchHistory bool) (bool, error) {
	result, err := g.client.GetSignatureStatuses(ctx, searchHistory, sig)
	if err != nil {
		return false, fmt.Errorf("failed to get signature status: %w", err)
	}
	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return false, nil
	}

	status := result.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("%w: %v", ErrOnChainFailure, status.Err)
	}
	return commitmentReached(status.ConfirmationStatus, g.client.Commitment()), nil
}

func commitmentReached(got rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch want {
	case rpc.CommitmentProcessed:
		return got != ""
	case rpc.CommitmentFinalized:
		return got == rpc.ConfirmationStatusFinalized
	default:
		return got == rpc.ConfirmationStatusConfirmed || got == rpc.ConfirmationStatusFinalized
	}
}

// SignatureStatus is the outcome of a follow-up status check.
type SignatureStatus struct {
	Signature solana.Signature
	State     State
	Slot      uint64
	Err       string
}

// CheckSignature performs a one-shot status lookup for a previously
// submitted transaction. Callers holding a TimedOut receipt use this instead
// of resubmitting.
func (g *Gateway) CheckSignature(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	result, err := g.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}

	out := &SignatureStatus{Signature: sig, State: StateConfirming}
	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return out, nil
	}

	status := result.Value[0]
	out.Slot = status.Slot
	if status.Err != nil {
		out.State = StateFailed
		out.Err = fmt.Sprintf("%v", status.Err)
		return out, nil
	}
	if commitmentReached(status.ConfirmationStatus, g.client.Commitment()) {
		out.State = StateConfirmed
	}
	return out, nil
}

func (g *Gateway) failed(emit StatusFunc, sig solana.Signature, err error) *Receipt {
	emit("Transaction failed")
	g.logger.Warn("Transaction failed before confirmation", zap.Error(err))
	g.recorder.RecordConfirmation(StateFailed.String(), 0)
	return &Receipt{State: StateFailed, Signature: sig, Err: err}
}

func (g *Gateway) terminal(emit StatusFunc, state State, sig solana.Signature, err error, start time.Time) *Receipt {
	switch state {
	case StateConfirmed:
		emit("Transaction confirmed: " + sig.String())
	case StateTimedOut:
		emit("Transaction status unknown, it may still confirm: " + sig.String())
	default:
		emit("Transaction failed: " + sig.String())
	}
	g.recorder.RecordConfirmation(state.String(), time.Since(start))
	g.logger.Info("Transaction reached terminal state",
		zap.String("signature", sig.String()),
		zap.String("state", state.String()),
		zap.Error(err))
	return &Receipt{State: state, Signature: sig, Err: err}
}

// emitter wraps the caller's status callback so that a panicking or slow
// callback can never break the signing flow.
func (g *Gateway) emitter(status StatusFunc) StatusFunc {
	if status == nil {
		return func(string) {}
	}
	return func(msg string) {
		defer func() {
			if r := recover(); r != nil {
				g.logger.Warn("Status callback panicked",
					zap.Any("panic", r),
					zap.String("status", msg))
			}
		}()
		status(msg)
	}
}
