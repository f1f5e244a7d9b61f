// Package fee implements service-fee collection as a transfer that is
// independent from the swap it follows. A declined or failed fee never
// changes the outcome of the swap that triggered it.
package fee

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/gateway"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/metrics"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/txcodec"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/wallet"
)

// ApproveFunc asks for user consent before the fee transfer is signed.
// This is a decision point separate from the swap approval.
type ApproveFunc func(ctx context.Context, amount uint64, recipient solana.PublicKey) bool

// Record describes one fee collection attempt.
type Record struct {
	// Attempted is false when the computed fee was zero or the user
	// declined; no transaction was built in either case.
	Attempted bool
	Declined  bool
	Amount    uint64
	Recipient solana.PublicKey
	Signature solana.Signature
	State     gateway.State
	Err       error
}

type Collector struct {
	recipient solana.PublicKey
	rateBps   uint64
	codec     *txcodec.Codec
	gateway   *gateway.Gateway
	blockhash txcodec.BlockhashFunc
	approve   ApproveFunc
	logger    *zap.Logger
	recorder  metrics.Recorder
}

func NewCollector(
	recipient solana.PublicKey,
	rateBps uint64,
	codec *txcodec.Codec,
	gw *gateway.Gateway,
	blockhash txcodec.BlockhashFunc,
	approve ApproveFunc,
	logger *zap.Logger,
	recorder metrics.Recorder,
) *Collector {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Collector{
		recipient: recipient,
		rateBps:   rateBps,
		codec:     codec,
		gateway:   gw,
		blockhash: blockhash,
		approve:   approve,
		logger:    logger.Named("fee"),
		recorder:  recorder,
	}
}

// Amount computes the fee owed on an output amount, rounding down.
func (c *Collector) Amount(outputAmount uint64) uint64 {
	product := new(big.Int).Mul(
		new(big.Int).SetUint64(outputAmount),
		new(big.Int).SetUint64(c.rateBps),
	)
	return new(big.Int).Div(product, big.NewInt(10_000)).Uint64()
}

// MaybeCollect computes and, when approved, transfers the service fee
// from the capability's account. All failures are recorded, never
// returned as errors: the caller's swap result is already final.
func (c *Collector) MaybeCollect(ctx context.Context, outputAmount uint64, capability wallet.Capability, status gateway.StatusFunc) *Record {
	amount := c.Amount(outputAmount)
	if amount == 0 {
		return &Record{Attempted: false, Amount: 0, Recipient: c.recipient}
	}

	if c.approve != nil && !c.approve(ctx, amount, c.recipient) {
		c.logger.Info("fee transfer declined",
			zap.Uint64("amount", amount),
			zap.String("recipient", c.recipient.String()))
		c.recorder.RecordFeeCollection("declined")
		return &Record{Attempted: false, Declined: true, Amount: amount, Recipient: c.recipient}
	}

	rec := &Record{Attempted: true, Amount: amount, Recipient: c.recipient}

	ix := system.NewTransferInstruction(amount, capability.PublicKey(), c.recipient).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		solana.Hash{},
		solana.TransactionPayer(capability.PublicKey()),
	)
	if err != nil {
		rec.Err = fmt.Errorf("build fee transaction: %w", err)
		c.recorder.RecordFeeCollection("build_failed")
		return rec
	}

	ntx, err := c.codec.Normalize(ctx, txcodec.FromLegacy(tx), capability.PublicKey(), c.blockhash)
	if err != nil {
		rec.Err = fmt.Errorf("normalize fee transaction: %w", err)
		c.recorder.RecordFeeCollection("build_failed")
		return rec
	}

	receipt := c.gateway.Send(ctx, capability, ntx, status)
	rec.Signature = receipt.Signature
	rec.State = receipt.State
	if receipt.State != gateway.StateConfirmed {
		rec.Err = receipt.Err
		c.recorder.RecordFeeCollection("failed")
		c.logger.Warn("fee transfer did not confirm",
			zap.Stringer("state", receipt.State),
			zap.Error(receipt.Err))
		return rec
	}

	c.recorder.RecordFeeCollection("collected")
	c.logger.Info("fee collected",
		zap.Uint64("amount", amount),
		zap.String("signature", receipt.Signature.String()))
	return rec
}
