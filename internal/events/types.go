// Package events is a small in-process pub/sub bus used as the side
// channel for swap outcomes. A swap whose caller gave up (timed out,
// UI torn down) still resolves eventually; the bus delivers that
// resolution to whoever is still listening.
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType identifies the event class for subscription routing.
type EventType string

const (
	SwapSubmitted EventType = "swap.submitted"
	SwapConfirmed EventType = "swap.confirmed"
	SwapFailed    EventType = "swap.failed"
	SwapTimedOut  EventType = "swap.timed_out"

	// SwapResolved fires when a follow-up check settles a previously
	// timed-out swap either way.
	SwapResolved EventType = "swap.resolved"

	FeeCollected EventType = "fee.collected"
	FeeFailed    EventType = "fee.failed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides the common fields.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// SwapEvent carries the lifecycle of one swap attempt.
type SwapEvent struct {
	BaseEvent
	Venue      string
	Signature  solana.Signature
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	AmountIn   uint64
	AmountOut  uint64
	Err        string
}

// NewSwapEvent builds a swap lifecycle event of the given type.
func NewSwapEvent(t EventType, venue string, sig solana.Signature, inputMint, outputMint solana.PublicKey, amountIn, amountOut uint64, errMsg string) SwapEvent {
	return SwapEvent{
		BaseEvent:  newBase(t),
		Venue:      venue,
		Signature:  sig,
		InputMint:  inputMint,
		OutputMint: outputMint,
		AmountIn:   amountIn,
		AmountOut:  amountOut,
		Err:        errMsg,
	}
}

// FeeEvent reports a fee collection attempt.
type FeeEvent struct {
	BaseEvent
	Amount    uint64
	Recipient solana.PublicKey
	Signature solana.Signature
	Err       string
}

// NewFeeEvent builds a fee event of the given type.
func NewFeeEvent(t EventType, amount uint64, recipient solana.PublicKey, sig solana.Signature, errMsg string) FeeEvent {
	return FeeEvent{
		BaseEvent: newBase(t),
		Amount:    amount,
		Recipient: recipient,
		Signature: sig,
		Err:       errMsg,
	}
}
