package swap

import "fmt"

// ErrorKind classifies swap failures for callers that branch on
// recoverability rather than error text.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindWalletNotConnected
	KindMalformedTransaction
	KindQuoteUnavailable
	KindBuildFailed
	KindSigningDeclined
	KindConfirmationTimeout
	KindOnChainFailure
	KindFeeCollectionFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindWalletNotConnected:
		return "wallet_not_connected"
	case KindMalformedTransaction:
		return "malformed_transaction"
	case KindQuoteUnavailable:
		return "quote_unavailable"
	case KindBuildFailed:
		return "build_failed"
	case KindSigningDeclined:
		return "signing_declined"
	case KindConfirmationTimeout:
		return "confirmation_timeout"
	case KindOnChainFailure:
		return "on_chain_failure"
	case KindFeeCollectionFailed:
		return "fee_collection_failed"
	default:
		return "internal"
	}
}

// Recoverable reports whether retrying the same request can succeed
// without caller intervention.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case KindQuoteUnavailable, KindBuildFailed, KindConfirmationTimeout:
		return true
	default:
		return false
	}
}

// Error wraps a step failure with its classification.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is a short human-readable explanation suitable for
// surfacing directly in a UI or terminal.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindWalletNotConnected:
		return "No wallet is connected. Connect a wallet and try again."
	case KindMalformedTransaction:
		return "The venue returned a transaction that could not be parsed. Request a fresh quote."
	case KindQuoteUnavailable:
		return "The venue could not provide a quote for this pair. Try again shortly."
	case KindBuildFailed:
		return "The venue could not build the swap transaction. Try again shortly."
	case KindSigningDeclined:
		return "The signing request was declined."
	case KindConfirmationTimeout:
		return "Confirmation timed out. The swap may still land; check the signature before retrying."
	case KindOnChainFailure:
		return "The transaction failed on-chain."
	case KindFeeCollectionFailed:
		return "The swap succeeded but the service fee transfer did not complete."
	default:
		return "The swap failed unexpectedly."
	}
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
