// Package wallet models "the means to sign" independently of which wallet
// backend produced it. A Capability describes one signing backend; the
// Session tracks which capability is currently active for the authenticated
// user. The rest of the core never branches on provider identity; it only
// sees the Capability and Signer interfaces.
package wallet

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ProviderKind identifies the backend behind a capability.
type ProviderKind int

const (
	// KindEmbeddedCustodial is a wallet whose key material lives with the
	// application (embedded custodial provider).
	KindEmbeddedCustodial ProviderKind = iota
	// KindDelegatedSession is a wallet reached through a delegated session
	// handshake, e.g. a mobile wallet adapter connection.
	KindDelegatedSession
	// KindExternalSigner is a wallet hosted by an external signing service.
	KindExternalSigner
)

func (k ProviderKind) String() string {
	switch k {
	case KindEmbeddedCustodial:
		return "embedded-custodial"
	case KindDelegatedSession:
		return "delegated-session"
	case KindExternalSigner:
		return "external-signer"
	default:
		return "unknown"
	}
}

var (
	// ErrNoSigner is returned by degraded capabilities that can show an
	// identity and balance but cannot produce signatures.
	ErrNoSigner = errors.New("capability has no signer")
	// ErrSigningDeclined is returned when the user or the provider
	// explicitly rejects a signing request.
	ErrSigningDeclined = errors.New("signing declined by provider")
)

// Capability is a normalized description of something that can produce a
// signature. Address and PublicKey always refer to the same key.
type Capability interface {
	Kind() ProviderKind
	Address() string
	PublicKey() solana.PublicKey
	// CanSign reports whether AcquireSigner can succeed. A false value
	// marks a watch-only capability, which is an expected degraded state,
	// not an error.
	CanSign() bool
	// AcquireSigner returns a provider-specific signer handle. The handle
	// is exclusive to this call and must not be cached across unrelated
	// operations: delegated sessions rotate, and a stale handle would sign
	// against a dead session.
	AcquireSigner(ctx context.Context) (Signer, error)
}

// Signer signs transactions and raw messages.
type Signer interface {
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}

// Broadcaster is an optional Signer extension for providers whose only
// signing primitive is sign-and-send: the provider broadcasts the transaction
// itself and hands back the signature. The gateway type-asserts for it and
// skips its own broadcast step when present.
type Broadcaster interface {
	SignAndSendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}
