package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Handshake resolves a live provider handle for a delegated session. The
// session layer underneath may reconnect or rotate between calls, which is
// why the capability resolves a fresh handle per signing operation.
type Handshake interface {
	Resolve(ctx context.Context) (ProviderHandle, error)
}

// Delegated is a capability backed by a delegated wallet session. Until a
// handshake is attached it is watch-only: the address is known from the auth
// flow, but nothing can sign.
type Delegated struct {
	address   string
	pub       solana.PublicKey
	handshake Handshake
	logger    *zap.Logger
}

// NewDelegated builds a delegated-session capability. handshake may be nil,
// producing a watch-only capability.
func NewDelegated(address string, handshake Handshake, logger *zap.Logger) (*Delegated, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid session address: %w", err)
	}
	return &Delegated{
		address:   address,
		pub:       pub,
		handshake: handshake,
		logger:    logger.Named("delegated-wallet"),
	}, nil
}

func (d *Delegated) Kind() ProviderKind          { return KindDelegatedSession }
func (d *Delegated) Address() string             { return d.address }
func (d *Delegated) PublicKey() solana.PublicKey { return d.pub }
func (d *Delegated) CanSign() bool               { return d.handshake != nil }

// AcquireSigner performs the session handshake and wraps the resulting
// handle. Handles are never reused across operations.
func (d *Delegated) AcquireSigner(ctx context.Context) (Signer, error) {
	if d.handshake == nil {
		return nil, ErrNoSigner
	}
	handle, err := d.handshake.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("session handshake failed: %w", err)
	}
	d.logger.Debug("Session handle resolved", zap.String("address", d.address))
	return &providerSigner{handle: handle}, nil
}
