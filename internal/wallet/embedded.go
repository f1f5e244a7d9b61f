package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Embedded is a custodial capability backed by a locally-held ed25519 key.
type Embedded struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

// NewEmbedded builds an embedded custodial capability from a base58-encoded
// 64-byte private key or a solana-keygen JSON byte array.
func NewEmbedded(privateKey string) (*Embedded, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return &Embedded{
		priv: priv,
		pub:  priv.PublicKey(),
	}, nil
}

func (e *Embedded) Kind() ProviderKind          { return KindEmbeddedCustodial }
func (e *Embedded) Address() string             { return e.pub.String() }
func (e *Embedded) PublicKey() solana.PublicKey { return e.pub }
func (e *Embedded) CanSign() bool               { return true }

func (e *Embedded) AcquireSigner(ctx context.Context) (Signer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &embeddedSigner{priv: e.priv, pub: e.pub}, nil
}

type embeddedSigner struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

func (s *embeddedSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.pub) {
			return &s.priv
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

func (s *embeddedSigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig, err := s.priv.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig[:], nil
}

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("private key is empty")
	}

	// solana-keygen exports keys as a JSON array of bytes
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("invalid byte at index %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("invalid private key length: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(b), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(raw), nil
}
