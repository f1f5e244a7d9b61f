// Package txcodec normalizes the transaction payloads venues hand back.
// Venues return different wire shapes (a legacy transaction object, a
// versioned transaction object, or a base64 blob of either) and the client
// cannot know which in advance. The codec detects the shape and produces a
// signable, broadcastable transaction.
package txcodec

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Kind tags the wire shape of an envelope.
type Kind int

const (
	KindLegacy Kind = iota
	KindVersioned
	KindBase64
)

func (k Kind) String() string {
	switch k {
	case KindLegacy:
		return "legacy"
	case KindVersioned:
		return "versioned"
	case KindBase64:
		return "base64"
	default:
		return "unknown"
	}
}

// ErrMalformedTransaction means neither the versioned nor the legacy parse
// succeeded. Not retryable without a fresh build from the venue.
var ErrMalformedTransaction = errors.New("malformed transaction: not parseable as versioned or legacy")

// Envelope is a tagged union over the three wire shapes. Exactly one variant
// is populated. Base64 is an input-only encoding: normalization always
// resolves it to legacy or versioned.
type Envelope struct {
	kind Kind
	tx   *solana.Transaction
	blob string
}

func FromLegacy(tx *solana.Transaction) Envelope {
	return Envelope{kind: KindLegacy, tx: tx}
}

func FromVersioned(tx *solana.Transaction) Envelope {
	return Envelope{kind: KindVersioned, tx: tx}
}

func FromBase64(blob string) Envelope {
	return Envelope{kind: KindBase64, blob: blob}
}

func (e Envelope) Kind() Kind { return e.kind }

// Normalized is a parsed, fixed-up transaction ready for signing. Kind is
// always KindLegacy or KindVersioned.
type Normalized struct {
	Kind Kind
	Tx   *solana.Transaction
}

// Raw serializes the transaction for broadcast.
func (n *Normalized) Raw() ([]byte, error) {
	return n.Tx.MarshalBinary()
}

// BlockhashFunc supplies a recent blockhash for legacy fix-ups.
type BlockhashFunc func(ctx context.Context) (solana.Hash, error)

type Codec struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Codec {
	return &Codec{logger: logger.Named("txcodec")}
}

// Normalize resolves an envelope into a signable transaction.
//
// Base64 input is decoded and parsed as versioned FIRST, falling back to
// legacy only when the versioned parse fails. The order is a contract:
// guessing wrong and mutating a versioned message would invalidate any
// signatures the venue already embedded in it.
//
// Legacy transactions get missing-field fix-ups (fee payer, recent
// blockhash). Versioned transactions are passed through unchanged except for
// later signature attachment.
func (c *Codec) Normalize(ctx context.Context, env Envelope, feePayer solana.PublicKey, blockhash BlockhashFunc) (*Normalized, error) {
	switch env.kind {
	case KindVersioned:
		if env.tx == nil {
			return nil, fmt.Errorf("%w: empty envelope", ErrMalformedTransaction)
		}
		return &Normalized{Kind: KindVersioned, Tx: env.tx}, nil

	case KindLegacy:
		if env.tx == nil {
			return nil, fmt.Errorf("%w: empty envelope", ErrMalformedTransaction)
		}
		if err := c.fixupLegacy(ctx, env.tx, feePayer, blockhash); err != nil {
			return nil, err
		}
		return &Normalized{Kind: KindLegacy, Tx: env.tx}, nil

	case KindBase64:
		raw, err := base64.StdEncoding.DecodeString(env.blob)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64: %s", ErrMalformedTransaction, err)
		}
		return c.normalizeBytes(ctx, raw, feePayer, blockhash)

	default:
		return nil, fmt.Errorf("%w: empty envelope", ErrMalformedTransaction)
	}
}

func (c *Codec) normalizeBytes(ctx context.Context, raw []byte, feePayer solana.PublicKey, blockhash BlockhashFunc) (*Normalized, error) {
	if tx, err := parseVersioned(raw); err == nil {
		c.logger.Debug("Parsed versioned transaction",
			zap.Int("size_bytes", len(raw)))
		return &Normalized{Kind: KindVersioned, Tx: tx}, nil
	}

	tx, err := parseLegacy(raw)
	if err != nil {
		c.logger.Debug("Transaction parse failed for both formats", zap.Error(err))
		return nil, ErrMalformedTransaction
	}
	if err := c.fixupLegacy(ctx, tx, feePayer, blockhash); err != nil {
		return nil, err
	}
	return &Normalized{Kind: KindLegacy, Tx: tx}, nil
}

// parseVersioned decodes raw bytes and requires a v0 message.
func parseVersioned(raw []byte) (*solana.Transaction, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, err
	}
	if !tx.Message.IsVersioned() {
		return nil, errors.New("message is not versioned")
	}
	return tx, nil
}

// parseLegacy decodes raw bytes and requires a legacy message.
func parseLegacy(raw []byte) (*solana.Transaction, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, err
	}
	if tx.Message.IsVersioned() {
		return nil, errors.New("message is versioned, not legacy")
	}
	return tx, nil
}

// fixupLegacy fills in the fields a venue may leave unset on a legacy
// transaction. An already-set fee payer or blockhash is never altered.
func (c *Codec) fixupLegacy(ctx context.Context, tx *solana.Transaction, feePayer solana.PublicKey, blockhash BlockhashFunc) error {
	if tx.Message.Header.NumRequiredSignatures == 0 || len(tx.Message.AccountKeys) == 0 {
		if feePayer.IsZero() {
			return fmt.Errorf("legacy transaction has no fee payer and no wallet is active")
		}
		tx.Message.AccountKeys = append([]solana.PublicKey{feePayer}, tx.Message.AccountKeys...)
		tx.Message.Header.NumRequiredSignatures++
		c.logger.Debug("Set fee payer on legacy transaction",
			zap.String("fee_payer", feePayer.String()))
	}

	if tx.Message.RecentBlockhash == (solana.Hash{}) {
		if blockhash == nil {
			return fmt.Errorf("legacy transaction has no recent blockhash and no source to fetch one")
		}
		hash, err := blockhash(ctx)
		if err != nil {
			return fmt.Errorf("failed to get recent blockhash: %w", err)
		}
		tx.Message.RecentBlockhash = hash
	}
	return nil
}
