package wallet

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Provider request method names. These are the only provider-internal
// surface the core relies on; everything else behind the handle is opaque.
const (
	MethodSignAndSendTransaction = "signAndSendTransaction"
	MethodSignMessage            = "signMessage"
)

// ProviderHandle is an opaque handle into a wallet provider session.
type ProviderHandle interface {
	Request(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
}

type signAndSendParams struct {
	Transaction string `json:"transaction"` // base64-serialized, unsigned
}

type signAndSendResult struct {
	Signature string `json:"signature"`
}

type signMessageParams struct {
	Message string `json:"message"` // base64
}

type signMessageResult struct {
	Signature string `json:"signature"` // base64
}

// providerSigner adapts a ProviderHandle to the Signer interface. Providers
// that broadcast internally are surfaced through the Broadcaster extension;
// plain SignTransaction is unsupported because these backends never hand the
// signed bytes back.
type providerSigner struct {
	handle ProviderHandle
}

func (s *providerSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	return fmt.Errorf("provider only supports %s: %w", MethodSignAndSendTransaction, ErrNoSigner)
}

func (s *providerSigner) SignAndSendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	res, err := s.handle.Request(ctx, MethodSignAndSendTransaction, signAndSendParams{
		Transaction: base64.StdEncoding.EncodeToString(raw),
	})
	if err != nil {
		if isDeclined(err) {
			return solana.Signature{}, ErrSigningDeclined
		}
		return solana.Signature{}, err
	}

	var out signAndSendResult
	if err := json.Unmarshal(res, &out); err != nil {
		return solana.Signature{}, fmt.Errorf("malformed provider response: %w", err)
	}
	sig, err := solana.SignatureFromBase58(out.Signature)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("provider returned invalid signature: %w", err)
	}
	return sig, nil
}

func (s *providerSigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	res, err := s.handle.Request(ctx, MethodSignMessage, signMessageParams{
		Message: base64.StdEncoding.EncodeToString(msg),
	})
	if err != nil {
		if isDeclined(err) {
			return nil, ErrSigningDeclined
		}
		return nil, err
	}
	var out signMessageResult
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, fmt.Errorf("malformed provider response: %w", err)
	}
	return base64.StdEncoding.DecodeString(out.Signature)
}

// isDeclined detects an explicit user rejection in a provider error. Wallet
// SDKs disagree on wording, so this is string matching, same as the RPC error
// classification elsewhere.
func isDeclined(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "declined") ||
		strings.Contains(msg, "rejected") ||
		strings.Contains(msg, "denied") ||
		strings.Contains(msg, "user cancel")
}
