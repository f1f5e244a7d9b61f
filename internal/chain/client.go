package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/metrics"
)

// Client is a thin adapter over the solana-go RPC client covering the calls
// the swap core needs. It is safe for concurrent use; a single instance is
// read-shared across all in-flight signing and confirmation operations.
type Client struct {
	rpc        *rpc.Client
	logger     *zap.Logger
	recorder   metrics.Recorder
	commitment rpc.CommitmentType

	blockhashGroup singleflight.Group
	blockhashTTL   time.Duration
}

var ErrAccountNotFound = errors.New("account not found")

// SendOptions controls broadcast behavior.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
	MaxRetries          *uint
}

func NewClient(rpcURL string, commitment string, logger *zap.Logger, recorder metrics.Recorder) *Client {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Client{
		rpc:          rpc.New(rpcURL),
		logger:       logger.Named("chain-client"),
		recorder:     recorder,
		commitment:   ParseCommitment(commitment),
		blockhashTTL: 2 * time.Second,
	}
}

// ParseCommitment maps a configured commitment string to the RPC type,
// defaulting to confirmed.
func ParseCommitment(s string) rpc.CommitmentType {
	switch s {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

// Commitment returns the client's configured commitment level.
func (c *Client) Commitment() rpc.CommitmentType {
	return c.commitment
}

type cachedBlockhash struct {
	hash    solana.Hash
	fetched time.Time
}

// GetLatestBlockhash fetches the latest blockhash. Concurrent callers are
// collapsed into one RPC round trip; the result is reused within a short TTL
// so back-to-back swaps do not hammer the endpoint.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	v, err, _ := c.blockhashGroup.Do("blockhash", func() (interface{}, error) {
		start := time.Now()
		result, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
		c.recorder.RecordRPCLatency("getLatestBlockhash", time.Since(start))
		if err != nil {
			c.logger.Error("GetLatestBlockhash error", zap.Error(err))
			return nil, err
		}
		return cachedBlockhash{hash: result.Value.Blockhash, fetched: time.Now()}, nil
	})
	if err != nil {
		return solana.Hash{}, err
	}
	cached := v.(cachedBlockhash)
	if time.Since(cached.fetched) > c.blockhashTTL {
		c.blockhashGroup.Forget("blockhash")
	}
	return cached.hash, nil
}

// SendRawTransaction broadcasts a fully-signed serialized transaction and
// returns its signature. Broadcast success does not imply ledger inclusion.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte, opts SendOptions) (solana.Signature, error) {
	encoded := base64.StdEncoding.EncodeToString(raw)

	start := time.Now()
	sig, err := c.rpc.SendEncodedTransactionWithOpts(ctx, encoded, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
		MaxRetries:          opts.MaxRetries,
	})
	c.recorder.RecordRPCLatency("sendTransaction", time.Since(start))
	if err != nil {
		c.logger.Error("SendRawTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetSignatureStatuses fetches the confirmation status of the given
// signatures. searchHistory widens the lookup beyond the recent status cache;
// the follow-up verification path uses it.
func (c *Client) GetSignatureStatuses(ctx context.Context, searchHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	start := time.Now()
	result, err := c.rpc.GetSignatureStatuses(ctx, searchHistory, signatures...)
	c.recorder.RecordRPCLatency("getSignatureStatuses", time.Since(start))
	if err != nil {
		c.logger.Error("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	start := time.Now()
	result, err := c.rpc.GetBalance(ctx, pubkey, c.commitment)
	c.recorder.RecordRPCLatency("getBalance", time.Since(start))
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// GetAccountDataInto fetches account data and decodes it into dst.
func (c *Client) GetAccountDataInto(ctx context.Context, pubkey solana.PublicKey, dst interface{}) error {
	start := time.Now()
	err := c.rpc.GetAccountDataInto(ctx, pubkey, dst)
	c.recorder.RecordRPCLatency("getAccountInfo", time.Since(start))
	if err != nil {
		c.logger.Debug("GetAccountDataInto error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return err
	}
	return nil
}

// GetMultipleAccounts fetches raw binary data for several accounts in one
// request. Entries for missing accounts are nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys ...solana.PublicKey) ([][]byte, error) {
	if len(pubkeys) == 0 {
		return nil, nil
	}
	start := time.Now()
	resp, err := c.rpc.GetMultipleAccountsWithOpts(ctx, pubkeys, &rpc.GetMultipleAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	c.recorder.RecordRPCLatency("getMultipleAccounts", time.Since(start))
	if err != nil {
		c.logger.Debug("GetMultipleAccounts error", zap.Error(err))
		return nil, err
	}
	data := make([][]byte, len(pubkeys))
	for i, info := range resp.Value {
		if info != nil {
			data[i] = info.Data.GetBinary()
		}
	}
	return data, nil
}

// GetProgramAccountsWithOpts fetches program accounts with filter options.
func (c *Client) GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	start := time.Now()
	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, programID, opts)
	c.recorder.RecordRPCLatency("getProgramAccounts", time.Since(start))
	if err != nil {
		c.logger.Debug("GetProgramAccountsWithOpts error",
			zap.String("program_id", programID.String()),
			zap.Error(err))
		return nil, err
	}
	return accounts, nil
}

// GetTokenDecimals reads the decimals field of a token mint account.
func (c *Client) GetTokenDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	var mintAccount token.Mint
	if err := c.GetAccountDataInto(ctx, mint, &mintAccount); err != nil {
		return 0, err
	}
	return mintAccount.Decimals, nil
}
