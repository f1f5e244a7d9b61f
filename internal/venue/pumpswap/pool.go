package pumpswap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChainReader is the subset of the RPC client the pool finder needs.
type ChainReader interface {
	GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
	GetMultipleAccounts(ctx context.Context, pubkeys ...solana.PublicKey) ([][]byte, error)
}

// PoolFinder locates and resolves pools for a token pair. GlobalConfig
// is fetched once and cached for the finder's lifetime.
type PoolFinder struct {
	client ChainReader
	logger *zap.Logger

	cfgOnce sync.Once
	cfg     *GlobalConfig
	cfgErr  error
}

func NewPoolFinder(client ChainReader, logger *zap.Logger) *PoolFinder {
	return &PoolFinder{
		client: client,
		logger: logger.With(zap.String("venue", "pumpswap")),
	}
}

// FindPool searches both mint orderings in parallel and returns the
// first pool with nonzero liquidity. The result keeps the pool's
// on-chain base/quote order regardless of the argument order; callers
// decide direction by comparing their input mint against it.
func (pf *PoolFinder) FindPool(ctx context.Context, baseMint, quoteMint solana.PublicKey) (*PoolState, error) {
	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		found *PoolState
		mu    sync.Mutex
	)

	g, _ := errgroup.WithContext(searchCtx)

	g.Go(func() error {
		if p, _ := pf.findByProgramAccounts(searchCtx, baseMint, quoteMint); p != nil {
			mu.Lock()
			if found == nil {
				found = p
				cancel()
			}
			mu.Unlock()
		}
		return nil
	})

	g.Go(func() error {
		if p, _ := pf.findByProgramAccounts(searchCtx, quoteMint, baseMint); p != nil {
			mu.Lock()
			if found == nil {
				found = p
				cancel()
			}
			mu.Unlock()
		}
		return nil
	})

	_ = g.Wait()

	if found == nil {
		return nil, fmt.Errorf("no pool found for %s / %s", baseMint, quoteMint)
	}
	return found, nil
}

func (pf *PoolFinder) findByProgramAccounts(ctx context.Context, baseMint, quoteMint solana.PublicKey) (*PoolState, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	const (
		offsetBaseMint  = 8 + 1 + 2 + 32 // 43
		offsetQuoteMint = offsetBaseMint + 32
	)

	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: PoolDiscriminator}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: offsetBaseMint, Bytes: baseMint.Bytes()}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: offsetQuoteMint, Bytes: quoteMint.Bytes()}},
		},
	}

	accounts, err := pf.client.GetProgramAccountsWithOpts(ctx, ProgramID, opts)
	if err != nil {
		return nil, fmt.Errorf("getProgramAccounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no program accounts match %s/%s", baseMint, quoteMint)
	}

	pubkeys := make([]solana.PublicKey, len(accounts))
	for i, acc := range accounts {
		pubkeys[i] = acc.Pubkey
	}

	poolsRaw, err := pf.client.GetMultipleAccounts(ctx, pubkeys...)
	if err != nil {
		return nil, err
	}

	cfg, err := pf.globalConfig(ctx)
	if err != nil {
		return nil, err
	}

	for i, raw := range poolsRaw {
		pool, err := ParsePool(raw)
		if err != nil {
			continue
		}

		tokRaw, err := pf.client.GetMultipleAccounts(ctx, pool.PoolBaseTokenAccount, pool.PoolQuoteTokenAccount)
		if err != nil {
			continue
		}
		baseRes := parseTokenAmount(tokRaw[0])
		quoteRes := parseTokenAmount(tokRaw[1])
		if baseRes == 0 || quoteRes == 0 {
			continue
		}

		recipient := cfg.ProtocolFeeRecipients[0]

		pf.logger.Debug("pool resolved",
			zap.String("pool", pubkeys[i].String()),
			zap.Uint64("base_reserves", baseRes),
			zap.Uint64("quote_reserves", quoteRes))

		return &PoolState{
			Address:               pubkeys[i],
			BaseMint:              pool.BaseMint,
			QuoteMint:             pool.QuoteMint,
			BaseReserves:          baseRes,
			QuoteReserves:         quoteRes,
			LPSupply:              pool.LPSupply,
			LPFeeBasisPoints:      cfg.LPFeeBasisPoints,
			ProtocolFeeBPS:        cfg.ProtocolFeeBasisPoints,
			PoolBaseTokenAccount:  pool.PoolBaseTokenAccount,
			PoolQuoteTokenAccount: pool.PoolQuoteTokenAccount,
			ProtocolFeeRecipient:  recipient,
			CoinCreator:           pool.CoinCreator,
		}, nil
	}

	return nil, fmt.Errorf("all candidate pools have zero liquidity for %s/%s", baseMint, quoteMint)
}

func (pf *PoolFinder) globalConfig(ctx context.Context) (*GlobalConfig, error) {
	pf.cfgOnce.Do(func() {
		pf.cfg, pf.cfgErr = pf.fetchGlobalConfig(ctx)
	})
	return pf.cfg, pf.cfgErr
}

func (pf *PoolFinder) fetchGlobalConfig(ctx context.Context) (*GlobalConfig, error) {
	addr, err := deriveGlobalConfigAddress()
	if err != nil {
		return nil, fmt.Errorf("derive global config: %w", err)
	}
	raw, err := pf.client.GetMultipleAccounts(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("fetch global config: %w", err)
	}
	if len(raw) == 0 || raw[0] == nil {
		return nil, fmt.Errorf("global config account not found")
	}
	return ParseGlobalConfig(raw[0])
}
