// Package pumpswap quotes and builds swaps against the PumpSwap AMM
// directly on-chain; there is no REST aggregator for this venue.
package pumpswap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"go.uber.org/zap"
)

const defaultComputeUnits = 200_000

// SwapPlan is a fully priced swap, ready to be turned into
// instructions. It is produced by Quote and consumed by BuildSwap.
type SwapPlan struct {
	Pool  *PoolState
	IsBuy bool

	// Amounts follow the instruction convention: for buy, Amount1 is
	// the base output and Amount2 the max quote input; for sell,
	// Amount1 is the base input and Amount2 the min quote output.
	Amount1 uint64
	Amount2 uint64

	ExpectedOut uint64
	MinOut      uint64
}

type Client struct {
	chain  ChainReader
	pools  *PoolFinder
	logger *zap.Logger
}

func NewClient(chain ChainReader, logger *zap.Logger) *Client {
	return &Client{
		chain:  chain,
		pools:  NewPoolFinder(chain, logger),
		logger: logger.With(zap.String("venue", "pumpswap")),
	}
}

// Quote resolves the pool for the pair and prices an exact-in swap
// using current reserves.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint solana.PublicKey, amountIn, slippageBps uint64) (*SwapPlan, error) {
	if amountIn == 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	pool, err := c.pools.FindPool(ctx, inputMint, outputMint)
	if err != nil {
		return nil, err
	}

	feeFactor := feeFactorFromBps(pool.LPFeeBasisPoints)

	var plan *SwapPlan
	switch {
	case inputMint.Equals(pool.QuoteMint) && outputMint.Equals(pool.BaseMint):
		// Buy: spend quote, receive base.
		expected := computeOutput(pool.QuoteReserves, pool.BaseReserves, amountIn, feeFactor)
		if expected == 0 {
			return nil, fmt.Errorf("quote produced zero output")
		}
		plan = &SwapPlan{
			Pool:        pool,
			IsBuy:       true,
			Amount1:     applySlippage(expected, slippageBps),
			Amount2:     padSlippage(amountIn, slippageBps),
			ExpectedOut: expected,
			MinOut:      applySlippage(expected, slippageBps),
		}
	case inputMint.Equals(pool.BaseMint) && outputMint.Equals(pool.QuoteMint):
		// Sell: spend base, receive quote.
		expected := computeOutput(pool.BaseReserves, pool.QuoteReserves, amountIn, feeFactor)
		if expected == 0 {
			return nil, fmt.Errorf("quote produced zero output")
		}
		plan = &SwapPlan{
			Pool:        pool,
			IsBuy:       false,
			Amount1:     amountIn,
			Amount2:     applySlippage(expected, slippageBps),
			ExpectedOut: expected,
			MinOut:      applySlippage(expected, slippageBps),
		}
	default:
		return nil, fmt.Errorf("pool %s does not trade %s -> %s", pool.Address, inputMint, outputMint)
	}

	c.logger.Debug("swap priced",
		zap.String("pool", pool.Address.String()),
		zap.Bool("is_buy", plan.IsBuy),
		zap.Uint64("amount_in", amountIn),
		zap.Uint64("expected_out", plan.ExpectedOut),
		zap.Uint64("min_out", plan.MinOut))
	return plan, nil
}

// BuildSwap assembles an unsigned legacy transaction for the plan. The
// recent blockhash is left zero for the codec to fill in.
func (c *Client) BuildSwap(ctx context.Context, plan *SwapPlan, owner solana.PublicKey, priorityFeeMicroLamports uint64) (*solana.Transaction, error) {
	if plan == nil || plan.Pool == nil {
		return nil, fmt.Errorf("nil swap plan")
	}
	pool := plan.Pool

	eventAuthority, err := deriveEventAuthority()
	if err != nil {
		return nil, fmt.Errorf("derive event authority: %w", err)
	}
	globalConfig, err := deriveGlobalConfigAddress()
	if err != nil {
		return nil, fmt.Errorf("derive global config: %w", err)
	}
	vaultAuthority, vaultATA, err := deriveCoinCreatorVault(pool.CoinCreator, pool.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("derive creator vault: %w", err)
	}

	userBaseATA, _, err := solana.FindAssociatedTokenAddress(owner, pool.BaseMint)
	if err != nil {
		return nil, err
	}
	userQuoteATA, _, err := solana.FindAssociatedTokenAddress(owner, pool.QuoteMint)
	if err != nil {
		return nil, err
	}
	feeRecipientATA, _, err := solana.FindAssociatedTokenAddress(pool.ProtocolFeeRecipient, pool.QuoteMint)
	if err != nil {
		return nil, err
	}

	var instructions []solana.Instruction
	instructions = append(instructions,
		computebudget.NewSetComputeUnitLimitInstruction(defaultComputeUnits).Build())
	if priorityFeeMicroLamports > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(priorityFeeMicroLamports).Build())
	}
	instructions = append(instructions,
		createATAIdempotentInstruction(owner, owner, pool.BaseMint),
		createATAIdempotentInstruction(owner, owner, pool.QuoteMint),
	)

	instructions = append(instructions, createSwapInstruction(&SwapInstructionParams{
		IsBuy:                            plan.IsBuy,
		PoolAddress:                      pool.Address,
		User:                             owner,
		GlobalConfig:                     globalConfig,
		BaseMint:                         pool.BaseMint,
		QuoteMint:                        pool.QuoteMint,
		UserBaseTokenAccount:             userBaseATA,
		UserQuoteTokenAccount:            userQuoteATA,
		PoolBaseTokenAccount:             pool.PoolBaseTokenAccount,
		PoolQuoteTokenAccount:            pool.PoolQuoteTokenAccount,
		ProtocolFeeRecipient:             pool.ProtocolFeeRecipient,
		ProtocolFeeRecipientTokenAccount: feeRecipientATA,
		EventAuthority:                   eventAuthority,
		CoinCreatorVaultATA:              vaultATA,
		CoinCreatorVaultAuthority:        vaultAuthority,
		Amount1:                          plan.Amount1,
		Amount2:                          plan.Amount2,
	}))

	tx, err := solana.NewTransaction(instructions, solana.Hash{}, solana.TransactionPayer(owner))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	return tx, nil
}

// padSlippage scales an input amount up by slippageBps to get the
// maximum the user is willing to spend.
func padSlippage(amount, slippageBps uint64) uint64 {
	product := new(big.Int).Mul(
		new(big.Int).SetUint64(amount),
		new(big.Int).SetUint64(10_000+slippageBps),
	)
	return new(big.Int).Div(product, big.NewInt(10_000)).Uint64()
}
