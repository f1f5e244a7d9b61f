package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/events"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/gateway"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/storage/models"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/swap"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue"
)

type swapFlags struct {
	venueName   string
	inputMint   string
	outputMint  string
	amount      string
	slippageBps uint64
}

func (f *swapFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.venueName, "venue", "jupiter", "venue to trade on (jupiter, raydium, pumpswap)")
	cmd.Flags().StringVar(&f.inputMint, "in", "SOL", "input mint address or SOL")
	cmd.Flags().StringVar(&f.outputMint, "out", "", "output mint address")
	cmd.Flags().StringVar(&f.amount, "amount", "", "input amount in whole tokens, e.g. 1.5")
	cmd.Flags().Uint64Var(&f.slippageBps, "slippage-bps", 0, "slippage tolerance in basis points (0 = config default)")
	_ = cmd.MarkFlagRequired("out")
	_ = cmd.MarkFlagRequired("amount")
}

// resolve turns the flag strings into a quote request, looking up the
// input mint's decimals on-chain for base-unit conversion.
func (f *swapFlags) resolve(a *app, cmd *cobra.Command) (venue.Adapter, venue.QuoteRequest, error) {
	adapter, err := venue.ByName(f.venueName, a.venueDeps)
	if err != nil {
		return nil, venue.QuoteRequest{}, err
	}

	in, err := resolveMint(f.inputMint)
	if err != nil {
		return nil, venue.QuoteRequest{}, fmt.Errorf("invalid input mint: %w", err)
	}
	out, err := resolveMint(f.outputMint)
	if err != nil {
		return nil, venue.QuoteRequest{}, fmt.Errorf("invalid output mint: %w", err)
	}

	decimals, err := mintDecimals(cmd.Context(), a.chain, in)
	if err != nil {
		return nil, venue.QuoteRequest{}, fmt.Errorf("resolve input mint decimals: %w", err)
	}
	amountIn, err := swap.ToBaseUnits(f.amount, decimals)
	if err != nil {
		return nil, venue.QuoteRequest{}, err
	}
	if amountIn == 0 {
		return nil, venue.QuoteRequest{}, fmt.Errorf("amount %q is zero in base units", f.amount)
	}

	slippage := f.slippageBps
	if slippage == 0 {
		slippage = uint64(a.cfg.SlippageBps)
	}

	return adapter, venue.QuoteRequest{
		InputMint:   in,
		OutputMint:  out,
		AmountIn:    amountIn,
		SlippageBps: slippage,
	}, nil
}

func newSwapCmd(cfgPath *string) *cobra.Command {
	flags := &swapFlags{}
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute a swap on the selected venue",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, shutdown, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer shutdown()

			ctx, cancel := signalContext()
			defer cancel()
			cmd.SetContext(ctx)

			adapter, qr, err := flags.resolve(a, cmd)
			if err != nil {
				return err
			}

			// Catch late settlements of a timed-out swap; the
			// resolver publishes them on the bus.
			resolved := make(chan events.SwapEvent, 1)
			sub := a.bus.SubscribeFunc(events.SwapResolved, func(_ context.Context, e events.Event) error {
				if se, ok := e.(events.SwapEvent); ok {
					select {
					case resolved <- se:
					default:
					}
				}
				return nil
			})
			defer sub.Unsubscribe()

			start := time.Now()
			result := a.orchestrator.ExecuteSwap(ctx, adapter, swap.Request{
				InputMint:   qr.InputMint,
				OutputMint:  qr.OutputMint,
				AmountIn:    qr.AmountIn,
				SlippageBps: qr.SlippageBps,
				Status: func(status string) {
					fmt.Printf("  status: %s\n", status)
				},
			})
			persistOutcome(ctx, a, adapter.Name(), qr, result, time.Since(start))

			if !result.Success {
				if !result.Signature.IsZero() {
					fmt.Printf("signature: %s\n", result.Signature)
				}
				if result.State == gateway.StateTimedOut && !result.Signature.IsZero() {
					fmt.Println("confirmation timed out, watching for late settlement...")
					if waitForResolution(ctx, a, resolved) {
						return nil
					}
				}
				if result.Err != nil {
					return fmt.Errorf("%s", result.Err.UserMessage())
				}
				return fmt.Errorf("swap did not confirm")
			}

			fmt.Printf("confirmed: %s\n", result.Signature)
			outDecimals, err := mintDecimals(ctx, a.chain, qr.OutputMint)
			if err == nil {
				fmt.Printf("received: %s tokens (%d base units)\n",
					swap.FromBaseUnits(result.OutAmount, outDecimals), result.OutAmount)
			} else {
				fmt.Printf("received: %d base units\n", result.OutAmount)
			}
			if result.Fee != nil && result.Fee.Attempted {
				if result.Fee.Err != nil {
					fmt.Printf("fee transfer failed (swap unaffected): %v\n", result.Fee.Err)
				} else {
					fmt.Printf("fee collected: %d lamports (%s)\n", result.Fee.Amount, result.Fee.Signature)
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newQuoteCmd(cfgPath *string) *cobra.Command {
	flags := &swapFlags{}
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Fetch a quote without executing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, shutdown, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer shutdown()

			ctx, cancel := signalContext()
			defer cancel()
			cmd.SetContext(ctx)

			adapter, qr, err := flags.resolve(a, cmd)
			if err != nil {
				return err
			}

			quote, err := adapter.GetQuote(ctx, qr)
			if err != nil {
				return err
			}

			fmt.Printf("venue:       %s\n", quote.Venue)
			fmt.Printf("in:          %d base units\n", quote.InAmount)
			fmt.Printf("out:         %d base units\n", quote.OutAmount)
			fmt.Printf("min out:     %d base units\n", quote.MinOut)
			if quote.PriceImpact != 0 {
				fmt.Printf("impact:      %.4f%%\n", quote.PriceImpact)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newStatusCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <signature>",
		Short: "Check the confirmation state of a signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, shutdown, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer shutdown()

			ctx, cancel := signalContext()
			defer cancel()

			sig, err := solana.SignatureFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid signature: %w", err)
			}

			st, err := a.gateway.CheckSignature(ctx, sig)
			if err != nil {
				return err
			}
			fmt.Printf("signature: %s\n", sig)
			fmt.Printf("state:     %s\n", st.State)
			if st.Slot > 0 {
				fmt.Printf("slot:      %d\n", st.Slot)
			}
			if st.Err != "" {
				fmt.Printf("on-chain error: %s\n", st.Err)
			}
			return nil
		},
	}
}

func newBalanceCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the active wallet's SOL balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, shutdown, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer shutdown()

			ctx, cancel := signalContext()
			defer cancel()

			capability := a.session.Resolve()
			if capability == nil {
				return fmt.Errorf("no wallet configured")
			}

			lamports, err := a.chain.GetBalance(ctx, capability.PublicKey())
			if err != nil {
				return err
			}
			fmt.Printf("wallet:  %s (%s)\n", capability.Address(), capability.Kind())
			fmt.Printf("balance: %s SOL (%d lamports)\n", swap.FromBaseUnits(lamports, 9), lamports)
			return nil
		},
	}
}

func newHistoryCmd(cfgPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent swaps for the active wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, shutdown, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer shutdown()

			if a.store == nil {
				return fmt.Errorf("no database configured, set database_url to enable history")
			}

			ctx, cancel := signalContext()
			defer cancel()

			capability := a.session.Resolve()
			if capability == nil {
				return fmt.Errorf("no wallet configured")
			}

			swaps, err := a.store.ListSwaps(ctx, capability.Address(), limit, 0)
			if err != nil {
				return err
			}
			if len(swaps) == 0 {
				fmt.Println("no swaps recorded")
				return nil
			}
			for _, s := range swaps {
				fmt.Printf("%s  %-9s %-8s %s -> %s  in=%d out=%d\n",
					s.CreatedAt.Format(time.RFC3339), s.Status, s.Venue,
					s.InputMint, s.OutputMint, s.AmountIn, s.AmountOut)
				fmt.Printf("  signature: %s\n", s.Signature)
				if s.ErrorMessage != "" {
					fmt.Printf("  error: %s\n", s.ErrorMessage)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of swaps to show")
	return cmd
}

// persistOutcome records the attempt and any fee transfer when history
// storage is enabled. Persistence failures are logged, never fatal.
func persistOutcome(ctx context.Context, a *app, venueName string, qr venue.QuoteRequest, result *swap.Result, elapsed time.Duration) {
	if a.store == nil || result.Signature.IsZero() {
		return
	}
	ctx = context.WithoutCancel(ctx)

	walletAddr := ""
	if capability := a.session.Resolve(); capability != nil {
		walletAddr = capability.Address()
	}
	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}
	rec := &models.Swap{
		Signature:     result.Signature.String(),
		WalletAddress: walletAddr,
		Venue:         venueName,
		InputMint:     qr.InputMint.String(),
		OutputMint:    qr.OutputMint.String(),
		AmountIn:      qr.AmountIn,
		AmountOut:     result.OutAmount,
		SlippageBps:   qr.SlippageBps,
		Status:        result.State.String(),
		ErrorMessage:  errMsg,
		ExecutionSecs: elapsed.Seconds(),
	}
	if err := a.store.SaveSwap(ctx, rec); err != nil {
		a.log.Warn("failed to persist swap record", zap.Error(err))
	}

	if result.Fee == nil || !result.Fee.Attempted {
		return
	}
	feeStatus := "collected"
	feeErr := ""
	if result.Fee.Err != nil {
		feeStatus = "failed"
		feeErr = result.Fee.Err.Error()
	}
	feeSig := ""
	if !result.Fee.Signature.IsZero() {
		feeSig = result.Fee.Signature.String()
	}
	ft := &models.FeeTransfer{
		SwapSignature: result.Signature.String(),
		Signature:     feeSig,
		Recipient:     result.Fee.Recipient.String(),
		Amount:        result.Fee.Amount,
		Status:        feeStatus,
		ErrorMessage:  feeErr,
	}
	if err := a.store.SaveFeeTransfer(ctx, ft); err != nil {
		a.log.Warn("failed to persist fee transfer", zap.Error(err))
	}
}

// waitForResolution blocks until the resolver settles a timed-out
// swap or the follow-up budget runs out. Returns true on confirmation.
func waitForResolution(ctx context.Context, a *app, resolved <-chan events.SwapEvent) bool {
	timer := time.NewTimer(35 * time.Second)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		fmt.Println("still unresolved; check later with the status command")
		return false
	case se := <-resolved:
		if se.Err == "" {
			fmt.Printf("resolved: confirmed (%s)\n", se.Signature)
			updateStoredStatus(ctx, a, se.Signature.String(), "confirmed", "")
			return true
		}
		fmt.Printf("resolved: failed on-chain: %s\n", se.Err)
		updateStoredStatus(ctx, a, se.Signature.String(), "failed", se.Err)
		return false
	}
}

func updateStoredStatus(ctx context.Context, a *app, signature, status, errMsg string) {
	if a.store == nil {
		return
	}
	if err := a.store.UpdateSwapStatus(context.WithoutCancel(ctx), signature, status, errMsg); err != nil {
		a.log.Warn("failed to update swap record", zap.Error(err))
	}
}
