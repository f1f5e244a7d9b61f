package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/chain"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/config"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/events"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/fee"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/gateway"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/logger"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/metrics"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/storage"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/storage/postgres"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/swap"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/txcodec"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue/httpx"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue/jupiter"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue/pumpswap"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue/raydium"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/wallet"
)

const wrappedSOL = "So11111111111111111111111111111111111111112"

// app holds everything a command needs after wiring.
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	chain        *chain.Client
	session      *wallet.Session
	gateway      *gateway.Gateway
	orchestrator *swap.Orchestrator
	venueDeps    venue.Deps
	bus          *events.Bus
	store        storage.Store
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "swapctl",
		Short:         "Sign, send and track Solana swaps across venues",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "configs/config.json", "path to config file")

	root.AddCommand(
		newSwapCmd(&cfgPath),
		newQuoteCmd(&cfgPath),
		newStatusCmd(&cfgPath),
		newBalanceCmd(&cfgPath),
		newHistoryCmd(&cfgPath),
	)
	return root
}

// buildApp wires config, logging, RPC, wallet session and the
// orchestrator. Callers must defer shutdown().
func buildApp(cfgPath string) (*app, func(), error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	if cfg.LogFile != "" {
		logCfg.LogFile = cfg.LogFile
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	pool, err := chain.NewPool(cfg.RPCList, cfg.Commitment, log.Logger, recorder)
	if err != nil {
		return nil, nil, fmt.Errorf("init rpc pool: %w", err)
	}
	chainClient := pool.Next()

	session := wallet.NewSession(log.Logger)
	if cfg.WalletPrivateKey != "" {
		emb, err := wallet.NewEmbedded(cfg.WalletPrivateKey)
		if err != nil {
			return nil, nil, fmt.Errorf("load wallet key: %w", err)
		}
		session.SetCapability(emb)
	}
	if cfg.SignerServiceURL != "" && cfg.SessionAddress != "" {
		ext, err := wallet.NewExternal(cfg.SessionAddress, wallet.NewHTTPHandle(cfg.SignerServiceURL))
		if err != nil {
			return nil, nil, fmt.Errorf("init external signer: %w", err)
		}
		session.SetCapability(ext)
	}

	codec := txcodec.New(log.Logger)
	gw := gateway.New(chainClient, gateway.Config{
		ConfirmRetries: cfg.ConfirmRetries,
		ConfirmDelay:   cfg.ConfirmDelay(),
		FollowUpChecks: cfg.FollowUpChecks,
	}, log.Logger, recorder)

	var collector *fee.Collector
	if cfg.FeeRecipient != "" && cfg.FeeRateBps > 0 {
		recipient, err := solana.PublicKeyFromBase58(cfg.FeeRecipient)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid fee recipient: %w", err)
		}
		collector = fee.NewCollector(recipient, uint64(cfg.FeeRateBps), codec, gw,
			chainClient.GetLatestBlockhash, promptFeeApproval, log.Logger, recorder)
	}

	bus := events.NewBus(log.Logger, 64)

	var store storage.Store
	if cfg.DatabaseURL != "" {
		store, err = postgres.NewStore(cfg.DatabaseURL, log.Logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init storage: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	orchestrator := swap.NewOrchestrator(session, codec, gw,
		chainClient.GetLatestBlockhash, collector, bus, log.Logger, recorder)

	resolverCtx, resolverCancel := context.WithCancel(context.Background())
	resolver := swap.NewResolver(gw, bus, 0, 0, log.Logger)
	resolver.Start(resolverCtx)

	httpClient := httpx.New(log.Logger,
		httpx.WithTimeout(cfg.HTTPTimeout()),
		httpx.WithRetries(cfg.HTTPRetries),
	)
	deps := venue.Deps{
		Jupiter:                  jupiter.NewClient(cfg.JupiterURL, httpClient, log.Logger),
		Raydium:                  raydium.NewClient(cfg.RaydiumURL, httpClient, log.Logger),
		PumpSwap:                 pumpswap.NewClient(chainClient, log.Logger),
		PriorityFeeMicroLamports: cfg.PriorityFeeMicroLamports,
		Logger:                   log.Logger,
	}

	a := &app{
		cfg:          cfg,
		log:          log,
		chain:        chainClient,
		session:      session,
		gateway:      gw,
		orchestrator: orchestrator,
		venueDeps:    deps,
		bus:          bus,
		store:        store,
	}
	shutdown := func() {
		resolver.Stop()
		resolverCancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = bus.Shutdown(shutdownCtx)
		if store != nil {
			_ = store.Close()
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		_ = log.Sync()
	}
	return a, shutdown, nil
}

// signalContext cancels on SIGINT/SIGTERM so in-flight work can abort
// cleanly before broadcast.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// promptFeeApproval asks on the terminal before the service fee is
// transferred. This is deliberately separate from the swap approval.
func promptFeeApproval(ctx context.Context, amount uint64, recipient solana.PublicKey) bool {
	fmt.Printf("Approve service fee of %d lamports to %s? [y/N]: ", amount, recipient)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// resolveMint accepts either a base58 mint address or the shorthand
// "SOL" for wrapped SOL.
func resolveMint(s string) (solana.PublicKey, error) {
	if strings.EqualFold(strings.TrimSpace(s), "sol") {
		return solana.PublicKeyFromBase58(wrappedSOL)
	}
	return solana.PublicKeyFromBase58(strings.TrimSpace(s))
}

// mintDecimals looks up mint precision, defaulting to 9 for SOL.
func mintDecimals(ctx context.Context, c *chain.Client, mint solana.PublicKey) (uint8, error) {
	if mint.String() == wrappedSOL {
		return 9, nil
	}
	return c.GetTokenDecimals(ctx, mint)
}
