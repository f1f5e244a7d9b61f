package swap

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/chain"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/events"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/fee"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/gateway"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/txcodec"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/venue"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/wallet"
)

var swapSig = solana.Signature{7, 7}

type fakeChain struct {
	mu        sync.Mutex
	sendCalls int
	confirm   bool
}

func (f *fakeChain) SendRawTransaction(ctx context.Context, raw []byte, opts chain.SendOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	return swapSig, nil
}

func (f *fakeChain) GetSignatureStatuses(ctx context.Context, searchHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entry *rpc.SignatureStatusesResult
	if f.confirm {
		entry = &rpc.SignatureStatusesResult{
			Slot:               1,
			ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		}
	}
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{entry},
	}, nil
}

func (f *fakeChain) Commitment() rpc.CommitmentType { return rpc.CommitmentConfirmed }

func (f *fakeChain) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

type fakeAdapter struct {
	quote      *venue.Quote
	quoteErr   error
	buildErr   error
	onBuild    func()
	buildCalls int
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) GetQuote(ctx context.Context, req venue.QuoteRequest) (*venue.Quote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

func (f *fakeAdapter) BuildSwapTransaction(ctx context.Context, quote *venue.Quote, owner solana.PublicKey) (txcodec.Envelope, error) {
	f.buildCalls++
	if f.onBuild != nil {
		f.onBuild()
	}
	if f.buildErr != nil {
		return txcodec.Envelope{}, f.buildErr
	}
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, owner, solana.NewWallet().PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(owner),
	)
	if err != nil {
		return txcodec.Envelope{}, err
	}
	return txcodec.FromLegacy(tx), nil
}

type fixture struct {
	orchestrator *Orchestrator
	session      *wallet.Session
	chain        *fakeChain
	bus          *events.Bus
	gateway      *gateway.Gateway
}

func newFixture(t *testing.T, fc *fakeChain, fees *fee.Collector) *fixture {
	t.Helper()
	session := wallet.NewSession(zap.NewNop())
	w := solana.NewWallet()
	emb, err := wallet.NewEmbedded(w.PrivateKey.String())
	require.NoError(t, err)
	session.SetCapability(emb)

	codec := txcodec.New(zap.NewNop())
	gw := gateway.New(fc, gateway.Config{
		ConfirmRetries: 2,
		ConfirmDelay:   time.Millisecond,
	}, zap.NewNop(), nil)
	blockhash := func(ctx context.Context) (solana.Hash, error) {
		return solana.Hash{2}, nil
	}
	bus := events.NewBus(zap.NewNop(), 16)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })

	return &fixture{
		orchestrator: NewOrchestrator(session, codec, gw, blockhash, fees, bus, zap.NewNop(), nil),
		session:      session,
		chain:        fc,
		bus:          bus,
		gateway:      gw,
	}
}

func testQuote() *venue.Quote {
	return &venue.Quote{
		Venue:     "fake",
		InAmount:  1_000_000,
		OutAmount: 900_000,
		MinOut:    890_000,
	}
}

func testRequest() Request {
	return Request{
		InputMint:   solana.NewWallet().PublicKey(),
		OutputMint:  solana.NewWallet().PublicKey(),
		AmountIn:    1_000_000,
		SlippageBps: 100,
	}
}

func waitEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("expected event was not published")
		return nil
	}
}

func TestExecuteSwapConfirmed(t *testing.T) {
	fc := &fakeChain{confirm: true}
	fx := newFixture(t, fc, nil)

	got := make(chan events.Event, 1)
	fx.bus.SubscribeFunc(events.SwapConfirmed, func(_ context.Context, e events.Event) error {
		got <- e
		return nil
	})

	result := fx.orchestrator.ExecuteSwap(context.Background(), &fakeAdapter{quote: testQuote()}, testRequest())

	require.True(t, result.Success)
	assert.Equal(t, gateway.StateConfirmed, result.State)
	assert.Equal(t, swapSig, result.Signature)
	assert.Equal(t, uint64(900_000), result.OutAmount)
	assert.Nil(t, result.Err)
	assert.Equal(t, 1, fc.sends())

	se, ok := waitEvent(t, got).(events.SwapEvent)
	require.True(t, ok)
	assert.Equal(t, swapSig, se.Signature)
	assert.Equal(t, uint64(900_000), se.AmountOut)
}

func TestExecuteSwapNoWallet(t *testing.T) {
	fc := &fakeChain{}
	fx := newFixture(t, fc, nil)
	fx.session.Clear()

	adapter := &fakeAdapter{quote: testQuote()}
	result := fx.orchestrator.ExecuteSwap(context.Background(), adapter, testRequest())

	require.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, KindWalletNotConnected, result.Err.Kind)
	assert.Equal(t, 0, adapter.buildCalls)
	assert.Equal(t, 0, fc.sends())
}

func TestExecuteSwapQuoteUnavailable(t *testing.T) {
	fc := &fakeChain{}
	fx := newFixture(t, fc, nil)

	adapter := &fakeAdapter{quoteErr: fmt.Errorf("%w: no route", venue.ErrQuoteUnavailable)}
	result := fx.orchestrator.ExecuteSwap(context.Background(), adapter, testRequest())

	require.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, KindQuoteUnavailable, result.Err.Kind)
	assert.True(t, result.Err.Kind.Recoverable())
	assert.Equal(t, 0, adapter.buildCalls, "build must not run without a quote")
}

func TestExecuteSwapBuildFailed(t *testing.T) {
	fc := &fakeChain{}
	fx := newFixture(t, fc, nil)

	adapter := &fakeAdapter{
		quote:    testQuote(),
		buildErr: fmt.Errorf("%w: pool drained", venue.ErrBuildFailed),
	}
	result := fx.orchestrator.ExecuteSwap(context.Background(), adapter, testRequest())

	require.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, KindBuildFailed, result.Err.Kind)
	assert.NotNil(t, result.Quote, "the quote is still useful for retry display")
	assert.Equal(t, 0, fc.sends())
}

func TestExecuteSwapWalletSwitchAborts(t *testing.T) {
	fc := &fakeChain{confirm: true}
	fx := newFixture(t, fc, nil)

	adapter := &fakeAdapter{quote: testQuote()}
	adapter.onBuild = func() {
		// The user switches wallets while the transaction is being built.
		w := solana.NewWallet()
		emb, err := wallet.NewEmbedded(w.PrivateKey.String())
		require.NoError(t, err)
		fx.session.SetCapability(emb)
	}

	result := fx.orchestrator.ExecuteSwap(context.Background(), adapter, testRequest())

	require.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, KindWalletNotConnected, result.Err.Kind)
	assert.Equal(t, 0, fc.sends(), "nothing may be signed against a replaced wallet")
}

func TestExecuteSwapTimedOut(t *testing.T) {
	fc := &fakeChain{confirm: false}
	fx := newFixture(t, fc, nil)

	got := make(chan events.Event, 1)
	fx.bus.SubscribeFunc(events.SwapTimedOut, func(_ context.Context, e events.Event) error {
		got <- e
		return nil
	})

	result := fx.orchestrator.ExecuteSwap(context.Background(), &fakeAdapter{quote: testQuote()}, testRequest())

	require.False(t, result.Success)
	assert.Equal(t, gateway.StateTimedOut, result.State)
	assert.Equal(t, swapSig, result.Signature, "timed-out swaps keep the signature")
	require.NotNil(t, result.Err)
	assert.Equal(t, KindConfirmationTimeout, result.Err.Kind)
	assert.True(t, result.Err.Kind.Recoverable())

	se, ok := waitEvent(t, got).(events.SwapEvent)
	require.True(t, ok)
	assert.Equal(t, swapSig, se.Signature)
}

func TestExecuteSwapCollectsFee(t *testing.T) {
	fc := &fakeChain{confirm: true}

	recipient := solana.NewWallet().PublicKey()
	codec := txcodec.New(zap.NewNop())
	gw := gateway.New(fc, gateway.Config{ConfirmRetries: 2, ConfirmDelay: time.Millisecond}, zap.NewNop(), nil)
	blockhash := func(ctx context.Context) (solana.Hash, error) { return solana.Hash{2}, nil }
	fees := fee.NewCollector(recipient, 50, codec, gw, blockhash, nil, zap.NewNop(), nil)

	fx := newFixture(t, fc, fees)

	result := fx.orchestrator.ExecuteSwap(context.Background(), &fakeAdapter{quote: testQuote()}, testRequest())

	require.True(t, result.Success)
	require.NotNil(t, result.Fee)
	assert.True(t, result.Fee.Attempted)
	assert.NoError(t, result.Fee.Err)
	// 900_000 out at 50 bps.
	assert.Equal(t, uint64(4_500), result.Fee.Amount)
	// Swap broadcast plus fee broadcast.
	assert.Equal(t, 2, fc.sends())
}

func TestExecuteSwapDeclinedFeeKeepsSuccess(t *testing.T) {
	fc := &fakeChain{confirm: true}

	recipient := solana.NewWallet().PublicKey()
	codec := txcodec.New(zap.NewNop())
	gw := gateway.New(fc, gateway.Config{ConfirmRetries: 2, ConfirmDelay: time.Millisecond}, zap.NewNop(), nil)
	blockhash := func(ctx context.Context) (solana.Hash, error) { return solana.Hash{2}, nil }
	decline := func(ctx context.Context, amount uint64, recipient solana.PublicKey) bool { return false }
	fees := fee.NewCollector(recipient, 50, codec, gw, blockhash, decline, zap.NewNop(), nil)

	fx := newFixture(t, fc, fees)

	result := fx.orchestrator.ExecuteSwap(context.Background(), &fakeAdapter{quote: testQuote()}, testRequest())

	require.True(t, result.Success, "a declined fee never affects the swap outcome")
	require.NotNil(t, result.Fee)
	assert.True(t, result.Fee.Declined)
	assert.Equal(t, 1, fc.sends())
}

func TestResolverSettlesTimedOutSwap(t *testing.T) {
	fc := &fakeChain{confirm: true}
	gw := gateway.New(fc, gateway.Config{ConfirmRetries: 1, ConfirmDelay: time.Millisecond}, zap.NewNop(), nil)
	bus := events.NewBus(zap.NewNop(), 16)
	defer bus.Shutdown(context.Background())

	got := make(chan events.Event, 1)
	bus.SubscribeFunc(events.SwapResolved, func(_ context.Context, e events.Event) error {
		got <- e
		return nil
	})

	r := NewResolver(gw, bus, 5*time.Millisecond, 3, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	require.NoError(t, bus.Publish(events.NewSwapEvent(events.SwapTimedOut, "fake", swapSig,
		solana.PublicKey{}, solana.PublicKey{}, 100, 0, "confirmation timed out")))

	se, ok := waitEvent(t, got).(events.SwapEvent)
	require.True(t, ok)
	assert.Equal(t, events.SwapResolved, se.Type())
	assert.Equal(t, swapSig, se.Signature)
	assert.Empty(t, se.Err, "a confirmed resolution clears the timeout error")
}
