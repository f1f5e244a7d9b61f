package gateway

import (
	"context"
	"errors"
	"strings"
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
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/txcodec"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/wallet"
)

var testSig = solana.Signature{1, 2, 3}

// fakeChain scripts RPC responses. Each GetSignatureStatuses call pops
// the next entry from statuses; a nil entry means "status unknown".
type fakeChain struct {
	mu          sync.Mutex
	sendCalls   int
	statusCalls int
	historyReqs int
	sendErr     error
	statusErr   error
	statuses    []*rpc.SignatureStatusesResult
	commitment  rpc.CommitmentType
}

func (f *fakeChain) SendRawTransaction(ctx context.Context, raw []byte, opts chain.SendOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return testSig, nil
}

func (f *fakeChain) GetSignatureStatuses(ctx context.Context, searchHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if searchHistory {
		f.historyReqs++
	}
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	var entry *rpc.SignatureStatusesResult
	if len(f.statuses) > 0 {
		entry = f.statuses[0]
		f.statuses = f.statuses[1:]
	}
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{entry},
	}, nil
}

func (f *fakeChain) Commitment() rpc.CommitmentType {
	if f.commitment == "" {
		return rpc.CommitmentConfirmed
	}
	return f.commitment
}

func confirmedStatus() *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{
		Slot:               1000,
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
	}
}

func failedStatus() *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{
		Slot: 1000,
		Err:  map[string]any{"InstructionError": []any{0, "Custom"}},
	}
}

func testCapability(t *testing.T) (wallet.Capability, solana.PublicKey) {
	t.Helper()
	w := solana.NewWallet()
	emb, err := wallet.NewEmbedded(w.PrivateKey.String())
	require.NoError(t, err)
	return emb, w.PublicKey()
}

func testNormalized(t *testing.T, payer solana.PublicKey) *txcodec.Normalized {
	t.Helper()
	to := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1_000, payer, to).Build(),
		},
		solana.Hash{5},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	return &txcodec.Normalized{Kind: txcodec.KindLegacy, Tx: tx}
}

func fastConfig() Config {
	return Config{ConfirmRetries: 3, ConfirmDelay: time.Millisecond, FollowUpChecks: 2}
}

func TestSendConfirmed(t *testing.T) {
	capability, payer := testCapability(t)
	fc := &fakeChain{statuses: []*rpc.SignatureStatusesResult{nil, confirmedStatus()}}
	g := New(fc, fastConfig(), zap.NewNop(), nil)

	var updates []string
	receipt := g.Send(context.Background(), capability, testNormalized(t, payer), func(s string) {
		updates = append(updates, s)
	})

	assert.Equal(t, StateConfirmed, receipt.State)
	assert.Equal(t, testSig, receipt.Signature)
	assert.NoError(t, receipt.Err)
	assert.Equal(t, 1, fc.sendCalls)
	assert.NotEmpty(t, updates)
}

func TestSendTimedOutKeepsSignature(t *testing.T) {
	capability, payer := testCapability(t)
	fc := &fakeChain{}
	g := New(fc, fastConfig(), zap.NewNop(), nil)

	receipt := g.Send(context.Background(), capability, testNormalized(t, payer), nil)

	assert.Equal(t, StateTimedOut, receipt.State)
	assert.Equal(t, testSig, receipt.Signature, "signature must survive a timeout for follow-up checks")
	assert.ErrorIs(t, receipt.Err, ErrConfirmationTimeout)
	// 3 confirmation polls plus 2 history-searching follow-ups.
	assert.Equal(t, 5, fc.statusCalls)
	assert.Equal(t, 2, fc.historyReqs)
}

func TestSendOnChainFailure(t *testing.T) {
	capability, payer := testCapability(t)
	fc := &fakeChain{statuses: []*rpc.SignatureStatusesResult{failedStatus()}}
	g := New(fc, fastConfig(), zap.NewNop(), nil)

	receipt := g.Send(context.Background(), capability, testNormalized(t, payer), nil)

	assert.Equal(t, StateFailed, receipt.State)
	assert.Equal(t, testSig, receipt.Signature)
	assert.ErrorIs(t, receipt.Err, ErrOnChainFailure)
}

func TestSendCancelledBeforeBroadcast(t *testing.T) {
	capability, payer := testCapability(t)
	fc := &fakeChain{}
	g := New(fc, fastConfig(), zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	receipt := g.Send(ctx, capability, testNormalized(t, payer), nil)

	assert.Equal(t, StateFailed, receipt.State)
	assert.True(t, receipt.Signature.IsZero())
	assert.ErrorIs(t, receipt.Err, context.Canceled)
	assert.Equal(t, 0, fc.sendCalls, "nothing may reach the chain after cancellation")
}

func TestSendConfirmsDespiteLateCancellation(t *testing.T) {
	capability, payer := testCapability(t)
	fc := &fakeChain{statuses: []*rpc.SignatureStatusesResult{confirmedStatus()}}
	g := New(fc, fastConfig(), zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *Receipt, 1)
	go func() {
		done <- g.Send(ctx, capability, testNormalized(t, payer), func(msg string) {
			// The caller walks away the moment the transaction is live.
			if strings.HasPrefix(msg, "Transaction submitted") {
				cancel()
			}
		})
	}()

	receipt := <-done
	assert.Equal(t, StateConfirmed, receipt.State)
	assert.Equal(t, testSig, receipt.Signature)
}

type decliningCapability struct {
	wallet.Capability
}

func (d decliningCapability) AcquireSigner(ctx context.Context) (wallet.Signer, error) {
	return nil, wallet.ErrSigningDeclined
}

func TestSendSigningDeclined(t *testing.T) {
	capability, payer := testCapability(t)
	fc := &fakeChain{}
	g := New(fc, fastConfig(), zap.NewNop(), nil)

	receipt := g.Send(context.Background(), decliningCapability{capability}, testNormalized(t, payer), nil)

	assert.Equal(t, StateFailed, receipt.State)
	assert.ErrorIs(t, receipt.Err, wallet.ErrSigningDeclined)
	assert.Equal(t, 0, fc.sendCalls)
	assert.Equal(t, 0, fc.statusCalls)
}

func TestSendSurvivesPanickingCallback(t *testing.T) {
	capability, payer := testCapability(t)
	fc := &fakeChain{statuses: []*rpc.SignatureStatusesResult{confirmedStatus()}}
	g := New(fc, fastConfig(), zap.NewNop(), nil)

	receipt := g.Send(context.Background(), capability, testNormalized(t, payer), func(string) {
		panic("callback bug")
	})

	assert.Equal(t, StateConfirmed, receipt.State)
}

func TestSendTransientRPCErrorsKeepPolling(t *testing.T) {
	capability, payer := testCapability(t)
	fc := &fakeChain{statusErr: errors.New("rpc flake")}
	g := New(fc, Config{ConfirmRetries: 2, ConfirmDelay: time.Millisecond}, zap.NewNop(), nil)

	receipt := g.Send(context.Background(), capability, testNormalized(t, payer), nil)

	assert.Equal(t, StateTimedOut, receipt.State)
	assert.Equal(t, testSig, receipt.Signature)
}

func TestCheckSignature(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		fc := &fakeChain{statuses: []*rpc.SignatureStatusesResult{confirmedStatus()}}
		g := New(fc, fastConfig(), zap.NewNop(), nil)

		st, err := g.CheckSignature(context.Background(), testSig)
		require.NoError(t, err)
		assert.Equal(t, StateConfirmed, st.State)
		assert.Equal(t, uint64(1000), uint64(st.Slot))
		assert.Equal(t, 1, fc.historyReqs, "follow-up checks must search history")
	})

	t.Run("failed", func(t *testing.T) {
		fc := &fakeChain{statuses: []*rpc.SignatureStatusesResult{failedStatus()}}
		g := New(fc, fastConfig(), zap.NewNop(), nil)

		st, err := g.CheckSignature(context.Background(), testSig)
		require.NoError(t, err)
		assert.Equal(t, StateFailed, st.State)
		assert.NotEmpty(t, st.Err)
	})

	t.Run("unknown", func(t *testing.T) {
		fc := &fakeChain{}
		g := New(fc, fastConfig(), zap.NewNop(), nil)

		st, err := g.CheckSignature(context.Background(), testSig)
		require.NoError(t, err)
		assert.Equal(t, StateConfirming, st.State)
	})
}

func TestCommitmentReached(t *testing.T) {
	assert.True(t, commitmentReached(rpc.ConfirmationStatusConfirmed, rpc.CommitmentConfirmed))
	assert.True(t, commitmentReached(rpc.ConfirmationStatusFinalized, rpc.CommitmentConfirmed))
	assert.False(t, commitmentReached(rpc.ConfirmationStatusProcessed, rpc.CommitmentConfirmed))
	assert.False(t, commitmentReached(rpc.ConfirmationStatusConfirmed, rpc.CommitmentFinalized))
	assert.True(t, commitmentReached(rpc.ConfirmationStatusProcessed, rpc.CommitmentProcessed))
	assert.False(t, commitmentReached("", rpc.CommitmentProcessed))
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateConfirmed.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateTimedOut.Terminal())
	assert.False(t, StateConfirming.Terminal())
	assert.False(t, StateIdle.Terminal())
}
