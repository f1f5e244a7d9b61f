package fee

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/chain"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/gateway"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/txcodec"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/wallet"
)

var feeSig = solana.Signature{9, 9}

type fakeChain struct {
	mu        sync.Mutex
	sendCalls int
	confirm   bool
}

func (f *fakeChain) SendRawTransaction(ctx context.Context, raw []byte, opts chain.SendOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	return feeSig, nil
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

func testCollector(t *testing.T, fc *fakeChain, approve ApproveFunc) (*Collector, wallet.Capability, solana.PublicKey) {
	t.Helper()
	recipient := solana.NewWallet().PublicKey()
	codec := txcodec.New(zap.NewNop())
	gw := gateway.New(fc, gateway.Config{
		ConfirmRetries: 2,
		ConfirmDelay:   time.Millisecond,
	}, zap.NewNop(), nil)
	blockhash := func(ctx context.Context) (solana.Hash, error) {
		return solana.Hash{4}, nil
	}
	c := NewCollector(recipient, 50, codec, gw, blockhash, approve, zap.NewNop(), nil)

	w := solana.NewWallet()
	emb, err := wallet.NewEmbedded(w.PrivateKey.String())
	require.NoError(t, err)
	return c, emb, recipient
}

func TestAmount(t *testing.T) {
	c, _, _ := testCollector(t, &fakeChain{}, nil)

	assert.Equal(t, uint64(5_000), c.Amount(1_000_000))
	assert.Equal(t, uint64(0), c.Amount(0))
	// Rounds down: 199 * 50 / 10_000 = 0.995.
	assert.Equal(t, uint64(0), c.Amount(199))
	assert.Equal(t, uint64(1), c.Amount(200))
	// No intermediate overflow on large outputs.
	assert.Equal(t, uint64(3_689_348_814_741_910_200/200), c.Amount(3_689_348_814_741_910_200))
}

func TestMaybeCollectZeroFeeIsNoOp(t *testing.T) {
	fc := &fakeChain{confirm: true}
	c, capability, recipient := testCollector(t, fc, nil)

	rec := c.MaybeCollect(context.Background(), 0, capability, nil)

	assert.False(t, rec.Attempted)
	assert.False(t, rec.Declined)
	assert.Equal(t, uint64(0), rec.Amount)
	assert.Equal(t, recipient, rec.Recipient)
	assert.Equal(t, 0, fc.sendCalls)
}

func TestMaybeCollectDeclined(t *testing.T) {
	fc := &fakeChain{confirm: true}
	var asked uint64
	c, capability, _ := testCollector(t, fc, func(ctx context.Context, amount uint64, recipient solana.PublicKey) bool {
		asked = amount
		return false
	})

	rec := c.MaybeCollect(context.Background(), 1_000_000, capability, nil)

	assert.False(t, rec.Attempted)
	assert.True(t, rec.Declined)
	assert.Equal(t, uint64(5_000), asked)
	assert.Equal(t, 0, fc.sendCalls, "a declined fee must never reach the chain")
}

func TestMaybeCollectCollected(t *testing.T) {
	fc := &fakeChain{confirm: true}
	c, capability, _ := testCollector(t, fc, func(ctx context.Context, amount uint64, recipient solana.PublicKey) bool {
		return true
	})

	rec := c.MaybeCollect(context.Background(), 1_000_000, capability, nil)

	require.True(t, rec.Attempted)
	assert.NoError(t, rec.Err)
	assert.Equal(t, uint64(5_000), rec.Amount)
	assert.Equal(t, gateway.StateConfirmed, rec.State)
	assert.Equal(t, feeSig, rec.Signature)
	assert.Equal(t, 1, fc.sendCalls)
}

func TestMaybeCollectTransferTimeout(t *testing.T) {
	fc := &fakeChain{confirm: false}
	c, capability, _ := testCollector(t, fc, nil)

	rec := c.MaybeCollect(context.Background(), 1_000_000, capability, nil)

	require.True(t, rec.Attempted)
	assert.Error(t, rec.Err)
	assert.NotEqual(t, gateway.StateConfirmed, rec.State)
	assert.Equal(t, feeSig, rec.Signature,
		"signature kept for follow-up even when the fee transfer does not confirm")
}
