package pumpswap

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePool(p *Pool, withCoinCreator bool) []byte {
	buf := append([]byte{}, PoolDiscriminator...)
	buf = append(buf, p.PoolBump)
	buf = binary.LittleEndian.AppendUint16(buf, p.Index)
	buf = append(buf, p.Creator.Bytes()...)
	buf = append(buf, p.BaseMint.Bytes()...)
	buf = append(buf, p.QuoteMint.Bytes()...)
	buf = append(buf, p.LPMint.Bytes()...)
	buf = append(buf, p.PoolBaseTokenAccount.Bytes()...)
	buf = append(buf, p.PoolQuoteTokenAccount.Bytes()...)
	buf = binary.LittleEndian.AppendUint64(buf, p.LPSupply)
	if withCoinCreator {
		buf = append(buf, p.CoinCreator.Bytes()...)
	}
	return buf
}

func encodeGlobalConfig(cfg *GlobalConfig) []byte {
	buf := append([]byte{}, GlobalConfigDiscriminator...)
	buf = append(buf, cfg.Admin.Bytes()...)
	buf = binary.LittleEndian.AppendUint64(buf, cfg.LPFeeBasisPoints)
	buf = binary.LittleEndian.AppendUint64(buf, cfg.ProtocolFeeBasisPoints)
	buf = append(buf, cfg.DisableFlags)
	for _, r := range cfg.ProtocolFeeRecipients {
		buf = append(buf, r.Bytes()...)
	}
	return buf
}

// encodeTokenAccount fabricates an SPL token account holding amount.
func encodeTokenAccount(amount uint64) []byte {
	data := make([]byte, 165)
	binary.LittleEndian.PutUint64(data[tokenAccountAmountOffset:], amount)
	return data
}

func samplePool() *Pool {
	return &Pool{
		PoolBump:              254,
		Index:                 3,
		Creator:               solana.NewWallet().PublicKey(),
		BaseMint:              solana.NewWallet().PublicKey(),
		QuoteMint:             WrappedSOLMint,
		LPMint:                solana.NewWallet().PublicKey(),
		PoolBaseTokenAccount:  solana.NewWallet().PublicKey(),
		PoolQuoteTokenAccount: solana.NewWallet().PublicKey(),
		LPSupply:              123_456_789,
		CoinCreator:           solana.NewWallet().PublicKey(),
	}
}

func TestParsePool(t *testing.T) {
	want := samplePool()

	got, err := ParsePool(encodePool(want, true))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParsePoolWithoutCoinCreator(t *testing.T) {
	want := samplePool()

	got, err := ParsePool(encodePool(want, false))
	require.NoError(t, err)

	assert.True(t, got.CoinCreator.IsZero())
	want.CoinCreator = solana.PublicKey{}
	assert.Equal(t, want, got)
}

func TestParsePoolRejectsBadData(t *testing.T) {
	_, err := ParsePool(nil)
	assert.Error(t, err)

	_, err = ParsePool([]byte{1, 2, 3})
	assert.Error(t, err)

	// Right length, wrong discriminator.
	data := encodePool(samplePool(), true)
	data[0] ^= 0xff
	_, err = ParsePool(data)
	assert.ErrorContains(t, err, "discriminator")

	// Valid discriminator, truncated body.
	data = encodePool(samplePool(), true)
	_, err = ParsePool(data[:40])
	assert.ErrorContains(t, err, "too short")
}

func TestParseGlobalConfig(t *testing.T) {
	want := &GlobalConfig{
		Admin:                  solana.NewWallet().PublicKey(),
		LPFeeBasisPoints:       25,
		ProtocolFeeBasisPoints: 5,
		DisableFlags:           0,
	}
	for i := range want.ProtocolFeeRecipients {
		want.ProtocolFeeRecipients[i] = solana.NewWallet().PublicKey()
	}

	got, err := ParseGlobalConfig(encodeGlobalConfig(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseGlobalConfigRejectsBadData(t *testing.T) {
	_, err := ParseGlobalConfig([]byte{149, 8})
	assert.Error(t, err)

	data := encodeGlobalConfig(&GlobalConfig{})
	data[7] ^= 0xff
	_, err = ParseGlobalConfig(data)
	assert.ErrorContains(t, err, "discriminator")

	data = encodeGlobalConfig(&GlobalConfig{})
	_, err = ParseGlobalConfig(data[:100])
	assert.ErrorContains(t, err, "too short")
}

func TestParseTokenAmount(t *testing.T) {
	assert.Equal(t, uint64(742_080), parseTokenAmount(encodeTokenAccount(742_080)))
	assert.Equal(t, uint64(0), parseTokenAmount(nil))
	assert.Equal(t, uint64(0), parseTokenAmount(make([]byte, 64)))
}
