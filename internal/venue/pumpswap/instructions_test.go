package pumpswap

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSwapParams(isBuy bool) *SwapInstructionParams {
	return &SwapInstructionParams{
		IsBuy:                            isBuy,
		PoolAddress:                      solana.NewWallet().PublicKey(),
		User:                             solana.NewWallet().PublicKey(),
		GlobalConfig:                     solana.NewWallet().PublicKey(),
		BaseMint:                         solana.NewWallet().PublicKey(),
		QuoteMint:                        WrappedSOLMint,
		UserBaseTokenAccount:             solana.NewWallet().PublicKey(),
		UserQuoteTokenAccount:            solana.NewWallet().PublicKey(),
		PoolBaseTokenAccount:             solana.NewWallet().PublicKey(),
		PoolQuoteTokenAccount:            solana.NewWallet().PublicKey(),
		ProtocolFeeRecipient:             solana.NewWallet().PublicKey(),
		ProtocolFeeRecipientTokenAccount: solana.NewWallet().PublicKey(),
		EventAuthority:                   solana.NewWallet().PublicKey(),
		CoinCreatorVaultATA:              solana.NewWallet().PublicKey(),
		CoinCreatorVaultAuthority:        solana.NewWallet().PublicKey(),
		Amount1:                          1_000_000,
		Amount2:                          2_500_000,
	}
}

func TestCreateSwapInstructionData(t *testing.T) {
	buy := createSwapInstruction(sampleSwapParams(true))
	data, err := buy.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, buyDiscriminator, data[0:8])
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(2_500_000), binary.LittleEndian.Uint64(data[16:24]))

	sell := createSwapInstruction(sampleSwapParams(false))
	data, err = sell.Data()
	require.NoError(t, err)
	assert.Equal(t, sellDiscriminator, data[0:8])
}

func TestCreateSwapInstructionAccounts(t *testing.T) {
	params := sampleSwapParams(true)
	ix := createSwapInstruction(params)

	assert.Equal(t, ProgramID, ix.ProgramID())

	accounts := ix.Accounts()
	require.Len(t, accounts, 19)

	wantKeys := []solana.PublicKey{
		params.PoolAddress,
		params.User,
		params.GlobalConfig,
		params.BaseMint,
		params.QuoteMint,
		params.UserBaseTokenAccount,
		params.UserQuoteTokenAccount,
		params.PoolBaseTokenAccount,
		params.PoolQuoteTokenAccount,
		params.ProtocolFeeRecipient,
		params.ProtocolFeeRecipientTokenAccount,
		TokenProgramID,
		TokenProgramID,
		solana.SystemProgramID,
		AssociatedTokenProgramID,
		params.EventAuthority,
		ProgramID,
		params.CoinCreatorVaultATA,
		params.CoinCreatorVaultAuthority,
	}
	for i, want := range wantKeys {
		assert.Equal(t, want, accounts[i].PublicKey, "account %d", i)
	}

	// Only the user signs.
	for i, acc := range accounts {
		assert.Equal(t, acc.PublicKey.Equals(params.User), acc.IsSigner, "account %d signer", i)
	}
}

func TestCreateATAIdempotentInstruction(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	ix := createATAIdempotentInstruction(payer, owner, WrappedSOLMint)
	assert.Equal(t, AssociatedTokenProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	ata, _, err := solana.FindAssociatedTokenAddress(owner, WrappedSOLMint)
	require.NoError(t, err)

	accounts := ix.Accounts()
	require.Len(t, accounts, 6)
	assert.Equal(t, payer, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.Equal(t, ata, accounts[1].PublicKey)
	assert.Equal(t, owner, accounts[2].PublicKey)
	assert.Equal(t, WrappedSOLMint, accounts[3].PublicKey)
}

func TestDerivedAddressesAreStable(t *testing.T) {
	ea1, err := deriveEventAuthority()
	require.NoError(t, err)
	ea2, err := deriveEventAuthority()
	require.NoError(t, err)
	assert.Equal(t, ea1, ea2)
	assert.False(t, ea1.IsZero())

	gc, err := deriveGlobalConfigAddress()
	require.NoError(t, err)
	assert.False(t, gc.IsZero())
	assert.NotEqual(t, ea1, gc)

	creator := solana.NewWallet().PublicKey()
	auth, vault, err := deriveCoinCreatorVault(creator, WrappedSOLMint)
	require.NoError(t, err)

	wantVault, _, err := solana.FindAssociatedTokenAddress(auth, WrappedSOLMint)
	require.NoError(t, err)
	assert.Equal(t, wantVault, vault)
}
