package pda

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestForPoolIsDeterministic(t *testing.T) {
	cfg, err := AmmConfig(DefaultProgramID, 0)
	require.NoError(t, err)

	mint0 := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mint1 := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	a, err := ForPool(DefaultProgramID, cfg.Key, mint0, mint1)
	require.NoError(t, err)
	b, err := ForPool(DefaultProgramID, cfg.Key, mint0, mint1)
	require.NoError(t, err)
	require.Equal(t, a, b)

	keys := []solana.PublicKey{a.Authority.Key, a.Pool.Key, a.LpMint.Key, a.Token0Vault.Key, a.Token1Vault.Key, a.Observation.Key}
	seen := make(map[solana.PublicKey]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	require.Len(t, seen, len(keys))
}

func TestPoolDependsOnMintOrder(t *testing.T) {
	cfg, err := AmmConfig(DefaultProgramID, 1)
	require.NoError(t, err)
	mint0 := solana.NewWallet().PublicKey()
	mint1 := solana.NewWallet().PublicKey()

	ab, err := Pool(DefaultProgramID, cfg.Key, mint0, mint1)
	require.NoError(t, err)
	ba, err := Pool(DefaultProgramID, cfg.Key, mint1, mint0)
	require.NoError(t, err)
	require.NotEqual(t, ab.Key, ba.Key)
}

func TestAmmConfigIndex(t *testing.T) {
	a, err := AmmConfig(DefaultProgramID, 0)
	require.NoError(t, err)
	b, err := AmmConfig(DefaultProgramID, 1)
	require.NoError(t, err)
	require.NotEqual(t, a.Key, b.Key)
}
