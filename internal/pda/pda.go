// Package pda derives the program addresses of a pool and its accounts.
package pda

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	AmmConfigSeed   = "amm_config"
	AuthSeed        = "vault_and_lp_mint_auth_seed"
	PoolSeed        = "pool"
	PoolLpMintSeed  = "pool_lp_mint"
	PoolVaultSeed   = "pool_vault"
	ObservationSeed = "observation"
)

// ObservationNum is the capacity of a pool's observation ring.
const ObservationNum = 100

// DefaultProgramID is the mainnet constant-product swap program.
var DefaultProgramID = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")

// Address is a derived address and its bump seed.
type Address struct {
	Key  solana.PublicKey
	Bump uint8
}

// PoolAddresses are every account Initialize creates for one pool.
type PoolAddresses struct {
	Authority   Address
	Pool        Address
	LpMint      Address
	Token0Vault Address
	Token1Vault Address
	Observation Address
}

func find(programID solana.PublicKey, label string, seeds ...[]byte) (Address, error) {
	key, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return Address{}, fmt.Errorf("derive %s: %w", label, err)
	}
	return Address{Key: key, Bump: bump}, nil
}

// AmmConfig derives the config account for index. The index is encoded big-endian.
func AmmConfig(programID solana.PublicKey, index uint16) (Address, error) {
	var idx [2]byte
	binary.BigEndian.PutUint16(idx[:], index)
	return find(programID, "amm config", []byte(AmmConfigSeed), idx[:])
}

// Authority derives the signer that owns every vault and LP mint of the program.
func Authority(programID solana.PublicKey) (Address, error) {
	return find(programID, "authority", []byte(AuthSeed))
}

// Pool derives the pool account of a config and a sorted mint pair.
func Pool(programID, ammConfig, token0Mint, token1Mint solana.PublicKey) (Address, error) {
	return find(programID, "pool", []byte(PoolSeed), ammConfig.Bytes(), token0Mint.Bytes(), token1Mint.Bytes())
}

func LpMint(programID, pool solana.PublicKey) (Address, error) {
	return find(programID, "lp mint", []byte(PoolLpMintSeed), pool.Bytes())
}

func Vault(programID, pool, mint solana.PublicKey) (Address, error) {
	return find(programID, "vault", []byte(PoolVaultSeed), pool.Bytes(), mint.Bytes())
}

func Observation(programID, pool solana.PublicKey) (Address, error) {
	return find(programID, "observation", []byte(ObservationSeed), pool.Bytes())
}

// ForPool derives every address of the pool for ammConfig and the sorted mint pair.
func ForPool(programID, ammConfig, token0Mint, token1Mint solana.PublicKey) (PoolAddresses, error) {
	var out PoolAddresses
	var err error
	if out.Authority, err = Authority(programID); err != nil {
		return PoolAddresses{}, err
	}
	if out.Pool, err = Pool(programID, ammConfig, token0Mint, token1Mint); err != nil {
		return PoolAddresses{}, err
	}
	if out.LpMint, err = LpMint(programID, out.Pool.Key); err != nil {
		return PoolAddresses{}, err
	}
	if out.Token0Vault, err = Vault(programID, out.Pool.Key, token0Mint); err != nil {
		return PoolAddresses{}, err
	}
	if out.Token1Vault, err = Vault(programID, out.Pool.Key, token1Mint); err != nil {
		return PoolAddresses{}, err
	}
	if out.Observation, err = Observation(programID, out.Pool.Key); err != nil {
		return PoolAddresses{}, err
	}
	return out, nil
}
