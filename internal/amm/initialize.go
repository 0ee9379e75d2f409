package amm

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"cpswap/internal/curve"
	"cpswap/internal/fee"
	"cpswap/internal/model"
	"cpswap/internal/pda"
	"cpswap/internal/pool"
)

const flowInitialize = "initialize"

// InitializeParams creates a pool for a sorted mint pair under AmmConfig. A zero AmmConfig.Key
// is derived from its index.
type InitializeParams struct {
	Creator       solana.PublicKey
	AmmConfig     model.AmmConfig
	Token0Mint    solana.PublicKey
	Token1Mint    solana.PublicKey
	CreatorToken0 solana.PublicKey
	CreatorToken1 solana.PublicKey
	InitAmount0   uint64
	InitAmount1   uint64
	OpenTime      uint64
}

// InitializeResult is the new pool and what was minted for it.
type InitializeResult struct {
	Pool            *pool.State
	Observation     model.ObservationState
	Addresses       pda.PoolAddresses
	CreatorLpToken  solana.PublicKey
	Liquidity       uint64
	CreatorLpAmount uint64
}

// Initialize creates the vaults and LP mint of a new pool, moves the initial amounts into the
// vaults and mints the creator's LP share of what actually arrived.
func (e *Engine) Initialize(params InitializeParams) (InitializeResult, error) {
	res, err := e.initialize(params)
	var id solana.PublicKey
	if res.Pool != nil {
		id = res.Pool.ID
	}
	e.observe(flowInitialize, id, err)
	return res, err
}

func (e *Engine) initialize(params InitializeParams) (InitializeResult, error) {
	if bytes.Compare(params.Token0Mint[:], params.Token1Mint[:]) >= 0 {
		return InitializeResult{}, fmt.Errorf("token_0 %s token_1 %s: %w", params.Token0Mint, params.Token1Mint, model.ErrInvalidMintOrder)
	}
	mint0, err := e.tokens.MintInfo(params.Token0Mint)
	if err != nil {
		return InitializeResult{}, fmt.Errorf("token_0 mint: %w", err)
	}
	mint1, err := e.tokens.MintInfo(params.Token1Mint)
	if err != nil {
		return InitializeResult{}, fmt.Errorf("token_1 mint: %w", err)
	}
	if !fee.IsSupportedMint(mint0) || !fee.IsSupportedMint(mint1) {
		return InitializeResult{}, fmt.Errorf("mints %s %s: %w", mint0.Key, mint1.Key, model.ErrNotSupportMint)
	}

	cfg := params.AmmConfig
	if cfg.DisableCreatePool {
		return InitializeResult{}, fmt.Errorf("amm config %d disables pool creation: %w", cfg.Index, model.ErrNotApproved)
	}
	if err := curve.RatesOf(cfg).Validate(); err != nil {
		return InitializeResult{}, err
	}
	if cfg.Key == (solana.PublicKey{}) {
		addr, err := pda.AmmConfig(e.programID, cfg.Index)
		if err != nil {
			return InitializeResult{}, err
		}
		cfg.Key = addr.Key
	}

	now, epoch := e.clock.Now()
	openTime := params.OpenTime
	if openTime <= now {
		if openTime, err = checkedAdd(now, 1); err != nil {
			return InitializeResult{}, fmt.Errorf("open time: %w", err)
		}
	}

	addrs, err := pda.ForPool(e.programID, cfg.Key, mint0.Key, mint1.Key)
	if err != nil {
		return InitializeResult{}, err
	}
	creatorLp, _, err := solana.FindAssociatedTokenAddress(params.Creator, addrs.LpMint.Key)
	if err != nil {
		return InitializeResult{}, fmt.Errorf("creator lp account: %w", err)
	}

	var liquidity, creatorAmount uint64
	err = e.atomically(func() error {
		authority := addrs.Authority.Key
		if err := e.tokens.CreateMint(addrs.LpMint.Key, pool.LpMintDecimals, authority); err != nil {
			return fmt.Errorf("create lp mint: %w", err)
		}
		if err := e.tokens.CreateAccount(creatorLp, addrs.LpMint.Key, params.Creator); err != nil {
			return fmt.Errorf("create creator lp account: %w", err)
		}
		if err := e.tokens.CreateAccount(addrs.Token0Vault.Key, mint0.Key, authority); err != nil {
			return fmt.Errorf("create token_0 vault: %w", err)
		}
		if err := e.tokens.CreateAccount(addrs.Token1Vault.Key, mint1.Key, authority); err != nil {
			return fmt.Errorf("create token_1 vault: %w", err)
		}
		if err := e.tokens.Transfer(params.CreatorToken0, addrs.Token0Vault.Key, mint0.Key, params.InitAmount0, mint0.Decimals); err != nil {
			return fmt.Errorf("transfer token_0: %w", err)
		}
		if err := e.tokens.Transfer(params.CreatorToken1, addrs.Token1Vault.Key, mint1.Key, params.InitAmount1, mint1.Decimals); err != nil {
			return fmt.Errorf("transfer token_1: %w", err)
		}

		// The vaults hold what arrived, which is less than what was sent for fee-bearing mints.
		vault0, err := e.tokens.Balance(addrs.Token0Vault.Key)
		if err != nil {
			return fmt.Errorf("read token_0 vault: %w", err)
		}
		vault1, err := e.tokens.Balance(addrs.Token1Vault.Key)
		if err != nil {
			return fmt.Errorf("read token_1 vault: %w", err)
		}
		if err := curve.ValidateSupply(vault0, vault1); err != nil {
			return err
		}

		liquidity = curve.InitialLiquidity(vault0, vault1)
		e.logger.Debug("initial liquidity",
			zap.Uint64("liquidity", liquidity),
			zap.Uint64("lock_lp_amount", curve.LockLpAmount),
			zap.Uint64("vault_0_amount", vault0),
			zap.Uint64("vault_1_amount", vault1),
		)
		if creatorAmount, err = curve.CreatorLiquidity(liquidity); err != nil {
			return err
		}
		if err := e.tokens.MintTo(addrs.LpMint.Key, creatorLp, creatorAmount); err != nil {
			return fmt.Errorf("mint lp: %w", err)
		}
		return nil
	})
	if err != nil {
		return InitializeResult{}, err
	}

	st := &pool.State{}
	st.Initialize(pool.InitParams{
		ID:             addrs.Pool.Key,
		AuthBump:       addrs.Authority.Bump,
		LpSupply:       liquidity,
		OpenTime:       openTime,
		Epoch:          epoch,
		PoolCreator:    params.Creator,
		AmmConfig:      cfg.Key,
		Token0Vault:    addrs.Token0Vault.Key,
		Token1Vault:    addrs.Token1Vault.Key,
		Token0Mint:     mint0,
		Token1Mint:     mint1,
		LpMint:         addrs.LpMint.Key,
		ObservationKey: addrs.Observation.Key,
	})
	e.logger.Info("pool initialized",
		zap.Stringer("pool", st.ID),
		zap.Stringer("token_0_mint", st.Token0Mint),
		zap.Stringer("token_1_mint", st.Token1Mint),
		zap.Uint64("lp_supply", st.LpSupply),
		zap.Uint64("open_time", st.OpenTime),
	)

	return InitializeResult{
		Pool:            st,
		Observation:     model.ObservationState{Key: addrs.Observation.Key, PoolID: st.ID},
		Addresses:       addrs,
		CreatorLpToken:  creatorLp,
		Liquidity:       liquidity,
		CreatorLpAmount: creatorAmount,
	}, nil
}
