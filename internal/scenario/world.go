package scenario

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"cpswap/internal/amm"
	"cpswap/internal/ledger"
	"cpswap/internal/model"
	"cpswap/internal/pool"
)

var extensionNames = map[string]model.ExtensionType{
	"transfer_fee_config":   model.ExtensionTransferFeeConfig,
	"mint_close_authority":  model.ExtensionMintCloseAuthority,
	"confidential_transfer": model.ExtensionConfidentialTransfer,
	"default_account_state": model.ExtensionDefaultAccountState,
	"non_transferable":      model.ExtensionNonTransferable,
	"interest_bearing":      model.ExtensionInterestBearing,
	"permanent_delegate":    model.ExtensionPermanentDelegate,
	"transfer_hook":         model.ExtensionTransferHook,
	"metadata_pointer":      model.ExtensionMetadataPointer,
	"token_metadata":        model.ExtensionTokenMetadata,
}

// KeyFor derives a stable public key for a named scenario object, so reruns of the same
// scenario address the same pools.
func KeyFor(kind, name string) solana.PublicKey {
	sum := sha256.Sum256([]byte("cpswap:" + kind + ":" + name))
	return solana.PublicKeyFromBytes(sum[:])
}

type poolEntry struct {
	name   string
	state  *pool.State
	config model.AmmConfig
}

// World resolves scenario names to ledger keys and holds the pools a scenario created.
type World struct {
	ledger  *ledger.Ledger
	engine  *amm.Engine
	mints   map[string]model.MintInfo
	configs map[string]model.AmmConfig
	pools   map[string]*poolEntry
	order   []*poolEntry
}

func NewWorld(l *ledger.Ledger, engine *amm.Engine) *World {
	return &World{
		ledger:  l,
		engine:  engine,
		mints:   make(map[string]model.MintInfo),
		configs: make(map[string]model.AmmConfig),
		pools:   make(map[string]*poolEntry),
	}
}

// Pool returns the named pool.
func (w *World) Pool(name string) (*pool.State, bool) {
	entry, ok := w.pools[name]
	if !ok {
		return nil, false
	}
	return entry.state, true
}

// Snapshots returns every pool in creation order with its tradable reserves.
func (w *World) Snapshots() ([]model.PoolSnapshot, error) {
	out := make([]model.PoolSnapshot, 0, len(w.order))
	for _, entry := range w.order {
		p := entry.state
		vault0, err := w.ledger.Balance(p.Token0Vault)
		if err != nil {
			return nil, fmt.Errorf("pool %s vault_0: %w", entry.name, err)
		}
		vault1, err := w.ledger.Balance(p.Token1Vault)
		if err != nil {
			return nil, fmt.Errorf("pool %s vault_1: %w", entry.name, err)
		}
		reserve0, reserve1, err := p.VaultAmountWithoutFee(vault0, vault1)
		if err != nil {
			return nil, fmt.Errorf("pool %s reserves: %w", entry.name, err)
		}
		out = append(out, p.Snapshot(reserve0, reserve1))
	}
	return out, nil
}

// Apply runs one step.
func (w *World) Apply(step Step) error {
	switch args := step.Args.(type) {
	case *ClockArgs:
		w.ledger.SetClock(args.Timestamp, args.Epoch)
		return nil
	case *MintArgs:
		return w.addMint(*args)
	case *FundArgs:
		return w.fund(*args)
	case *ConfigArgs:
		return w.addConfig(*args)
	case *InitializeArgs:
		return w.initialize(*args)
	case *DepositArgs:
		return w.deposit(*args)
	case *WithdrawArgs:
		return w.withdraw(*args)
	case *SwapArgs:
		return w.swap(*args, step.Op == OpSwapBaseInput)
	case *SetStatusArgs:
		entry, err := w.pool(args.Pool)
		if err != nil {
			return err
		}
		entry.state.SetStatus(args.Status)
		return nil
	default:
		return fmt.Errorf("step %s has unexpected args %T", step.Op, step.Args)
	}
}

func (w *World) addMint(args MintArgs) error {
	if args.Mint == "" {
		return fmt.Errorf("mint name required")
	}
	if _, ok := w.mints[args.Mint]; ok {
		return fmt.Errorf("mint %q: %w", args.Mint, ledger.ErrMintExists)
	}

	info := model.MintInfo{
		Key:         KeyFor("mint", args.Mint),
		Decimals:    args.Decimals,
		Program:     model.TokenProgramLegacy,
		TransferFee: args.TransferFee,
		FeeExempt:   args.FeeExempt,
	}
	for _, name := range args.Extensions {
		ext, ok := extensionNames[name]
		if !ok {
			return fmt.Errorf("mint %q: unknown extension %q", args.Mint, name)
		}
		info.Extensions = append(info.Extensions, ext)
	}
	if info.TransferFee != nil && !info.HasExtension(model.ExtensionTransferFeeConfig) {
		info.Extensions = append(info.Extensions, model.ExtensionTransferFeeConfig)
	}
	if args.Token2022 || len(info.Extensions) > 0 {
		info.Program = model.TokenProgram2022
	}

	if err := w.ledger.AddMint(info, KeyFor("authority", args.Mint)); err != nil {
		return err
	}
	w.mints[args.Mint] = info
	return nil
}

func (w *World) fund(args FundArgs) error {
	mint, err := w.mint(args.Mint)
	if err != nil {
		return err
	}
	account, err := w.tokenAccount(args.Wallet, mint.Key)
	if err != nil {
		return err
	}
	return w.ledger.MintTo(mint.Key, account, args.Amount)
}

func (w *World) addConfig(args ConfigArgs) error {
	if args.Config == "" {
		return fmt.Errorf("config name required")
	}
	if _, ok := w.configs[args.Config]; ok {
		return fmt.Errorf("config %q already exists", args.Config)
	}
	// Key stays zero; the engine derives it from the index.
	w.configs[args.Config] = model.AmmConfig{
		Index:             args.Index,
		TradeFeeRate:      args.TradeFeeRate,
		ProtocolFeeRate:   args.ProtocolFeeRate,
		FundFeeRate:       args.FundFeeRate,
		DisableCreatePool: args.DisableCreatePool,
	}
	return nil
}

func (w *World) initialize(args InitializeArgs) error {
	if args.Pool == "" {
		return fmt.Errorf("pool name required")
	}
	if _, ok := w.pools[args.Pool]; ok {
		return fmt.Errorf("pool %q already exists", args.Pool)
	}
	cfg, ok := w.configs[args.Config]
	if !ok {
		return fmt.Errorf("unknown config %q", args.Config)
	}
	mintA, err := w.mint(args.MintA)
	if err != nil {
		return err
	}
	mintB, err := w.mint(args.MintB)
	if err != nil {
		return err
	}

	mint0, mint1, amount0, amount1 := mintA, mintB, args.AmountA, args.AmountB
	if bytes.Compare(mintA.Key[:], mintB.Key[:]) > 0 {
		mint0, mint1, amount0, amount1 = mintB, mintA, args.AmountB, args.AmountA
	}
	creator := KeyFor("wallet", args.Creator)
	creator0, err := w.tokenAccount(args.Creator, mint0.Key)
	if err != nil {
		return err
	}
	creator1, err := w.tokenAccount(args.Creator, mint1.Key)
	if err != nil {
		return err
	}

	res, err := w.engine.Initialize(amm.InitializeParams{
		Creator:       creator,
		AmmConfig:     cfg,
		Token0Mint:    mint0.Key,
		Token1Mint:    mint1.Key,
		CreatorToken0: creator0,
		CreatorToken1: creator1,
		InitAmount0:   amount0,
		InitAmount1:   amount1,
		OpenTime:      args.OpenTime,
	})
	if err != nil {
		return err
	}

	cfg.Key = res.Pool.AmmConfig
	entry := &poolEntry{name: args.Pool, state: res.Pool, config: cfg}
	w.pools[args.Pool] = entry
	w.order = append(w.order, entry)
	return nil
}

func (w *World) deposit(args DepositArgs) error {
	entry, err := w.pool(args.Pool)
	if err != nil {
		return err
	}
	p := entry.state
	accounts, err := w.liquidityAccounts(args.Wallet, p)
	if err != nil {
		return err
	}
	_, err = w.engine.Deposit(p, amm.DepositParams{
		Owner:               accounts.owner,
		OwnerLpToken:        accounts.lp,
		Token0Account:       accounts.token0,
		Token1Account:       accounts.token1,
		LpMint:              p.LpMint,
		LpTokenAmount:       args.LpAmount,
		MaximumToken0Amount: args.MaximumToken0Amount,
		MaximumToken1Amount: args.MaximumToken1Amount,
	})
	return err
}

func (w *World) withdraw(args WithdrawArgs) error {
	entry, err := w.pool(args.Pool)
	if err != nil {
		return err
	}
	p := entry.state
	accounts, err := w.liquidityAccounts(args.Wallet, p)
	if err != nil {
		return err
	}
	_, err = w.engine.Withdraw(p, amm.WithdrawParams{
		Owner:               accounts.owner,
		OwnerLpToken:        accounts.lp,
		Token0Account:       accounts.token0,
		Token1Account:       accounts.token1,
		LpMint:              p.LpMint,
		LpTokenAmount:       args.LpAmount,
		MinimumToken0Amount: args.MinimumToken0Amount,
		MinimumToken1Amount: args.MinimumToken1Amount,
	})
	return err
}

func (w *World) swap(args SwapArgs, baseInput bool) error {
	entry, err := w.pool(args.Pool)
	if err != nil {
		return err
	}
	p := entry.state
	input, err := w.mint(args.InputMint)
	if err != nil {
		return err
	}

	var direction pool.TradeDirection
	switch {
	case input.Key.Equals(p.Token0Mint):
		direction = pool.ZeroForOne
	case input.Key.Equals(p.Token1Mint):
		direction = pool.OneForZero
	default:
		return fmt.Errorf("mint %q is not in pool %q: %w", args.InputMint, args.Pool, model.ErrInvalidInput)
	}
	in, out := p.Sides(direction)

	inputAccount, err := w.tokenAccount(args.Wallet, in.Mint)
	if err != nil {
		return err
	}
	outputAccount, err := w.tokenAccount(args.Wallet, out.Mint)
	if err != nil {
		return err
	}

	params := amm.SwapParams{
		AmmConfig:            entry.config,
		InputTokenAccount:    inputAccount,
		OutputTokenAccount:   outputAccount,
		InputVault:           in.Vault,
		OutputVault:          out.Vault,
		Amount:               args.Amount,
		OtherAmountThreshold: args.OtherAmountThreshold,
	}
	if baseInput {
		_, err = w.engine.SwapBaseInput(p, params)
	} else {
		_, err = w.engine.SwapBaseOutput(p, params)
	}
	return err
}

type liquidityAccounts struct {
	owner  solana.PublicKey
	lp     solana.PublicKey
	token0 solana.PublicKey
	token1 solana.PublicKey
}

func (w *World) liquidityAccounts(wallet string, p *pool.State) (liquidityAccounts, error) {
	var out liquidityAccounts
	var err error
	out.owner = KeyFor("wallet", wallet)
	if out.lp, err = w.tokenAccount(wallet, p.LpMint); err != nil {
		return out, err
	}
	if out.token0, err = w.tokenAccount(wallet, p.Token0Mint); err != nil {
		return out, err
	}
	if out.token1, err = w.tokenAccount(wallet, p.Token1Mint); err != nil {
		return out, err
	}
	return out, nil
}

// tokenAccount returns the wallet's associated account for mint, creating it if needed.
func (w *World) tokenAccount(wallet string, mint solana.PublicKey) (solana.PublicKey, error) {
	if wallet == "" {
		return solana.PublicKey{}, fmt.Errorf("wallet name required")
	}
	owner := KeyFor("wallet", wallet)
	account, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("wallet %q account: %w", wallet, err)
	}
	if err := w.ledger.CreateAccount(account, mint, owner); err != nil {
		return solana.PublicKey{}, err
	}
	return account, nil
}

func (w *World) mint(name string) (model.MintInfo, error) {
	info, ok := w.mints[name]
	if !ok {
		return model.MintInfo{}, fmt.Errorf("mint %q: %w", name, ledger.ErrMintNotFound)
	}
	return info, nil
}

func (w *World) pool(name string) (*poolEntry, error) {
	entry, ok := w.pools[name]
	if !ok {
		return nil, fmt.Errorf("unknown pool %q", name)
	}
	return entry, nil
}
