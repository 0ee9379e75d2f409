// Package ledger is an in-memory token program. It keeps mints and token accounts, withholds
// transfer fees the way a fee-bearing mint does, and can run a batch of calls atomically.
package ledger

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/gagliardetto/solana-go"

	"cpswap/internal/fee"
	"cpswap/internal/model"
)

var (
	ErrMintNotFound      = errors.New("mint not found")
	ErrMintExists        = errors.New("mint already exists")
	ErrAccountNotFound   = errors.New("token account not found")
	ErrAccountMismatch   = errors.New("token account belongs to another mint or owner")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDecimalsMismatch  = errors.New("decimals do not match mint")
	ErrSupplyOverflow    = errors.New("mint supply overflow")
)

// Account is one token account.
type Account struct {
	Mint     solana.PublicKey
	Owner    solana.PublicKey
	Amount   uint64
	Withheld uint64
}

type mintState struct {
	info      model.MintInfo
	authority solana.PublicKey
	supply    uint64
}

// Ledger holds every mint and token account. It also serves as the clock of the cluster it
// simulates. Safe for concurrent use.
type Ledger struct {
	mu        sync.RWMutex
	mints     map[solana.PublicKey]mintState
	accounts  map[solana.PublicKey]Account
	timestamp uint64
	epoch     uint64

	// batch serializes Atomic calls with each other.
	batch sync.Mutex
}

func New() *Ledger {
	return &Ledger{
		mints:    make(map[solana.PublicKey]mintState),
		accounts: make(map[solana.PublicKey]Account),
	}
}

// SetClock moves the ledger clock. Transfer fees are selected by the epoch set here.
func (l *Ledger) SetClock(timestamp, epoch uint64) {
	l.mu.Lock()
	l.timestamp, l.epoch = timestamp, epoch
	l.mu.Unlock()
}

// Now returns the unix timestamp and epoch of the ledger clock.
func (l *Ledger) Now() (uint64, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.timestamp, l.epoch
}

// AddMint registers a mint with an initial supply of zero.
func (l *Ledger) AddMint(info model.MintInfo, authority solana.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.mints[info.Key]; ok {
		return fmt.Errorf("add mint %s: %w", info.Key, ErrMintExists)
	}
	l.mints[info.Key] = mintState{info: info, authority: authority}
	return nil
}

// CreateMint registers a legacy mint with decimals, as pools do for their LP mint.
func (l *Ledger) CreateMint(mint solana.PublicKey, decimals uint8, authority solana.PublicKey) error {
	return l.AddMint(model.MintInfo{Key: mint, Decimals: decimals, Program: model.TokenProgramLegacy}, authority)
}

func (l *Ledger) MintInfo(mint solana.PublicKey) (model.MintInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.mints[mint]
	if !ok {
		return model.MintInfo{}, fmt.Errorf("mint %s: %w", mint, ErrMintNotFound)
	}
	return m.info, nil
}

// Supply returns the outstanding supply of mint.
func (l *Ledger) Supply(mint solana.PublicKey) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.mints[mint]
	if !ok {
		return 0, fmt.Errorf("mint %s: %w", mint, ErrMintNotFound)
	}
	return m.supply, nil
}

// CreateAccount opens a token account. Creating an account that already exists with the same
// mint and owner is a no-op.
func (l *Ledger) CreateAccount(account, mint, owner solana.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.mints[mint]; !ok {
		return fmt.Errorf("create account %s: mint %s: %w", account, mint, ErrMintNotFound)
	}
	if existing, ok := l.accounts[account]; ok {
		if existing.Mint.Equals(mint) && existing.Owner.Equals(owner) {
			return nil
		}
		return fmt.Errorf("create account %s: %w", account, ErrAccountMismatch)
	}
	l.accounts[account] = Account{Mint: mint, Owner: owner}
	return nil
}

func (l *Ledger) Account(account solana.PublicKey) (Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[account]
	if !ok {
		return Account{}, fmt.Errorf("account %s: %w", account, ErrAccountNotFound)
	}
	return a, nil
}

func (l *Ledger) Balance(account solana.PublicKey) (uint64, error) {
	a, err := l.Account(account)
	if err != nil {
		return 0, err
	}
	return a.Amount, nil
}

// Transfer moves amount of mint from one account to another. A fee-bearing mint delivers
// amount less its fee and withholds the fee on the destination account.
func (l *Ledger) Transfer(from, to, mint solana.PublicKey, amount uint64, decimals uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.mints[mint]
	if !ok {
		return fmt.Errorf("transfer: mint %s: %w", mint, ErrMintNotFound)
	}
	if m.info.Decimals != decimals {
		return fmt.Errorf("transfer %s: got %d want %d: %w", mint, decimals, m.info.Decimals, ErrDecimalsMismatch)
	}
	src, err := l.accountOf(from, mint)
	if err != nil {
		return fmt.Errorf("transfer source: %w", err)
	}
	dst, err := l.accountOf(to, mint)
	if err != nil {
		return fmt.Errorf("transfer destination: %w", err)
	}
	if src.Amount < amount {
		return fmt.Errorf("transfer %d from %s holding %d: %w", amount, from, src.Amount, ErrInsufficientFunds)
	}

	transferFee, err := fee.ForwardFee(m.info, l.epoch, amount)
	if err != nil {
		return fmt.Errorf("transfer fee: %w", err)
	}

	received := amount - transferFee
	if from == to {
		src.Amount -= transferFee
		src.Withheld += transferFee
		l.accounts[from] = src
		return nil
	}

	credit, ok := add(dst.Amount, received)
	if !ok {
		return fmt.Errorf("transfer credit %s: %w", to, ErrSupplyOverflow)
	}
	src.Amount -= amount
	dst.Amount = credit
	dst.Withheld += transferFee
	l.accounts[from] = src
	l.accounts[to] = dst
	return nil
}

// MintTo creates amount of mint in account.
func (l *Ledger) MintTo(mint, account solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.mints[mint]
	if !ok {
		return fmt.Errorf("mint to: mint %s: %w", mint, ErrMintNotFound)
	}
	dst, err := l.accountOf(account, mint)
	if err != nil {
		return fmt.Errorf("mint to: %w", err)
	}
	supply, ok := add(m.supply, amount)
	if !ok {
		return fmt.Errorf("mint %d of %s: %w", amount, mint, ErrSupplyOverflow)
	}
	balance, ok := add(dst.Amount, amount)
	if !ok {
		return fmt.Errorf("mint %d to %s: %w", amount, account, ErrSupplyOverflow)
	}
	m.supply, dst.Amount = supply, balance
	l.mints[mint] = m
	l.accounts[account] = dst
	return nil
}

// Burn destroys amount of mint held by account.
func (l *Ledger) Burn(mint, account solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.mints[mint]
	if !ok {
		return fmt.Errorf("burn: mint %s: %w", mint, ErrMintNotFound)
	}
	src, err := l.accountOf(account, mint)
	if err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	if src.Amount < amount || m.supply < amount {
		return fmt.Errorf("burn %d from %s holding %d: %w", amount, account, src.Amount, ErrInsufficientFunds)
	}
	src.Amount -= amount
	m.supply -= amount
	l.accounts[account] = src
	l.mints[mint] = m
	return nil
}

// Atomic runs fn and restores every mint and account if it fails.
func (l *Ledger) Atomic(fn func() error) error {
	l.batch.Lock()
	defer l.batch.Unlock()

	l.mu.RLock()
	mints := maps.Clone(l.mints)
	accounts := maps.Clone(l.accounts)
	l.mu.RUnlock()

	if err := fn(); err != nil {
		l.mu.Lock()
		l.mints, l.accounts = mints, accounts
		l.mu.Unlock()
		return err
	}
	return nil
}

func (l *Ledger) accountOf(account, mint solana.PublicKey) (Account, error) {
	a, ok := l.accounts[account]
	if !ok {
		return Account{}, fmt.Errorf("account %s: %w", account, ErrAccountNotFound)
	}
	if !a.Mint.Equals(mint) {
		return Account{}, fmt.Errorf("account %s holds %s not %s: %w", account, a.Mint, mint, ErrAccountMismatch)
	}
	return a, nil
}

func add(a, b uint64) (uint64, bool) {
	sum, overflow := gmath.SafeAdd(a, b)
	return sum, !overflow
}
