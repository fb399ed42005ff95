// Package amm implements a two-asset constant-product pool on top of an
// injected token ledger. Every operation runs in a single storage transaction
// and is rolled back on any error.
package amm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/address"
	"cpamm/internal/fixedpoint"
	"cpamm/internal/model"
	"cpamm/internal/storage"
)

// PricePlaces is the number of decimals kept in PoolView prices.
const PricePlaces = 18

// Engine runs pool operations against a store.
type Engine struct {
	store   storage.Store
	program common.Address
	journal storage.Journal
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine creates an engine for the pools owned by program. journal may be nil.
func NewEngine(store storage.Store, program common.Address, journal storage.Journal, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:   store,
		program: program,
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
}

// InitializeParams names the accounts of a new pool. The caller supplies the
// vault and share addresses; they must match the derived ones.
type InitializeParams struct {
	Payer      common.Address
	Seed       uint64
	FeeBps     uint16
	Authority  *common.Address
	AssetX     common.Address
	AssetY     common.Address
	VaultX     common.Address
	VaultY     common.Address
	ShareAsset common.Address
}

// ExpectedAccounts fills in the derived pool, vault and share addresses.
func (e *Engine) ExpectedAccounts(seed uint64, assetX, assetY common.Address) model.Pool {
	pool := address.Pool(e.program, seed, assetX, assetY)
	return model.Pool{
		Seed:       seed,
		Address:    pool,
		AssetX:     assetX,
		AssetY:     assetY,
		ShareAsset: address.ShareAsset(e.program, pool),
		VaultX:     address.Vault(e.program, pool, assetX),
		VaultY:     address.Vault(e.program, pool, assetY),
	}
}

// Initialize creates the pool record, its share asset and both vaults.
func (e *Engine) Initialize(ctx context.Context, p InitializeParams) (model.Pool, error) {
	if p.FeeBps >= model.FeeDenominator {
		return model.Pool{}, ErrInvalidFee
	}
	if p.AssetX == p.AssetY {
		return model.Pool{}, fmt.Errorf("%w: asset x equals asset y", ErrInvalidMint)
	}

	pool := e.ExpectedAccounts(p.Seed, p.AssetX, p.AssetY)
	switch {
	case p.ShareAsset != pool.ShareAsset:
		return model.Pool{}, fmt.Errorf("%w: share asset %s", ErrInvalidMint, p.ShareAsset.Hex())
	case p.VaultX != pool.VaultX:
		return model.Pool{}, fmt.Errorf("%w: vault x %s", ErrInvalidMint, p.VaultX.Hex())
	case p.VaultY != pool.VaultY:
		return model.Pool{}, fmt.Errorf("%w: vault y %s", ErrInvalidMint, p.VaultY.Hex())
	}
	pool.FeeBps = p.FeeBps
	if p.Authority != nil {
		auth := *p.Authority
		pool.Authority = &auth
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return model.Pool{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.CreatePool(ctx, pool); err != nil {
		return model.Pool{}, mapExists(err)
	}
	if err := tx.CreateAsset(ctx, pool.ShareAsset, pool.Address, true); err != nil {
		return model.Pool{}, mapExists(err)
	}
	if err := tx.OpenAccount(ctx, pool.AssetX, pool.VaultX, pool.Address, true); err != nil {
		return model.Pool{}, mapExists(err)
	}
	if err := tx.OpenAccount(ctx, pool.AssetY, pool.VaultY, pool.Address, true); err != nil {
		return model.Pool{}, mapExists(err)
	}
	// Holder of the withheld bootstrap shares. The engine never builds its signer.
	locked := address.LockedLiquidity(e.program, pool.Address)
	if err := tx.OpenAccount(ctx, pool.ShareAsset, locked, locked, true); err != nil {
		return model.Pool{}, mapExists(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Pool{}, fmt.Errorf("commit initialize: %w", err)
	}

	e.logger.Info("pool initialized",
		zap.String("pool", pool.Address.Hex()),
		zap.String("asset_x", pool.AssetX.Hex()),
		zap.String("asset_y", pool.AssetY.Hex()),
		zap.Uint16("fee_bps", pool.FeeBps),
	)
	e.record(model.Receipt{Kind: model.KindInitialize, Pool: pool.Address, Actor: p.Payer})
	return pool, nil
}

// DepositParams describes a liquidity deposit of at most (MaxX, MaxY).
type DepositParams struct {
	Pool      common.Address
	Depositor common.Address
	MaxX      uint64
	MaxY      uint64
}

type DepositResult struct {
	AmountX uint64 `json:"amount_x"`
	AmountY uint64 `json:"amount_y"`
	Shares  uint64 `json:"shares"`
}

// Deposit moves the accepted amounts into the vaults and mints shares to the
// depositor.
func (e *Engine) Deposit(ctx context.Context, p DepositParams) (DepositResult, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return DepositResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pool, quote, err := e.planDeposit(ctx, tx, p)
	if err != nil {
		return DepositResult{}, err
	}

	depositor := address.UserSigner(p.Depositor)
	if err := tx.Transfer(ctx, pool.AssetX, p.Depositor, pool.VaultX, quote.AmountX, depositor); err != nil {
		return DepositResult{}, fmt.Errorf("%w: %w", ErrDepositToPoolFailed, err)
	}
	if err := tx.Transfer(ctx, pool.AssetY, p.Depositor, pool.VaultY, quote.AmountY, depositor); err != nil {
		return DepositResult{}, fmt.Errorf("%w: %w", ErrDepositToPoolFailed, err)
	}

	signer := e.poolSigner(pool)
	if quote.Locked > 0 {
		locked := address.LockedLiquidity(e.program, pool.Address)
		if err := tx.Mint(ctx, pool.ShareAsset, locked, quote.Locked, signer); err != nil {
			return DepositResult{}, fmt.Errorf("%w: %w", ErrDepositToPoolFailed, err)
		}
	}
	if err := tx.Mint(ctx, pool.ShareAsset, p.Depositor, quote.Shares, signer); err != nil {
		return DepositResult{}, fmt.Errorf("%w: %w", ErrDepositToPoolFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return DepositResult{}, fmt.Errorf("commit deposit: %w", err)
	}

	e.logger.Info("deposit committed",
		zap.String("pool", pool.Address.Hex()),
		zap.String("depositor", p.Depositor.Hex()),
		zap.Uint64("amount_x", quote.AmountX),
		zap.Uint64("amount_y", quote.AmountY),
		zap.Uint64("shares", quote.Shares),
		zap.Bool("bootstrap", quote.Bootstrap),
	)
	e.record(model.Receipt{
		Kind:    model.KindDeposit,
		Pool:    pool.Address,
		Actor:   p.Depositor,
		AmountX: quote.AmountX,
		AmountY: quote.AmountY,
		Shares:  quote.Shares,
	})
	return DepositResult{AmountX: quote.AmountX, AmountY: quote.AmountY, Shares: quote.Shares}, nil
}

// QuoteDeposit sizes a deposit without moving anything.
func (e *Engine) QuoteDeposit(ctx context.Context, p DepositParams) (DepositQuote, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return DepositQuote{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, quote, err := e.planDeposit(ctx, tx, p)
	return quote, err
}

func (e *Engine) planDeposit(ctx context.Context, tx storage.Tx, p DepositParams) (model.Pool, DepositQuote, error) {
	pool, err := e.loadPool(ctx, tx, p.Pool)
	if err != nil {
		return model.Pool{}, DepositQuote{}, err
	}
	if err := CheckDeposit(pool); err != nil {
		return model.Pool{}, DepositQuote{}, err
	}
	if p.MaxX == 0 || p.MaxY == 0 {
		return model.Pool{}, DepositQuote{}, ErrInvalidDepositAmount
	}

	balX, err := tx.BalanceOf(ctx, pool.AssetX, p.Depositor)
	if err != nil {
		return model.Pool{}, DepositQuote{}, fmt.Errorf("read balance x: %w", err)
	}
	balY, err := tx.BalanceOf(ctx, pool.AssetY, p.Depositor)
	if err != nil {
		return model.Pool{}, DepositQuote{}, fmt.Errorf("read balance y: %w", err)
	}
	reserveX, reserveY, err := e.reserves(ctx, tx, pool)
	if err != nil {
		return model.Pool{}, DepositQuote{}, err
	}
	supply, err := tx.Supply(ctx, pool.ShareAsset)
	if err != nil {
		return model.Pool{}, DepositQuote{}, fmt.Errorf("read share supply: %w", err)
	}

	x := ClampToBalance(p.MaxX, balX)
	y := ClampToBalance(p.MaxY, balY)
	quote, err := SizeDeposit(x, y, reserveX, reserveY, supply)
	if err != nil {
		return model.Pool{}, DepositQuote{}, err
	}

	e.logger.Debug("deposit sized",
		zap.String("pool", pool.Address.Hex()),
		zap.Uint64("reserve_x", reserveX),
		zap.Uint64("reserve_y", reserveY),
		zap.Uint64("supply", supply),
		zap.Uint64("accepted_x", quote.AmountX),
		zap.Uint64("accepted_y", quote.AmountY),
		zap.Uint64("shares", quote.Shares),
	)
	return pool, quote, nil
}

// SwapParams describes a swap of Amount of one asset for the other.
type SwapParams struct {
	Pool      common.Address
	Trader    common.Address
	InputIsX  bool
	Amount    uint64
	MinOutput uint64
}

type SwapResult struct {
	Input      uint64 `json:"input"`
	TaxedInput uint64 `json:"taxed_input"`
	Output     uint64 `json:"output"`
}

// Swap moves the full input into its vault and pays the output to the trader.
func (e *Engine) Swap(ctx context.Context, p SwapParams) (SwapResult, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return SwapResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pool, result, err := e.planSwap(ctx, tx, p)
	if err != nil {
		return SwapResult{}, err
	}

	inAsset, inVault, outAsset, outVault := pool.Vaults(p.InputIsX)
	if err := tx.Transfer(ctx, inAsset, p.Trader, inVault, result.Input, address.UserSigner(p.Trader)); err != nil {
		return SwapResult{}, fmt.Errorf("%w: %w", ErrSwapInFailed, err)
	}
	if err := tx.Transfer(ctx, outAsset, outVault, p.Trader, result.Output, e.poolSigner(pool)); err != nil {
		return SwapResult{}, fmt.Errorf("%w: %w", ErrSwapOutFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return SwapResult{}, fmt.Errorf("commit swap: %w", err)
	}

	e.logger.Info("swap committed",
		zap.String("pool", pool.Address.Hex()),
		zap.String("trader", p.Trader.Hex()),
		zap.Bool("input_is_x", p.InputIsX),
		zap.Uint64("input", result.Input),
		zap.Uint64("output", result.Output),
	)
	e.record(model.Receipt{
		Kind:     model.KindSwap,
		Pool:     pool.Address,
		Actor:    p.Trader,
		InputIsX: p.InputIsX,
		Input:    result.Input,
		Output:   result.Output,
	})
	return result, nil
}

// QuoteSwap computes a swap without moving anything.
func (e *Engine) QuoteSwap(ctx context.Context, p SwapParams) (SwapResult, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return SwapResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, result, err := e.planSwap(ctx, tx, p)
	return result, err
}

func (e *Engine) planSwap(ctx context.Context, tx storage.Tx, p SwapParams) (model.Pool, SwapResult, error) {
	pool, err := e.loadPool(ctx, tx, p.Pool)
	if err != nil {
		return model.Pool{}, SwapResult{}, err
	}
	supply, err := tx.Supply(ctx, pool.ShareAsset)
	if err != nil {
		return model.Pool{}, SwapResult{}, fmt.Errorf("read share supply: %w", err)
	}
	if err := CheckSwap(pool, supply); err != nil {
		return model.Pool{}, SwapResult{}, err
	}
	if p.Amount == 0 {
		return model.Pool{}, SwapResult{}, ErrInvalidSwapAmount
	}

	inAsset, _, _, _ := pool.Vaults(p.InputIsX)
	balance, err := tx.BalanceOf(ctx, inAsset, p.Trader)
	if err != nil {
		return model.Pool{}, SwapResult{}, fmt.Errorf("read trader balance: %w", err)
	}
	input := ClampToBalance(p.Amount, balance)
	if input == 0 {
		return model.Pool{}, SwapResult{}, ErrInvalidSwapAmount
	}

	reserveX, reserveY, err := e.reserves(ctx, tx, pool)
	if err != nil {
		return model.Pool{}, SwapResult{}, err
	}
	reserveIn, reserveOut := reserveY, reserveX
	if p.InputIsX {
		reserveIn, reserveOut = reserveX, reserveY
	}

	taxed, err := TaxedInput(input, pool.FeeBps)
	if err != nil {
		return model.Pool{}, SwapResult{}, err
	}
	output := SwapOutput(taxed, reserveIn, reserveOut)

	e.logger.Debug("swap computed",
		zap.String("pool", pool.Address.Hex()),
		zap.Uint64("reserve_in", reserveIn),
		zap.Uint64("reserve_out", reserveOut),
		zap.Uint64("input", input),
		zap.Uint64("taxed_input", taxed),
		zap.Uint64("output", output),
	)

	if output == 0 || output < p.MinOutput {
		return model.Pool{}, SwapResult{}, fmt.Errorf("%w: got %d, want at least %d", ErrOutputTooSmall, output, p.MinOutput)
	}
	return pool, SwapResult{Input: input, TaxedInput: taxed, Output: output}, nil
}

// SetLocked flips the pool's circuit breaker. Only the pool authority may call it.
func (e *Engine) SetLocked(ctx context.Context, poolAddr common.Address, signer address.Signer, locked bool) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pool, err := e.loadPool(ctx, tx, poolAddr)
	if err != nil {
		return err
	}
	if pool.Authority == nil || !signer.Authorizes(*pool.Authority, signer.Derived()) {
		return ErrUnauthorized
	}
	if pool.Locked == locked {
		return nil
	}

	pool.Locked = locked
	if err := tx.UpdatePool(ctx, pool); err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit lock: %w", err)
	}

	kind := model.KindUnlock
	if locked {
		kind = model.KindLock
	}
	e.logger.Info("pool lock changed", zap.String("pool", pool.Address.Hex()), zap.Bool("locked", locked))
	e.record(model.Receipt{Kind: kind, Pool: pool.Address, Actor: signer.Address()})
	return nil
}

// PoolView reads a pool with its live reserves. If holder is set the view
// includes what the holder's shares redeem for.
func (e *Engine) PoolView(ctx context.Context, poolAddr common.Address, holder *common.Address) (model.PoolView, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return model.PoolView{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pool, err := e.loadPool(ctx, tx, poolAddr)
	if err != nil {
		return model.PoolView{}, err
	}
	reserveX, reserveY, err := e.reserves(ctx, tx, pool)
	if err != nil {
		return model.PoolView{}, err
	}
	supply, err := tx.Supply(ctx, pool.ShareAsset)
	if err != nil {
		return model.PoolView{}, fmt.Errorf("read share supply: %w", err)
	}

	view := model.PoolView{
		Pool:        pool,
		ReserveX:    reserveX,
		ReserveY:    reserveY,
		ShareSupply: supply,
	}
	if reserveX > 0 {
		price, err := fixedpoint.Ratio(reserveY, reserveX)
		if err != nil {
			return model.PoolView{}, fmt.Errorf("price: %w", err)
		}
		view.PriceXInY = price.Decimal(PricePlaces)
	}

	if holder != nil {
		shares, err := tx.BalanceOf(ctx, pool.ShareAsset, *holder)
		if err != nil {
			return model.PoolView{}, fmt.Errorf("read holder shares: %w", err)
		}
		amountX, amountY, err := RedeemableAmounts(shares, supply, reserveX, reserveY)
		if err != nil {
			return model.PoolView{}, err
		}
		view.Holder = &model.HolderClaim{Shares: shares, AmountX: amountX, AmountY: amountY}
	}
	return view, nil
}

func (e *Engine) loadPool(ctx context.Context, tx storage.Tx, addr common.Address) (model.Pool, error) {
	pool, err := tx.GetPool(ctx, addr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Pool{}, fmt.Errorf("%w: %s", ErrPoolNotFound, addr.Hex())
		}
		return model.Pool{}, fmt.Errorf("load pool: %w", err)
	}
	return pool, nil
}

func (e *Engine) reserves(ctx context.Context, tx storage.Tx, pool model.Pool) (uint64, uint64, error) {
	reserveX, err := tx.BalanceOf(ctx, pool.AssetX, pool.VaultX)
	if err != nil {
		return 0, 0, fmt.Errorf("read reserve x: %w", err)
	}
	reserveY, err := tx.BalanceOf(ctx, pool.AssetY, pool.VaultY)
	if err != nil {
		return 0, 0, fmt.Errorf("read reserve y: %w", err)
	}
	return reserveX, reserveY, nil
}

func (e *Engine) poolSigner(pool model.Pool) address.Signer {
	return address.DerivedSigner(e.program, address.PoolSeeds(pool.Seed, pool.AssetX, pool.AssetY)...)
}

func (e *Engine) record(receipt model.Receipt) {
	if e.journal == nil {
		return
	}
	receipt.Timestamp = e.now().UTC().Format(time.RFC3339Nano)
	if err := e.journal.Append(receipt); err != nil {
		e.logger.Warn("journal append failed",
			zap.String("kind", receipt.Kind),
			zap.String("pool", receipt.Pool.Hex()),
			zap.Error(err),
		)
	}
}

func mapExists(err error) error {
	if errors.Is(err, storage.ErrExists) {
		return fmt.Errorf("%w: %w", ErrPoolExists, err)
	}
	return err
}
