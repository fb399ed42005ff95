package amm

import (
	"context"
	"errors"
	"testing"
	"testing/quick"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"cpamm/internal/address"
	"cpamm/internal/model"
	"cpamm/internal/storage"
)

var (
	testProgram = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	testAssetX  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testAssetY  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	alice       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob         = common.HexToAddress("0x2222222222222222222222222222222222222222")
	carol       = common.HexToAddress("0x3333333333333333333333333333333333333333")
	admin       = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

type memJournal struct {
	receipts []model.Receipt
	err      error
}

func (j *memJournal) Append(receipts ...model.Receipt) error {
	if j.err != nil {
		return j.err
	}
	j.receipts = append(j.receipts, receipts...)
	return nil
}

// failingStore fails every transfer out of failFrom.
type failingStore struct {
	storage.Store
	failFrom common.Address
}

func (s *failingStore) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: tx, failFrom: s.failFrom}, nil
}

type failingTx struct {
	storage.Tx
	failFrom common.Address
}

func (t *failingTx) Transfer(ctx context.Context, asset, from, to common.Address, amount uint64, signer address.Signer) error {
	if from == t.failFrom {
		return errors.New("ledger unavailable")
	}
	return t.Tx.Transfer(ctx, asset, from, to, amount, signer)
}

func newTestEngine(t *testing.T) (*Engine, *storage.MemoryStore, *memJournal) {
	t.Helper()
	store := storage.NewMemoryStore()
	journal := &memJournal{}
	return NewEngine(store, testProgram, journal, nil), store, journal
}

func initParams(engine *Engine, seed uint64, feeBps uint16, authority *common.Address) InitializeParams {
	expected := engine.ExpectedAccounts(seed, testAssetX, testAssetY)
	return InitializeParams{
		Payer:      admin,
		Seed:       seed,
		FeeBps:     feeBps,
		Authority:  authority,
		AssetX:     testAssetX,
		AssetY:     testAssetY,
		VaultX:     expected.VaultX,
		VaultY:     expected.VaultY,
		ShareAsset: expected.ShareAsset,
	}
}

func fund(t *testing.T, store *storage.MemoryStore, asset, account common.Address, amount uint64) {
	t.Helper()
	if err := store.Fund(context.Background(), asset, account, amount); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func balance(t *testing.T, store storage.Store, asset, account common.Address) uint64 {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)
	bal, err := tx.BalanceOf(ctx, asset, account)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

// bootstrapPool creates a 30 bps pool and seeds it with 1000 X / 4000 Y from alice.
func bootstrapPool(t *testing.T, engine *Engine, store *storage.MemoryStore, authority *common.Address) model.Pool {
	t.Helper()
	ctx := context.Background()
	pool, err := engine.Initialize(ctx, initParams(engine, 1, 30, authority))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	fund(t, store, testAssetX, alice, 1000)
	fund(t, store, testAssetY, alice, 4000)

	res, err := engine.Deposit(ctx, DepositParams{Pool: pool.Address, Depositor: alice, MaxX: 1000, MaxY: 4000})
	if err != nil {
		t.Fatalf("bootstrap deposit: %v", err)
	}
	if res.Shares != 1900 {
		t.Fatalf("expected 1900 shares, got %d", res.Shares)
	}
	return pool
}

func TestBootstrapDeposit(t *testing.T) {
	engine, store, journal := newTestEngine(t)
	pool := bootstrapPool(t, engine, store, nil)

	if got := balance(t, store, pool.ShareAsset, alice); got != 1900 {
		t.Fatalf("alice shares = %d, want 1900", got)
	}
	locked := address.LockedLiquidity(testProgram, pool.Address)
	if got := balance(t, store, pool.ShareAsset, locked); got != MinimumLiquidity {
		t.Fatalf("locked shares = %d, want %d", got, MinimumLiquidity)
	}

	view, err := engine.PoolView(context.Background(), pool.Address, &alice)
	if err != nil {
		t.Fatalf("pool view: %v", err)
	}
	if view.ReserveX != 1000 || view.ReserveY != 4000 || view.ShareSupply != 2000 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.PriceXInY.String() != "4" {
		t.Fatalf("price = %s, want 4", view.PriceXInY)
	}
	if view.Holder == nil || view.Holder.AmountX != 950 || view.Holder.AmountY != 3800 {
		t.Fatalf("unexpected holder claim %+v", view.Holder)
	}

	if len(journal.receipts) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(journal.receipts))
	}
	if journal.receipts[0].Kind != model.KindInitialize || journal.receipts[1].Kind != model.KindDeposit {
		t.Fatalf("unexpected receipt kinds %q, %q", journal.receipts[0].Kind, journal.receipts[1].Kind)
	}
	if journal.receipts[1].Timestamp == "" {
		t.Fatalf("receipt timestamp missing")
	}
}

func TestProportionalDeposit(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	pool := bootstrapPool(t, engine, store, nil)
	fund(t, store, testAssetX, bob, 100)
	fund(t, store, testAssetY, bob, 1000)

	res, err := engine.Deposit(context.Background(), DepositParams{Pool: pool.Address, Depositor: bob, MaxX: 100, MaxY: 1000})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if res.AmountX != 100 || res.AmountY != 400 || res.Shares != 200 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := balance(t, store, testAssetY, bob); got != 600 {
		t.Fatalf("bob y = %d, want 600", got)
	}
	if got := balance(t, store, testAssetX, pool.VaultX); got != 1100 {
		t.Fatalf("reserve x = %d, want 1100", got)
	}
}

func TestDepositClampsToBalance(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	pool := bootstrapPool(t, engine, store, nil)
	fund(t, store, testAssetX, bob, 50)
	fund(t, store, testAssetY, bob, 1000)

	res, err := engine.Deposit(context.Background(), DepositParams{Pool: pool.Address, Depositor: bob, MaxX: 100, MaxY: 1000})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if res.AmountX != 50 || res.AmountY != 200 || res.Shares != 100 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDepositRejects(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()
	pool, err := engine.Initialize(ctx, initParams(engine, 1, 30, nil))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	_, err = engine.Deposit(ctx, DepositParams{Pool: pool.Address, Depositor: bob, MaxX: 0, MaxY: 10})
	if !errors.Is(err, ErrInvalidDepositAmount) {
		t.Fatalf("zero max: expected ErrInvalidDepositAmount, got %v", err)
	}
	_, err = engine.Deposit(ctx, DepositParams{Pool: pool.Address, Depositor: bob, MaxX: 10, MaxY: 10})
	if !errors.Is(err, ErrInvalidDepositAmount) {
		t.Fatalf("empty balances: expected ErrInvalidDepositAmount, got %v", err)
	}

	fund(t, store, testAssetX, bob, 50)
	fund(t, store, testAssetY, bob, 50)
	_, err = engine.Deposit(ctx, DepositParams{Pool: pool.Address, Depositor: bob, MaxX: 50, MaxY: 50})
	if !errors.Is(err, ErrDepositTooSmall) {
		t.Fatalf("expected ErrDepositTooSmall, got %v", err)
	}
	if got := balance(t, store, testAssetX, bob); got != 50 {
		t.Fatalf("rejected deposit moved funds: bob x = %d", got)
	}

	_, err = engine.Deposit(ctx, DepositParams{Pool: common.HexToAddress("0xdead"), Depositor: bob, MaxX: 1, MaxY: 1})
	if !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestSwapScenario(t *testing.T) {
	engine, store, journal := newTestEngine(t)
	pool := bootstrapPool(t, engine, store, nil)
	fund(t, store, testAssetX, carol, 100)
	ctx := context.Background()

	params := SwapParams{Pool: pool.Address, Trader: carol, InputIsX: true, Amount: 100, MinOutput: 400}
	if _, err := engine.Swap(ctx, params); !errors.Is(err, ErrOutputTooSmall) {
		t.Fatalf("expected ErrOutputTooSmall, got %v", err)
	}
	if got := balance(t, store, testAssetX, carol); got != 100 {
		t.Fatalf("rejected swap moved funds: carol x = %d", got)
	}

	params.MinOutput = 360
	quote, err := engine.QuoteSwap(ctx, params)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	res, err := engine.Swap(ctx, params)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res != quote {
		t.Fatalf("quote %+v differs from swap %+v", quote, res)
	}
	if res.Input != 100 || res.TaxedInput != 100 || res.Output != 363 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := balance(t, store, testAssetY, carol); got != 363 {
		t.Fatalf("carol y = %d, want 363", got)
	}
	if got := balance(t, store, testAssetX, pool.VaultX); got != 1100 {
		t.Fatalf("reserve x = %d, want 1100", got)
	}
	if got := balance(t, store, testAssetY, pool.VaultY); got != 3637 {
		t.Fatalf("reserve y = %d, want 3637", got)
	}

	last := journal.receipts[len(journal.receipts)-1]
	if last.Kind != model.KindSwap || last.Output != 363 || !last.InputIsX {
		t.Fatalf("unexpected swap receipt %+v", last)
	}
}

func TestSwapReverseDirection(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	pool := bootstrapPool(t, engine, store, nil)
	fund(t, store, testAssetY, carol, 400)

	res, err := engine.Swap(context.Background(), SwapParams{Pool: pool.Address, Trader: carol, Amount: 1000})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	// Clamped to 400; taxed 399; floor(399*1000/4399) = 90.
	if res.Input != 400 || res.Output != 90 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSwapUnbootstrappedPool(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()
	pool, err := engine.Initialize(ctx, initParams(engine, 1, 30, nil))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	fund(t, store, testAssetX, carol, 100)

	_, err = engine.Swap(ctx, SwapParams{Pool: pool.Address, Trader: carol, InputIsX: true, Amount: 100})
	if !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
	if got := balance(t, store, testAssetX, pool.VaultX); got != 0 {
		t.Fatalf("reserve changed: %d", got)
	}
}

func TestSwapRejectsZeroInput(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	pool := bootstrapPool(t, engine, store, nil)
	ctx := context.Background()

	_, err := engine.Swap(ctx, SwapParams{Pool: pool.Address, Trader: carol, InputIsX: true, Amount: 0})
	if !errors.Is(err, ErrInvalidSwapAmount) {
		t.Fatalf("expected ErrInvalidSwapAmount, got %v", err)
	}
	_, err = engine.Swap(ctx, SwapParams{Pool: pool.Address, Trader: carol, InputIsX: true, Amount: 10})
	if !errors.Is(err, ErrInvalidSwapAmount) {
		t.Fatalf("empty balance: expected ErrInvalidSwapAmount, got %v", err)
	}

	// One unit in, nothing out.
	fund(t, store, testAssetY, carol, 1)
	_, err = engine.Swap(ctx, SwapParams{Pool: pool.Address, Trader: carol, Amount: 1})
	if !errors.Is(err, ErrOutputTooSmall) {
		t.Fatalf("expected ErrOutputTooSmall, got %v", err)
	}
}

func TestSwapOutFailureRollsBack(t *testing.T) {
	mem := storage.NewMemoryStore()
	seeding := NewEngine(mem, testProgram, nil, nil)
	pool := bootstrapPool(t, seeding, mem, nil)
	fund(t, mem, testAssetX, carol, 100)

	engine := NewEngine(&failingStore{Store: mem, failFrom: pool.VaultY}, testProgram, nil, nil)
	_, err := engine.Swap(context.Background(), SwapParams{Pool: pool.Address, Trader: carol, InputIsX: true, Amount: 100})
	if !errors.Is(err, ErrSwapOutFailed) {
		t.Fatalf("expected ErrSwapOutFailed, got %v", err)
	}
	if got := balance(t, mem, testAssetX, carol); got != 100 {
		t.Fatalf("input transfer not rolled back: carol x = %d", got)
	}
	if got := balance(t, mem, testAssetX, pool.VaultX); got != 1000 {
		t.Fatalf("input transfer not rolled back: reserve x = %d", got)
	}
}

func TestSwapInFailureWrapsCause(t *testing.T) {
	mem := storage.NewMemoryStore()
	seeding := NewEngine(mem, testProgram, nil, nil)
	pool := bootstrapPool(t, seeding, mem, nil)
	fund(t, mem, testAssetX, carol, 100)

	engine := NewEngine(&failingStore{Store: mem, failFrom: carol}, testProgram, nil, nil)
	_, err := engine.Swap(context.Background(), SwapParams{Pool: pool.Address, Trader: carol, InputIsX: true, Amount: 100})
	if !errors.Is(err, ErrSwapInFailed) {
		t.Fatalf("expected ErrSwapInFailed, got %v", err)
	}
}

func TestDepositTransferFailure(t *testing.T) {
	mem := storage.NewMemoryStore()
	seeding := NewEngine(mem, testProgram, nil, nil)
	pool := bootstrapPool(t, seeding, mem, nil)
	fund(t, mem, testAssetX, bob, 100)
	fund(t, mem, testAssetY, bob, 400)

	engine := NewEngine(&failingStore{Store: mem, failFrom: bob}, testProgram, nil, nil)
	_, err := engine.Deposit(context.Background(), DepositParams{Pool: pool.Address, Depositor: bob, MaxX: 100, MaxY: 400})
	if !errors.Is(err, ErrDepositToPoolFailed) {
		t.Fatalf("expected ErrDepositToPoolFailed, got %v", err)
	}
	if got := balance(t, mem, pool.ShareAsset, bob); got != 0 {
		t.Fatalf("shares minted on failed deposit: %d", got)
	}
}

func TestLockedPoolRejects(t *testing.T) {
	engine, store, journal := newTestEngine(t)
	pool := bootstrapPool(t, engine, store, &admin)
	fund(t, store, testAssetX, carol, 100)
	fund(t, store, testAssetY, carol, 400)
	ctx := context.Background()

	if err := engine.SetLocked(ctx, pool.Address, address.UserSigner(carol), true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := engine.SetLocked(ctx, pool.Address, address.UserSigner(admin), true); err != nil {
			t.Fatalf("lock %d: %v", i, err)
		}
	}
	receipts := len(journal.receipts)

	top := ^uint64(0)
	swaps := []SwapParams{
		{Pool: pool.Address, Trader: carol, InputIsX: true, Amount: 100},
		{Pool: pool.Address, Trader: carol, Amount: 0},
		{Pool: pool.Address, Trader: carol, InputIsX: true, Amount: top, MinOutput: top},
		{Pool: pool.Address, Trader: bob, Amount: 10},
	}
	for _, params := range swaps {
		if _, err := engine.Swap(ctx, params); !errors.Is(err, ErrPoolLocked) {
			t.Fatalf("swap %+v: expected ErrPoolLocked, got %v", params, err)
		}
		if _, err := engine.QuoteSwap(ctx, params); !errors.Is(err, ErrPoolLocked) {
			t.Fatalf("quote swap %+v: expected ErrPoolLocked, got %v", params, err)
		}
	}
	deposits := []DepositParams{
		{Pool: pool.Address, Depositor: carol, MaxX: 100, MaxY: 400},
		{Pool: pool.Address, Depositor: carol, MaxX: 0, MaxY: 10},
		{Pool: pool.Address, Depositor: carol, MaxX: 10, MaxY: 0},
		{Pool: pool.Address, Depositor: carol, MaxX: top, MaxY: top},
		{Pool: pool.Address, Depositor: bob, MaxX: 1, MaxY: 1},
	}
	for _, params := range deposits {
		if _, err := engine.Deposit(ctx, params); !errors.Is(err, ErrPoolLocked) {
			t.Fatalf("deposit %+v: expected ErrPoolLocked, got %v", params, err)
		}
		if _, err := engine.QuoteDeposit(ctx, params); !errors.Is(err, ErrPoolLocked) {
			t.Fatalf("quote deposit %+v: expected ErrPoolLocked, got %v", params, err)
		}
	}
	if got := balance(t, store, testAssetX, pool.VaultX); got != 1000 {
		t.Fatalf("locked pool reserve changed: %d", got)
	}
	if len(journal.receipts) != receipts {
		t.Fatalf("rejected operations wrote receipts")
	}

	if err := engine.SetLocked(ctx, pool.Address, address.UserSigner(admin), false); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := engine.Swap(ctx, SwapParams{Pool: pool.Address, Trader: carol, InputIsX: true, Amount: 100}); err != nil {
		t.Fatalf("swap after unlock: %v", err)
	}
}

func TestSetLockedWithoutAuthority(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	pool := bootstrapPool(t, engine, store, nil)

	err := engine.SetLocked(context.Background(), pool.Address, address.UserSigner(admin), true)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestInitializeRejects(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	params := initParams(engine, 1, 30, nil)
	params.VaultX = common.HexToAddress("0x01")
	if _, err := engine.Initialize(ctx, params); !errors.Is(err, ErrInvalidMint) {
		t.Fatalf("wrong vault: expected ErrInvalidMint, got %v", err)
	}

	params = initParams(engine, 1, 30, nil)
	params.ShareAsset = testAssetX
	if _, err := engine.Initialize(ctx, params); !errors.Is(err, ErrInvalidMint) {
		t.Fatalf("wrong share asset: expected ErrInvalidMint, got %v", err)
	}

	params = initParams(engine, 1, 30, nil)
	params.AssetY = testAssetX
	if _, err := engine.Initialize(ctx, params); !errors.Is(err, ErrInvalidMint) {
		t.Fatalf("same assets: expected ErrInvalidMint, got %v", err)
	}

	if _, err := engine.Initialize(ctx, initParams(engine, 1, 10_000, nil)); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}

	if _, err := engine.Initialize(ctx, initParams(engine, 1, 30, nil)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := engine.Initialize(ctx, initParams(engine, 1, 30, nil)); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}
	if _, err := engine.Initialize(ctx, initParams(engine, 2, 30, nil)); err != nil {
		t.Fatalf("second seed should create a distinct pool: %v", err)
	}
}

func TestVaultsOnlyMoveUnderPoolSigner(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	pool := bootstrapPool(t, engine, store, nil)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	err = tx.Transfer(ctx, testAssetY, pool.VaultY, carol, 1, address.UserSigner(pool.Address))
	if !errors.Is(err, storage.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	locked := address.LockedLiquidity(testProgram, pool.Address)
	err = tx.Transfer(ctx, pool.ShareAsset, locked, carol, 1, address.UserSigner(locked))
	if !errors.Is(err, storage.ErrUnauthorized) {
		t.Fatalf("locked liquidity moved: %v", err)
	}
}

func TestJournalFailureDoesNotFailOperation(t *testing.T) {
	store := storage.NewMemoryStore()
	journal := &memJournal{err: errors.New("disk full")}
	engine := NewEngine(store, testProgram, journal, nil)

	if _, err := engine.Initialize(context.Background(), initParams(engine, 1, 30, nil)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
}

func TestQuoteDepositLeavesState(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	pool := bootstrapPool(t, engine, store, nil)
	fund(t, store, testAssetX, bob, 100)
	fund(t, store, testAssetY, bob, 1000)

	quote, err := engine.QuoteDeposit(context.Background(), DepositParams{Pool: pool.Address, Depositor: bob, MaxX: 100, MaxY: 1000})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.AmountX != 100 || quote.AmountY != 400 || quote.Shares != 200 || quote.Bootstrap {
		t.Fatalf("unexpected quote %+v", quote)
	}
	if got := balance(t, store, testAssetX, bob); got != 100 {
		t.Fatalf("quote moved funds: %d", got)
	}
}

func TestPropertyWithheldLiquidityKeepsReserves(t *testing.T) {
	property := func(rawX, rawY uint64, rawDeposits [6]uint64) bool {
		engine, store, _ := newTestEngine(t)
		ctx := context.Background()
		pool, err := engine.Initialize(ctx, initParams(engine, 1, 30, nil))
		if err != nil {
			return false
		}

		x := bounded(rawX, 1e3, 1e9)
		y := bounded(rawY, 1e3, 1e9)
		fund(t, store, testAssetX, alice, x)
		fund(t, store, testAssetY, alice, y)
		if _, err := engine.Deposit(ctx, DepositParams{Pool: pool.Address, Depositor: alice, MaxX: x, MaxY: y}); err != nil {
			return false
		}

		for i := 0; i < len(rawDeposits); i += 2 {
			dx := bounded(rawDeposits[i], 1, 1e9)
			dy := bounded(rawDeposits[i+1], 1, 1e9)
			fund(t, store, testAssetX, bob, dx)
			fund(t, store, testAssetY, bob, dy)
			_, err := engine.Deposit(ctx, DepositParams{Pool: pool.Address, Depositor: bob, MaxX: dx, MaxY: dy})
			if err != nil && !errors.Is(err, ErrInvalidDepositAmount) && !errors.Is(err, ErrDepositTooSmall) {
				return false
			}
		}

		view, err := engine.PoolView(ctx, pool.Address, nil)
		if err != nil {
			return false
		}
		locked := address.LockedLiquidity(testProgram, pool.Address)
		if balance(t, store, pool.ShareAsset, locked) != MinimumLiquidity {
			return false
		}

		outX, outY, err := RedeemableAmounts(view.ShareSupply-MinimumLiquidity, view.ShareSupply, view.ReserveX, view.ReserveY)
		if err != nil {
			return false
		}
		return outX < view.ReserveX && outY < view.ReserveY
	}

	err := quick.Check(property, &quick.Config{MaxCount: 200})
	require.NoError(t, err)
}
