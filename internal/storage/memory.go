package storage

import (
	"context"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/address"
	"cpamm/internal/model"
)

type accountKey struct {
	Asset   common.Address
	Account common.Address
}

type authority struct {
	Address common.Address
	Derived bool
}

type assetInfo struct {
	Supply        uint64
	MintAuthority common.Address
	Derived       bool
}

type ledgerState struct {
	balances    map[accountKey]uint64
	authorities map[accountKey]authority
	assets      map[common.Address]assetInfo
	pools       map[common.Address]model.Pool
}

func newLedgerState() *ledgerState {
	return &ledgerState{
		balances:    make(map[accountKey]uint64),
		authorities: make(map[accountKey]authority),
		assets:      make(map[common.Address]assetInfo),
		pools:       make(map[common.Address]model.Pool),
	}
}

func (s *ledgerState) clone() *ledgerState {
	out := &ledgerState{
		balances:    make(map[accountKey]uint64, len(s.balances)),
		authorities: make(map[accountKey]authority, len(s.authorities)),
		assets:      make(map[common.Address]assetInfo, len(s.assets)),
		pools:       make(map[common.Address]model.Pool, len(s.pools)),
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	for k, v := range s.authorities {
		out.authorities[k] = v
	}
	for k, v := range s.assets {
		out.assets[k] = v
	}
	for k, v := range s.pools {
		out.pools[k] = clonePool(v)
	}
	return out
}

func clonePool(p model.Pool) model.Pool {
	if p.Authority != nil {
		auth := *p.Authority
		p.Authority = &auth
	}
	return p
}

// MemoryStore keeps the ledger in process memory. A transaction works on a
// private copy and holds the store until it commits or rolls back.
type MemoryStore struct {
	sem     chan struct{}
	state   *ledgerState
	persist func(*ledgerState) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sem:   make(chan struct{}, 1),
		state: newLedgerState(),
	}
}

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &memoryTx{store: s, working: s.state.clone()}, nil
}

// Fund credits account with amount of asset in its own transaction.
func (s *MemoryStore) Fund(ctx context.Context, asset, account common.Address, amount uint64) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	mtx := tx.(*memoryTx)
	if err := mtx.fund(asset, account, amount); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type memoryTx struct {
	store   *MemoryStore
	working *ledgerState
	done    bool
}

func (t *memoryTx) release() {
	t.done = true
	<-t.store.sem
}

func (t *memoryTx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	defer t.release()
	if t.store.persist != nil {
		if err := t.store.persist(t.working); err != nil {
			return fmt.Errorf("persist ledger: %w", err)
		}
	}
	t.store.state = t.working
	return nil
}

func (t *memoryTx) Rollback(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.release()
	return nil
}

func (t *memoryTx) BalanceOf(ctx context.Context, asset, account common.Address) (uint64, error) {
	if t.done {
		return 0, ErrTxDone
	}
	return t.working.balances[accountKey{Asset: asset, Account: account}], nil
}

func (t *memoryTx) Supply(ctx context.Context, asset common.Address) (uint64, error) {
	if t.done {
		return 0, ErrTxDone
	}
	info, ok := t.working.assets[asset]
	if !ok {
		return 0, ErrAssetNotFound
	}
	return info.Supply, nil
}

func (t *memoryTx) CreateAsset(ctx context.Context, asset, mintAuthority common.Address, derived bool) error {
	if t.done {
		return ErrTxDone
	}
	if _, ok := t.working.assets[asset]; ok {
		return fmt.Errorf("asset %s: %w", asset.Hex(), ErrExists)
	}
	t.working.assets[asset] = assetInfo{MintAuthority: mintAuthority, Derived: derived}
	return nil
}

func (t *memoryTx) OpenAccount(ctx context.Context, asset, account, auth common.Address, derived bool) error {
	if t.done {
		return ErrTxDone
	}
	key := accountKey{Asset: asset, Account: account}
	if _, ok := t.working.authorities[key]; ok {
		return fmt.Errorf("account %s: %w", account.Hex(), ErrExists)
	}
	t.working.authorities[key] = authority{Address: auth, Derived: derived}
	return nil
}

func (t *memoryTx) authorityOf(key accountKey) authority {
	if auth, ok := t.working.authorities[key]; ok {
		return auth
	}
	return authority{Address: key.Account}
}

func (t *memoryTx) Transfer(ctx context.Context, asset, from, to common.Address, amount uint64, signer address.Signer) error {
	if t.done {
		return ErrTxDone
	}
	src := accountKey{Asset: asset, Account: from}
	auth := t.authorityOf(src)
	if !signer.Authorizes(auth.Address, auth.Derived) {
		return fmt.Errorf("transfer from %s: %w", from.Hex(), ErrUnauthorized)
	}
	if amount == 0 || from == to {
		return nil
	}

	balance := t.working.balances[src]
	if balance < amount {
		return fmt.Errorf("transfer from %s: %w", from.Hex(), ErrInsufficientFunds)
	}
	dst := accountKey{Asset: asset, Account: to}
	if t.working.balances[dst] > math.MaxUint64-amount {
		return fmt.Errorf("transfer to %s: %w", to.Hex(), ErrOverflow)
	}

	t.working.balances[src] = balance - amount
	t.working.balances[dst] += amount
	return nil
}

func (t *memoryTx) Mint(ctx context.Context, asset, to common.Address, amount uint64, signer address.Signer) error {
	if t.done {
		return ErrTxDone
	}
	info, ok := t.working.assets[asset]
	if !ok {
		return ErrAssetNotFound
	}
	if !signer.Authorizes(info.MintAuthority, info.Derived) {
		return fmt.Errorf("mint %s: %w", asset.Hex(), ErrUnauthorized)
	}
	dst := accountKey{Asset: asset, Account: to}
	if info.Supply > math.MaxUint64-amount || t.working.balances[dst] > math.MaxUint64-amount {
		return fmt.Errorf("mint %s: %w", asset.Hex(), ErrOverflow)
	}

	info.Supply += amount
	t.working.assets[asset] = info
	t.working.balances[dst] += amount
	return nil
}

func (t *memoryTx) fund(asset, account common.Address, amount uint64) error {
	dst := accountKey{Asset: asset, Account: account}
	if t.working.balances[dst] > math.MaxUint64-amount {
		return ErrOverflow
	}
	if info, ok := t.working.assets[asset]; ok {
		if info.Supply > math.MaxUint64-amount {
			return ErrOverflow
		}
		info.Supply += amount
		t.working.assets[asset] = info
	}
	t.working.balances[dst] += amount
	return nil
}

func (t *memoryTx) GetPool(ctx context.Context, addr common.Address) (model.Pool, error) {
	if t.done {
		return model.Pool{}, ErrTxDone
	}
	pool, ok := t.working.pools[addr]
	if !ok {
		return model.Pool{}, fmt.Errorf("pool %s: %w", addr.Hex(), ErrNotFound)
	}
	return clonePool(pool), nil
}

func (t *memoryTx) CreatePool(ctx context.Context, pool model.Pool) error {
	if t.done {
		return ErrTxDone
	}
	if _, ok := t.working.pools[pool.Address]; ok {
		return fmt.Errorf("pool %s: %w", pool.Address.Hex(), ErrExists)
	}
	t.working.pools[pool.Address] = clonePool(pool)
	return nil
}

func (t *memoryTx) UpdatePool(ctx context.Context, pool model.Pool) error {
	if t.done {
		return ErrTxDone
	}
	if _, ok := t.working.pools[pool.Address]; !ok {
		return fmt.Errorf("pool %s: %w", pool.Address.Hex(), ErrNotFound)
	}
	t.working.pools[pool.Address] = clonePool(pool)
	return nil
}
