package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cpamm/internal/address"
	"cpamm/internal/model"
	"cpamm/internal/storage"
)

// Store keeps the ledger and pool records in Postgres. Every transaction runs
// at SERIALIZABLE isolation.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the ledger tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Fund credits account with amount of asset.
func (s *Store) Fund(ctx context.Context, asset, account common.Address, amount uint64) error {
	stx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	tx := stx.(*Tx)
	defer tx.Rollback(ctx)

	if err := tx.credit(ctx, asset, account, amount); err != nil {
		return err
	}
	if _, err := tx.tx.Exec(ctx, `
		UPDATE amm_assets SET supply = supply + $2::numeric, updated_at = now()
		WHERE asset = $1
	`, key(asset), formatAmount(amount)); err != nil {
		return fmt.Errorf("fund supply: %w", err)
	}
	return tx.Commit(ctx)
}

// Tx is a storage.Tx over a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return storage.ErrTxDone
		}
		return err
	}
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return storage.ErrTxDone
		}
		return err
	}
	return nil
}

func (t *Tx) BalanceOf(ctx context.Context, asset, account common.Address) (uint64, error) {
	var balance string
	err := t.tx.QueryRow(ctx, `
		SELECT balance::text FROM amm_accounts WHERE asset = $1 AND account = $2
	`, key(asset), key(account)).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return parseAmount(balance)
}

func (t *Tx) Supply(ctx context.Context, asset common.Address) (uint64, error) {
	var supply string
	err := t.tx.QueryRow(ctx, `SELECT supply::text FROM amm_assets WHERE asset = $1`, key(asset)).Scan(&supply)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrAssetNotFound
		}
		return 0, fmt.Errorf("query supply: %w", err)
	}
	return parseAmount(supply)
}

func (t *Tx) CreateAsset(ctx context.Context, asset, mintAuthority common.Address, derived bool) error {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO amm_assets (asset, supply, mint_authority, derived)
		VALUES ($1, 0, $2, $3)
		ON CONFLICT (asset) DO NOTHING
	`, key(asset), key(mintAuthority), derived)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset %s: %w", asset.Hex(), storage.ErrExists)
	}
	return nil
}

func (t *Tx) OpenAccount(ctx context.Context, asset, account, authority common.Address, derived bool) error {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO amm_accounts (asset, account, balance, authority, derived)
		VALUES ($1, $2, 0, $3, $4)
		ON CONFLICT (asset, account) DO UPDATE
		SET authority = EXCLUDED.authority, derived = EXCLUDED.derived, updated_at = now()
		WHERE amm_accounts.authority IS NULL
	`, key(asset), key(account), key(authority), derived)
	if err != nil {
		return fmt.Errorf("open account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", account.Hex(), storage.ErrExists)
	}
	return nil
}

func (t *Tx) Transfer(ctx context.Context, asset, from, to common.Address, amount uint64, signer address.Signer) error {
	var (
		balanceText string
		authority   *string
		derived     bool
	)
	err := t.tx.QueryRow(ctx, `
		SELECT balance::text, authority, derived FROM amm_accounts
		WHERE asset = $1 AND account = $2
		FOR UPDATE
	`, key(asset), key(from)).Scan(&balanceText, &authority, &derived)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("load source account: %w", err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		balanceText = "0"
	}

	owner := from
	if authority != nil {
		owner = common.HexToAddress(*authority)
	} else {
		derived = false
	}
	if !signer.Authorizes(owner, derived) {
		return fmt.Errorf("transfer from %s: %w", from.Hex(), storage.ErrUnauthorized)
	}
	if amount == 0 || from == to {
		return nil
	}

	balance, err := parseAmount(balanceText)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("transfer from %s: %w", from.Hex(), storage.ErrInsufficientFunds)
	}

	if _, err := t.tx.Exec(ctx, `
		UPDATE amm_accounts SET balance = balance - $3::numeric, updated_at = now()
		WHERE asset = $1 AND account = $2
	`, key(asset), key(from), formatAmount(amount)); err != nil {
		return fmt.Errorf("debit account: %w", err)
	}
	return t.credit(ctx, asset, to, amount)
}

func (t *Tx) Mint(ctx context.Context, asset, to common.Address, amount uint64, signer address.Signer) error {
	var (
		supplyText    string
		mintAuthority string
		derived       bool
	)
	err := t.tx.QueryRow(ctx, `
		SELECT supply::text, mint_authority, derived FROM amm_assets
		WHERE asset = $1
		FOR UPDATE
	`, key(asset)).Scan(&supplyText, &mintAuthority, &derived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrAssetNotFound
		}
		return fmt.Errorf("load asset: %w", err)
	}
	if !signer.Authorizes(common.HexToAddress(mintAuthority), derived) {
		return fmt.Errorf("mint %s: %w", asset.Hex(), storage.ErrUnauthorized)
	}

	var updated string
	if err := t.tx.QueryRow(ctx, `
		UPDATE amm_assets SET supply = supply + $2::numeric, updated_at = now()
		WHERE asset = $1
		RETURNING supply::text
	`, key(asset), formatAmount(amount)).Scan(&updated); err != nil {
		return fmt.Errorf("update supply: %w", err)
	}
	if _, err := parseAmount(updated); err != nil {
		return fmt.Errorf("mint %s: %w", asset.Hex(), err)
	}
	return t.credit(ctx, asset, to, amount)
}

func (t *Tx) credit(ctx context.Context, asset, account common.Address, amount uint64) error {
	var updated string
	err := t.tx.QueryRow(ctx, `
		INSERT INTO amm_accounts (asset, account, balance)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (asset, account) DO UPDATE
		SET balance = amm_accounts.balance + EXCLUDED.balance, updated_at = now()
		RETURNING balance::text
	`, key(asset), key(account), formatAmount(amount)).Scan(&updated)
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	if _, err := parseAmount(updated); err != nil {
		return fmt.Errorf("credit %s: %w", account.Hex(), err)
	}
	return nil
}

func (t *Tx) GetPool(ctx context.Context, addr common.Address) (model.Pool, error) {
	var (
		pool       model.Pool
		seed       string
		assetX     string
		assetY     string
		shareAsset string
		vaultX     string
		vaultY     string
		feeBps     int32
		authority  *string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT seed::text, asset_x, asset_y, share_asset, vault_x, vault_y, fee_bps, locked, authority
		FROM amm_pools WHERE address = $1
		FOR UPDATE
	`, key(addr)).Scan(&seed, &assetX, &assetY, &shareAsset, &vaultX, &vaultY, &feeBps, &pool.Locked, &authority)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, fmt.Errorf("pool %s: %w", addr.Hex(), storage.ErrNotFound)
		}
		return model.Pool{}, fmt.Errorf("query pool: %w", err)
	}

	pool.Seed, err = parseAmount(seed)
	if err != nil {
		return model.Pool{}, err
	}
	pool.Address = addr
	pool.AssetX = common.HexToAddress(assetX)
	pool.AssetY = common.HexToAddress(assetY)
	pool.ShareAsset = common.HexToAddress(shareAsset)
	pool.VaultX = common.HexToAddress(vaultX)
	pool.VaultY = common.HexToAddress(vaultY)
	pool.FeeBps = uint16(feeBps)
	if authority != nil {
		auth := common.HexToAddress(*authority)
		pool.Authority = &auth
	}
	return pool, nil
}

func (t *Tx) CreatePool(ctx context.Context, pool model.Pool) error {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO amm_pools (
			address, seed, asset_x, asset_y, share_asset, vault_x, vault_y, fee_bps, locked, authority
		) VALUES ($1, $2::numeric, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (address) DO NOTHING
	`,
		key(pool.Address),
		formatAmount(pool.Seed),
		key(pool.AssetX),
		key(pool.AssetY),
		key(pool.ShareAsset),
		key(pool.VaultX),
		key(pool.VaultY),
		int32(pool.FeeBps),
		pool.Locked,
		optionalKey(pool.Authority),
	)
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pool %s: %w", pool.Address.Hex(), storage.ErrExists)
	}
	return nil
}

// UpdatePool writes the mutable fields of a pool record.
func (t *Tx) UpdatePool(ctx context.Context, pool model.Pool) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE amm_pools SET locked = $2, authority = $3, updated_at = now()
		WHERE address = $1
	`, key(pool.Address), pool.Locked, optionalKey(pool.Authority))
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pool %s: %w", pool.Address.Hex(), storage.ErrNotFound)
	}
	return nil
}

func key(addr common.Address) string {
	return addr.Hex()
}

func optionalKey(addr *common.Address) *string {
	if addr == nil {
		return nil
	}
	val := addr.Hex()
	return &val
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseAmount(text string) (uint64, error) {
	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, storage.ErrOverflow
		}
		return 0, fmt.Errorf("parse amount %q: %w", text, err)
	}
	return v, nil
}
