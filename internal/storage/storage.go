// Package storage holds the token ledger and pool records the engine settles
// against. All reads and writes of one operation go through a single Tx.
package storage

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/address"
	"cpamm/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrExists            = errors.New("already exists")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("unauthorized signer")
	ErrOverflow          = errors.New("amount overflow")
	ErrTxDone            = errors.New("transaction already finished")
)

// Store opens ledger transactions. Transactions against the same store are
// serialized.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Ledger is the token side of a transaction.
type Ledger interface {
	BalanceOf(ctx context.Context, asset, account common.Address) (uint64, error)
	Supply(ctx context.Context, asset common.Address) (uint64, error)
	CreateAsset(ctx context.Context, asset, mintAuthority common.Address, derived bool) error
	OpenAccount(ctx context.Context, asset, account, authority common.Address, derived bool) error
	Transfer(ctx context.Context, asset, from, to common.Address, amount uint64, signer address.Signer) error
	Mint(ctx context.Context, asset, to common.Address, amount uint64, signer address.Signer) error
}

// Pools is the pool-record side of a transaction.
type Pools interface {
	GetPool(ctx context.Context, addr common.Address) (model.Pool, error)
	CreatePool(ctx context.Context, pool model.Pool) error
	UpdatePool(ctx context.Context, pool model.Pool) error
}

// Tx is one atomic unit of work. Nothing is visible to other transactions
// until Commit; Rollback discards every effect.
type Tx interface {
	Ledger
	Pools
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Journal records committed operations.
type Journal interface {
	Append(receipts ...model.Receipt) error
}

// Funder credits balances out of thin air. Only stores used for local runs
// and tests implement it.
type Funder interface {
	Fund(ctx context.Context, asset, account common.Address, amount uint64) error
}
