package model

import "github.com/shopspring/decimal"

// PoolView is a read-only snapshot of a pool and its live balances.
type PoolView struct {
	Pool        Pool            `json:"pool"`
	ReserveX    uint64          `json:"reserve_x"`
	ReserveY    uint64          `json:"reserve_y"`
	ShareSupply uint64          `json:"share_supply"`
	PriceXInY   decimal.Decimal `json:"price_x_in_y"`
	Holder      *HolderClaim    `json:"holder,omitempty"`
}

// HolderClaim is the share balance of one account and what it redeems for.
type HolderClaim struct {
	Shares  uint64 `json:"shares"`
	AmountX uint64 `json:"amount_x"`
	AmountY uint64 `json:"amount_y"`
}
