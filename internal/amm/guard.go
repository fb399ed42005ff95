package amm

import "cpamm/internal/model"

// CheckDeposit rejects deposits into a locked pool.
func CheckDeposit(pool model.Pool) error {
	if pool.Locked {
		return ErrPoolLocked
	}
	return nil
}

// CheckSwap rejects swaps against a locked pool or one that was never
// bootstrapped.
func CheckSwap(pool model.Pool, shareSupply uint64) error {
	if pool.Locked {
		return ErrPoolLocked
	}
	if shareSupply == 0 {
		return ErrPoolNotFound
	}
	return nil
}
