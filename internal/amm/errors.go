package amm

import "errors"

var (
	ErrPoolLocked           = errors.New("pool is locked")
	ErrPoolNotFound         = errors.New("pool not found")
	ErrDepositToPoolFailed  = errors.New("deposit to pool failed")
	ErrSwapInFailed         = errors.New("swap input transfer failed")
	ErrSwapOutFailed        = errors.New("swap output transfer failed")
	ErrDepositTooSmall      = errors.New("deposit too small")
	ErrOutputTooSmall       = errors.New("output below minimum")
	ErrInvalidMint          = errors.New("invalid mint or vault")
	ErrInvalidDepositAmount = errors.New("invalid deposit amount")
	ErrInvalidSwapAmount    = errors.New("invalid swap amount")
	ErrInvalidFee           = errors.New("fee must be below 10000 bps")
	ErrPoolExists           = errors.New("pool already exists")
	ErrZeroReserve          = errors.New("pool has exactly one empty reserve")
	ErrUnauthorized         = errors.New("unauthorized")
)
