package model

import "github.com/ethereum/go-ethereum/common"

// Receipt kinds.
const (
	KindInitialize = "initialize"
	KindDeposit    = "deposit"
	KindSwap       = "swap"
	KindLock       = "lock"
	KindUnlock     = "unlock"
)

// KnownKind reports whether kind is one of the receipt kinds above.
func KnownKind(kind string) bool {
	switch kind {
	case KindInitialize, KindDeposit, KindSwap, KindLock, KindUnlock:
		return true
	}
	return false
}

// Receipt records one committed pool operation.
type Receipt struct {
	Kind      string         `json:"kind"`
	Pool      common.Address `json:"pool"`
	Actor     common.Address `json:"actor"`
	AmountX   uint64         `json:"amount_x,omitempty"`
	AmountY   uint64         `json:"amount_y,omitempty"`
	Shares    uint64         `json:"shares,omitempty"`
	InputIsX  bool           `json:"input_is_x,omitempty"`
	Input     uint64         `json:"input,omitempty"`
	Output    uint64         `json:"output,omitempty"`
	Timestamp string         `json:"timestamp"`
}
