package address

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// Signer is the authority presented with a ledger movement. A user signer
// stands for a signature the host already verified. A derived signer carries
// the seeds of a program-derived address and is valid only if they hash to it.
type Signer struct {
	addr    common.Address
	program common.Address
	seeds   [][]byte
	derived bool
}

func UserSigner(addr common.Address) Signer {
	return Signer{addr: addr}
}

// DerivedSigner returns the capability to act as Derive(program, seeds...).
func DerivedSigner(program common.Address, seeds ...[]byte) Signer {
	copied := make([][]byte, len(seeds))
	for i, seed := range seeds {
		copied[i] = bytes.Clone(seed)
	}
	return Signer{
		addr:    Derive(program, copied...),
		program: program,
		seeds:   copied,
		derived: true,
	}
}

func (s Signer) Address() common.Address {
	return s.addr
}

func (s Signer) Derived() bool {
	return s.derived
}

// Authorizes reports whether s may act for authority.
func (s Signer) Authorizes(authority common.Address, derived bool) bool {
	if s.addr != authority || s.derived != derived {
		return false
	}
	if !derived {
		return true
	}
	return Derive(s.program, s.seeds...) == authority
}
