// Package address derives stable sub-account addresses for pools and carries
// the signer capability the ledger checks before moving funds.
package address

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const domain = "cpamm-derive"

// Seed tags.
const (
	TagPool   = "pool"
	TagVault  = "vault"
	TagShares = "lp"
	TagLocked = "locked_lp"
)

// Derive maps (program, seeds...) to an address. The same inputs always give
// the same address.
func Derive(program common.Address, seeds ...[]byte) common.Address {
	parts := make([][]byte, 0, len(seeds)+2)
	parts = append(parts, []byte(domain), program.Bytes())
	parts = append(parts, seeds...)
	return common.BytesToAddress(crypto.Keccak256(parts...)[12:])
}

// PoolSeeds returns the seeds of a pool identity.
func PoolSeeds(seed uint64, assetX, assetY common.Address) [][]byte {
	return [][]byte{[]byte(TagPool), Uint64LE(seed), assetX.Bytes(), assetY.Bytes()}
}

func Pool(program common.Address, seed uint64, assetX, assetY common.Address) common.Address {
	return Derive(program, PoolSeeds(seed, assetX, assetY)...)
}

func Vault(program, pool, asset common.Address) common.Address {
	return Derive(program, []byte(TagVault), pool.Bytes(), asset.Bytes())
}

func ShareAsset(program, pool common.Address) common.Address {
	return Derive(program, []byte(TagShares), pool.Bytes())
}

// LockedLiquidity is the holder of the permanently withheld bootstrap shares.
// The engine never builds a signer for it, so no pool operation can move them.
func LockedLiquidity(program, pool common.Address) common.Address {
	return Derive(program, []byte(TagLocked), pool.Bytes())
}

func Uint64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
