package model

import "github.com/ethereum/go-ethereum/common"

// FeeDenominator is the basis-point denominator of Pool.FeeBps.
const FeeDenominator = 10_000

// Pool is the stored record of one trading pair. Reserves are not part of it:
// they are the live ledger balances of VaultX and VaultY.
type Pool struct {
	Seed       uint64          `json:"seed"`
	Address    common.Address  `json:"address"`
	AssetX     common.Address  `json:"asset_x"`
	AssetY     common.Address  `json:"asset_y"`
	ShareAsset common.Address  `json:"share_asset"`
	VaultX     common.Address  `json:"vault_x"`
	VaultY     common.Address  `json:"vault_y"`
	FeeBps     uint16          `json:"fee_bps"`
	Locked     bool            `json:"locked"`
	Authority  *common.Address `json:"authority,omitempty"`
}

// Vaults returns the (input, output) vaults and assets for a swap direction.
func (p Pool) Vaults(inputIsX bool) (inAsset, inVault, outAsset, outVault common.Address) {
	if inputIsX {
		return p.AssetX, p.VaultX, p.AssetY, p.VaultY
	}
	return p.AssetY, p.VaultY, p.AssetX, p.VaultX
}
