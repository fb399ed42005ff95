package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"cpamm/internal/address"
	"cpamm/internal/amm"
	"cpamm/internal/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a pool for an asset pair",
		RunE:  runInit,
	}
	cmd.Flags().Uint64("seed", 0, "pool identity seed")
	cmd.Flags().Uint16("fee-bps", 30, "swap fee in basis points")
	cmd.Flags().String("asset-x", "", "asset X address")
	cmd.Flags().String("asset-y", "", "asset Y address")
	cmd.Flags().String("authority", "", "optional lock authority")
	cmd.Flags().String("payer", "", "account paying for the pool")
	cmd.Flags().String("vault-x", "", "vault X address (defaults to the derived one)")
	cmd.Flags().String("vault-y", "", "vault Y address (defaults to the derived one)")
	cmd.Flags().String("share-asset", "", "share asset address (defaults to the derived one)")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	flags := cmd.Flags()
	seed, _ := flags.GetUint64("seed")
	feeBps, _ := flags.GetUint16("fee-bps")

	assetX, err := addressFlag(cmd, "asset-x")
	if err != nil {
		return err
	}
	assetY, err := addressFlag(cmd, "asset-y")
	if err != nil {
		return err
	}
	payer, err := addressFlag(cmd, "payer")
	if err != nil {
		return err
	}
	authority, err := optionalAddressFlag(cmd, "authority")
	if err != nil {
		return err
	}

	expected := a.engine.ExpectedAccounts(seed, assetX, assetY)
	vaultX, err := overrideAddress(cmd, "vault-x", expected.VaultX)
	if err != nil {
		return err
	}
	vaultY, err := overrideAddress(cmd, "vault-y", expected.VaultY)
	if err != nil {
		return err
	}
	share, err := overrideAddress(cmd, "share-asset", expected.ShareAsset)
	if err != nil {
		return err
	}

	pool, err := a.engine.Initialize(cmd.Context(), amm.InitializeParams{
		Payer:      payer,
		Seed:       seed,
		FeeBps:     feeBps,
		Authority:  authority,
		AssetX:     assetX,
		AssetY:     assetY,
		VaultX:     vaultX,
		VaultY:     vaultY,
		ShareAsset: share,
	})
	if err != nil {
		return err
	}
	return writeJSON(cmd, pool)
}

func newLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock or unlock a pool",
		RunE:  runLock,
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("signer", "", "pool authority")
	cmd.Flags().Bool("unlock", false, "clear the lock instead of setting it")
	return cmd
}

func runLock(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pool, err := addressFlag(cmd, "pool")
	if err != nil {
		return err
	}
	signer, err := addressFlag(cmd, "signer")
	if err != nil {
		return err
	}
	unlock, _ := cmd.Flags().GetBool("unlock")

	if err := a.engine.SetLocked(cmd.Context(), pool, address.UserSigner(signer), !unlock); err != nil {
		return err
	}
	return writeJSON(cmd, map[string]interface{}{"pool": pool, "locked": !unlock})
}

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Show a pool with its live reserves",
		RunE:  runPool,
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("holder", "", "optional share holder to value")
	return cmd
}

func runPool(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pool, err := addressFlag(cmd, "pool")
	if err != nil {
		return err
	}
	holder, err := optionalAddressFlag(cmd, "holder")
	if err != nil {
		return err
	}

	view, err := a.engine.PoolView(cmd.Context(), pool, holder)
	if err != nil {
		return err
	}
	return writeJSON(cmd, view)
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return common.Address{}, fmt.Errorf("--%s is required", name)
	}
	addr, err := config.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

func optionalAddressFlag(cmd *cobra.Command, name string) (*common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	addr, err := config.ParseOptionalAddress(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

func overrideAddress(cmd *cobra.Command, name string, fallback common.Address) (common.Address, error) {
	addr, err := optionalAddressFlag(cmd, name)
	if err != nil {
		return common.Address{}, err
	}
	if addr == nil {
		return fallback, nil
	}
	return *addr, nil
}
