package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/amm"
	"cpamm/internal/storage"
)

func newFundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Credit an account on a local ledger",
		RunE:  runFund,
	}
	cmd.Flags().String("asset", "", "asset address")
	cmd.Flags().String("account", "", "account to credit")
	cmd.Flags().Uint64("amount", 0, "amount in base units")
	return cmd
}

func runFund(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	funder, ok := a.store.(storage.Funder)
	if !ok {
		return fmt.Errorf("store does not support funding")
	}
	asset, err := addressFlag(cmd, "asset")
	if err != nil {
		return err
	}
	account, err := addressFlag(cmd, "account")
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")
	if amount == 0 {
		return fmt.Errorf("--amount must be positive")
	}

	if err := funder.Fund(cmd.Context(), asset, account, amount); err != nil {
		return fmt.Errorf("fund: %w", err)
	}
	a.logger.Info("account funded",
		zap.String("asset", asset.Hex()),
		zap.String("account", account.Hex()),
		zap.Uint64("amount", amount),
	)
	return writeJSON(cmd, map[string]interface{}{"asset": asset, "account": account, "amount": amount})
}

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Add liquidity to a pool",
		RunE:  runDeposit,
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("depositor", "", "depositing account")
	cmd.Flags().Uint64("max-x", 0, "maximum amount of X to deposit")
	cmd.Flags().Uint64("max-y", 0, "maximum amount of Y to deposit")
	cmd.Flags().Bool("dry-run", false, "size the deposit without moving funds")
	return cmd
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pool, err := addressFlag(cmd, "pool")
	if err != nil {
		return err
	}
	depositor, err := addressFlag(cmd, "depositor")
	if err != nil {
		return err
	}
	maxX, _ := cmd.Flags().GetUint64("max-x")
	maxY, _ := cmd.Flags().GetUint64("max-y")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	params := amm.DepositParams{Pool: pool, Depositor: depositor, MaxX: maxX, MaxY: maxY}
	if dryRun {
		quote, err := a.engine.QuoteDeposit(cmd.Context(), params)
		if err != nil {
			return err
		}
		return writeJSON(cmd, quote)
	}

	res, err := a.engine.Deposit(cmd.Context(), params)
	if err != nil {
		return err
	}
	return writeJSON(cmd, res)
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap one pool asset for the other",
		RunE:  runSwap,
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("trader", "", "trading account")
	cmd.Flags().String("input", "x", "input side (x or y)")
	cmd.Flags().Uint64("amount", 0, "input amount")
	cmd.Flags().Uint64("min-output", 0, "minimum acceptable output")
	cmd.Flags().Bool("dry-run", false, "compute the swap without moving funds")
	return cmd
}

func runSwap(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pool, err := addressFlag(cmd, "pool")
	if err != nil {
		return err
	}
	trader, err := addressFlag(cmd, "trader")
	if err != nil {
		return err
	}
	side, _ := cmd.Flags().GetString("input")
	inputIsX, err := parseSide(side)
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")
	minOutput, _ := cmd.Flags().GetUint64("min-output")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	params := amm.SwapParams{Pool: pool, Trader: trader, InputIsX: inputIsX, Amount: amount, MinOutput: minOutput}
	var res amm.SwapResult
	if dryRun {
		res, err = a.engine.QuoteSwap(cmd.Context(), params)
	} else {
		res, err = a.engine.Swap(cmd.Context(), params)
	}
	if err != nil {
		return err
	}
	return writeJSON(cmd, res)
}

func parseSide(side string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "x":
		return true, nil
	case "y":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --input %q, want x or y", side)
	}
}
