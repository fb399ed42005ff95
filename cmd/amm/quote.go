package main

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/amm"
	"cpamm/internal/chain"
)

type pairQuote struct {
	Pair       string          `json:"pair"`
	Block      uint64          `json:"block"`
	TokenIn    string          `json:"token_in"`
	TokenOut   string          `json:"token_out"`
	ReserveIn  uint64          `json:"reserve_in"`
	ReserveOut uint64          `json:"reserve_out"`
	AmountIn   uint64          `json:"amount_in"`
	TaxedInput uint64          `json:"taxed_input"`
	AmountOut  uint64          `json:"amount_out"`
	Display    *displayAmounts `json:"display,omitempty"`
}

type displayAmounts struct {
	In  string `json:"in"`
	Out string `json:"out"`
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against a live Uniswap-V2 style pair",
		RunE:  runQuote,
	}
	cmd.Flags().String("pair", "", "pair contract address")
	cmd.Flags().String("token-in", "", "input token (token0 or token1 of the pair)")
	cmd.Flags().Uint64("amount", 0, "input amount in base units")
	cmd.Flags().Uint16("fee-bps", 30, "fee in basis points")
	cmd.Flags().Bool("display", false, "also render amounts with token decimals")
	return cmd
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	pair, err := addressFlag(cmd, "pair")
	if err != nil {
		return err
	}
	tokenIn, err := addressFlag(cmd, "token-in")
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")
	if amount == 0 {
		return amm.ErrInvalidSwapAmount
	}
	feeBps, _ := cmd.Flags().GetUint16("fee-bps")
	display, _ := cmd.Flags().GetBool("display")

	ctx := cmd.Context()
	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	reserves, err := client.PairReserves(ctx, pair)
	if err != nil {
		return fmt.Errorf("read pair: %w", err)
	}
	reserveIn, reserveOut, err := reserves.Oriented(tokenIn)
	if err != nil {
		return err
	}
	tokenOut := reserves.Token1
	if tokenIn == reserves.Token1 {
		tokenOut = reserves.Token0
	}

	taxed, err := amm.TaxedInput(amount, feeBps)
	if err != nil {
		return err
	}
	out := amm.SwapOutput(taxed, reserveIn, reserveOut)

	logger.Debug("pair quote",
		zap.String("pair", pair.Hex()),
		zap.Uint64("block", reserves.Block),
		zap.Uint64("reserve_in", reserveIn),
		zap.Uint64("reserve_out", reserveOut),
		zap.Uint64("amount_out", out),
	)

	result := pairQuote{
		Pair:       pair.Hex(),
		Block:      reserves.Block,
		TokenIn:    tokenIn.Hex(),
		TokenOut:   tokenOut.Hex(),
		ReserveIn:  reserveIn,
		ReserveOut: reserveOut,
		AmountIn:   amount,
		TaxedInput: taxed,
		AmountOut:  out,
	}

	if display {
		metaIn, err := client.TokenMeta(ctx, tokenIn)
		if err != nil {
			return fmt.Errorf("token-in metadata: %w", err)
		}
		metaOut, err := client.TokenMeta(ctx, tokenOut)
		if err != nil {
			return fmt.Errorf("token-out metadata: %w", err)
		}
		result.Display = &displayAmounts{
			In:  formatUnits(amount, metaIn),
			Out: formatUnits(out, metaOut),
		}
	}

	return writeJSON(cmd, result)
}

func formatUnits(amount uint64, meta chain.TokenMeta) string {
	value := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(meta.Decimals))
	if meta.Symbol == "" {
		return value.String()
	}
	return value.String() + " " + meta.Symbol
}
