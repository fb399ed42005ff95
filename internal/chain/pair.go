package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ErrReserveTooLarge = errors.New("reserve does not fit in 64 bits")

// PairReserves is a snapshot of a Uniswap-V2 style pair.
type PairReserves struct {
	Pair               common.Address
	Block              uint64
	Token0             common.Address
	Token1             common.Address
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint32
}

// Oriented returns (reserveIn, reserveOut) for an input token, narrowed to
// uint64.
func (p PairReserves) Oriented(tokenIn common.Address) (uint64, uint64, error) {
	var in, out *big.Int
	switch tokenIn {
	case p.Token0:
		in, out = p.Reserve0, p.Reserve1
	case p.Token1:
		in, out = p.Reserve1, p.Reserve0
	default:
		return 0, 0, fmt.Errorf("token %s not in pair %s", tokenIn.Hex(), p.Pair.Hex())
	}
	if !in.IsUint64() || !out.IsUint64() {
		return 0, 0, ErrReserveTooLarge
	}
	return in.Uint64(), out.Uint64(), nil
}

// PairReserves reads token0, token1 and getReserves from pair, all pinned to
// the same block.
func (c *Client) PairReserves(ctx context.Context, pair common.Address) (PairReserves, error) {
	parsed, err := PairABI()
	if err != nil {
		return PairReserves{}, fmt.Errorf("parse pair abi: %w", err)
	}

	number, err := c.LatestBlockNumber(ctx)
	if err != nil {
		return PairReserves{}, fmt.Errorf("block number: %w", err)
	}
	block := new(big.Int).SetUint64(number)

	values, err := c.callMethod(ctx, pair, parsed, "token0", block)
	if err != nil {
		return PairReserves{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return PairReserves{}, fmt.Errorf("token0: %w", err)
	}

	values, err = c.callMethod(ctx, pair, parsed, "token1", block)
	if err != nil {
		return PairReserves{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return PairReserves{}, fmt.Errorf("token1: %w", err)
	}

	values, err = c.callMethod(ctx, pair, parsed, "getReserves", block)
	if err != nil {
		return PairReserves{}, err
	}
	if len(values) < 3 {
		return PairReserves{}, fmt.Errorf("getReserves: expected 3 values, got %d", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return PairReserves{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return PairReserves{}, fmt.Errorf("reserve1: %w", err)
	}
	ts, _ := values[2].(uint32)

	return PairReserves{
		Pair:               pair,
		Block:              number,
		Token0:             token0,
		Token1:             token1,
		Reserve0:           reserve0,
		Reserve1:           reserve1,
		BlockTimestampLast: ts,
	}, nil
}

// TokenMeta is the display metadata of an ERC20 token.
type TokenMeta struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// TokenMeta loads decimals and symbol. A failing symbol call leaves it empty.
func (c *Client) TokenMeta(ctx context.Context, token common.Address) (TokenMeta, error) {
	meta := TokenMeta{Address: token}
	parsed, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := c.callMethod(ctx, token, parsed, "decimals", nil)
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("unsupported decimals type %T", values[0])
	}
	meta.Decimals = decimals

	if values, err := c.callMethod(ctx, token, parsed, "symbol", nil); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	}
	return meta, nil
}

func (c *Client) callMethod(ctx context.Context, to common.Address, parsed abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := c.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: no values", method)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
