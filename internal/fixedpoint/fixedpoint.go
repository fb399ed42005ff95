// Package fixedpoint implements the unsigned 64.64 fixed-point arithmetic used
// for reserve ratios and share sizing. Every operation is checked: overflow and
// division by zero are reported as errors instead of wrapping.
package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// FracBits is the number of fractional bits carried by U64F64.
const FracBits = 64

var (
	ErrOverflow     = errors.New("fixedpoint: overflow")
	ErrDivideByZero = errors.New("fixedpoint: divide by zero")
)

// rawLimit is the exclusive upper bound of a U64F64 raw value (2^128).
var rawLimit = new(uint256.Int).Lsh(uint256.NewInt(1), 2*FracBits)

// U64F64 is an unsigned fixed-point number with 64 integer and 64 fractional
// bits. The zero value is 0.
type U64F64 struct {
	raw uint256.Int
}

// Ratio returns floor(num / den) with 64 fractional bits.
func Ratio(num, den uint64) (U64F64, error) {
	if den == 0 {
		return U64F64{}, ErrDivideByZero
	}
	var r U64F64
	r.raw.Lsh(uint256.NewInt(num), FracBits)
	r.raw.Div(&r.raw, uint256.NewInt(den))
	if !r.raw.Lt(rawLimit) {
		return U64F64{}, ErrOverflow
	}
	return r, nil
}

// MulInt returns floor(v * r). The result is kept at 256 bits so callers can
// compare it against a bound before narrowing with ToUint64.
func (r U64F64) MulInt(v uint64) (*uint256.Int, error) {
	prod, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(v), &r.raw)
	if overflow {
		return nil, ErrOverflow
	}
	return prod.Rsh(prod, FracBits), nil
}

// DivInt returns floor(v / r).
func (r U64F64) DivInt(v uint64) (*uint256.Int, error) {
	if r.raw.IsZero() {
		return nil, ErrDivideByZero
	}
	num := new(uint256.Int).Lsh(uint256.NewInt(v), FracBits)
	return num.Div(num, &r.raw), nil
}

// Decimal renders r rounded to places fractional digits.
func (r U64F64) Decimal(places int32) decimal.Decimal {
	den := decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), FracBits), 0)
	return decimal.NewFromBigInt(r.raw.ToBig(), 0).DivRound(den, places)
}

// ToUint64 narrows v, failing if it does not fit.
func ToUint64(v *uint256.Int) (uint64, error) {
	if v == nil || !v.IsUint64() {
		return 0, ErrOverflow
	}
	return v.Uint64(), nil
}

// MulDiv returns floor(a * b / c) using a 256-bit intermediate.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrDivideByZero
	}
	prod := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return ToUint64(prod.Div(prod, uint256.NewInt(c)))
}

// SqrtProduct returns floor(sqrt(a * b)). The result always fits in 64 bits.
func SqrtProduct(a, b uint64) uint64 {
	prod := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return prod.Sqrt(prod).Uint64()
}
