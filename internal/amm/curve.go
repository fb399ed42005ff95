package amm

import (
	"github.com/holiman/uint256"

	"cpamm/internal/fixedpoint"
	"cpamm/internal/model"
)

// MinimumLiquidity is withheld from the first depositor and never redeemable.
const MinimumLiquidity = 100

// DepositQuote is the outcome of sizing a deposit against a reserve snapshot.
type DepositQuote struct {
	AmountX   uint64 `json:"amount_x"`
	AmountY   uint64 `json:"amount_y"`
	Shares    uint64 `json:"shares"` // issued to the depositor
	Locked    uint64 `json:"locked"` // withheld on bootstrap
	Bootstrap bool   `json:"bootstrap"`
}

func ClampToBalance(want, balance uint64) uint64 {
	if want > balance {
		return balance
	}
	return want
}

// SizeDeposit decides how much of (x, y) the pool accepts and how many shares
// that is worth. x and y must already be clamped to the depositor's balances.
func SizeDeposit(x, y, reserveX, reserveY, supply uint64) (DepositQuote, error) {
	if x == 0 || y == 0 {
		return DepositQuote{}, ErrInvalidDepositAmount
	}

	if supply == 0 || (reserveX == 0 && reserveY == 0) {
		shares := fixedpoint.SqrtProduct(x, y)
		if shares < MinimumLiquidity {
			return DepositQuote{}, ErrDepositTooSmall
		}
		return DepositQuote{
			AmountX:   x,
			AmountY:   y,
			Shares:    shares - MinimumLiquidity,
			Locked:    MinimumLiquidity,
			Bootstrap: true,
		}, nil
	}
	if reserveX == 0 || reserveY == 0 {
		return DepositQuote{}, ErrZeroReserve
	}

	ratio, err := fixedpoint.Ratio(reserveX, reserveY)
	if err != nil {
		return DepositQuote{}, err
	}

	acceptX, acceptY := x, y
	deltaX, err := ratio.MulInt(y)
	if err != nil {
		return DepositQuote{}, err
	}
	if deltaX.Cmp(uint256.NewInt(x)) <= 0 {
		acceptX = deltaX.Uint64()
	} else {
		deltaY, err := ratio.DivInt(x)
		if err != nil {
			return DepositQuote{}, err
		}
		if deltaY.Cmp(uint256.NewInt(y)) < 0 {
			acceptY = deltaY.Uint64()
		}
	}
	if acceptX == 0 || acceptY == 0 {
		return DepositQuote{}, ErrInvalidDepositAmount
	}

	sharesX, err := fixedpoint.MulDiv(acceptX, supply, reserveX)
	if err != nil {
		return DepositQuote{}, err
	}
	sharesY, err := fixedpoint.MulDiv(acceptY, supply, reserveY)
	if err != nil {
		return DepositQuote{}, err
	}
	shares := min(sharesX, sharesY)
	if shares == 0 {
		return DepositQuote{}, ErrDepositTooSmall
	}

	return DepositQuote{AmountX: acceptX, AmountY: acceptY, Shares: shares}, nil
}

// TaxedInput returns input minus floor(input * feeBps / 10000).
func TaxedInput(input uint64, feeBps uint16) (uint64, error) {
	if feeBps >= model.FeeDenominator {
		return 0, ErrInvalidFee
	}
	fee, err := fixedpoint.MulDiv(input, uint64(feeBps), model.FeeDenominator)
	if err != nil {
		return 0, err
	}
	return input - fee, nil
}

// SwapOutput returns floor(taxed * reserveOut / (reserveIn + taxed)).
func SwapOutput(taxed, reserveIn, reserveOut uint64) uint64 {
	den := new(uint256.Int).Add(uint256.NewInt(reserveIn), uint256.NewInt(taxed))
	if den.IsZero() {
		return 0
	}
	num := new(uint256.Int).Mul(uint256.NewInt(taxed), uint256.NewInt(reserveOut))
	// Bounded by reserveOut.
	return num.Div(num, den).Uint64()
}

// RedeemableAmounts returns the reserves a share balance is worth.
func RedeemableAmounts(shares, supply, reserveX, reserveY uint64) (uint64, uint64, error) {
	if supply == 0 {
		return 0, 0, nil
	}
	if shares > supply {
		shares = supply
	}
	amountX, err := fixedpoint.MulDiv(shares, reserveX, supply)
	if err != nil {
		return 0, 0, err
	}
	amountY, err := fixedpoint.MulDiv(shares, reserveY, supply)
	if err != nil {
		return 0, 0, err
	}
	return amountX, amountY, nil
}
