package sources

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// TargetDecimals is the fixed-point scale every reading is normalized to.
const TargetDecimals = 18

var ten = big.NewInt(10)

// NormalizeRaw converts a raw integer feed value carrying nativeDecimals into
// a price at TargetDecimals fixed-point scale. When the feed reports fewer
// decimals than the target, the scale factor is inverted (multiply instead of
// divide) so small values are not truncated to zero.
func NormalizeRaw(raw *big.Int, nativeDecimals uint8) (decimal.Decimal, error) {
	if raw == nil || raw.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: non-positive raw value", ErrInvalidValue)
	}

	scaled := new(big.Int)
	if nativeDecimals >= TargetDecimals {
		factor := new(big.Int).Exp(ten, big.NewInt(int64(nativeDecimals-TargetDecimals)), nil)
		scaled.Quo(raw, factor)
	} else {
		factor := new(big.Int).Exp(ten, big.NewInt(int64(TargetDecimals-nativeDecimals)), nil)
		scaled.Mul(raw, factor)
	}

	if scaled.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: value truncated to zero", ErrInvalidValue)
	}

	return decimal.NewFromBigInt(scaled, -TargetDecimals), nil
}
