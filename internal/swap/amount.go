package swap

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human-readable token amount ("1.5") into base
// units for the given mint decimals, truncating toward zero.
func ToBaseUnits(amount string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative: %s", amount)
	}
	scaled := d.Shift(int32(decimals)).Truncate(0)
	if !scaled.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount overflows base units: %s", amount)
	}
	return scaled.BigInt().Uint64(), nil
}

// FromBaseUnits renders a base-unit amount as a decimal string.
func FromBaseUnits(amount uint64, decimals uint8) string {
	return decimal.NewFromUint64(amount).Shift(-int32(decimals)).String()
}
