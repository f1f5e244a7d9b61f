package pumpswap

import "math/big"

// computeOutput applies the constant-product formula with the LP fee
// taken from the input side:
//
//	out = y * a*f / (x + a*f)
//
// where x is the input-side reserve, y the output-side reserve, a the
// input amount and f = 1 - fee.
func computeOutput(reserves, otherReserves, amount uint64, feeFactor float64) uint64 {
	x := new(big.Float).SetUint64(reserves)
	y := new(big.Float).SetUint64(otherReserves)
	a := new(big.Float).SetUint64(amount)

	a.Mul(a, big.NewFloat(feeFactor))

	numerator := new(big.Float).Mul(y, a)
	denominator := new(big.Float).Add(x, a)
	result := new(big.Float).Quo(numerator, denominator)

	out, _ := result.Uint64()
	return out
}

// applySlippage scales an expected output down by slippageBps to get
// the minimum acceptable output.
func applySlippage(expected, slippageBps uint64) uint64 {
	if slippageBps >= 10_000 {
		return 0
	}
	product := new(big.Int).Mul(
		new(big.Int).SetUint64(expected),
		new(big.Int).SetUint64(10_000-slippageBps),
	)
	return new(big.Int).Div(product, big.NewInt(10_000)).Uint64()
}

// feeFactorFromBps converts a basis-point fee into the multiplier used
// by computeOutput.
func feeFactorFromBps(bps uint64) float64 {
	return 1.0 - float64(bps)/10_000.0
}
