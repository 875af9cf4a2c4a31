package history

import (
	"math/big"
	"strconv"
)

// ConvertBalance converts a raw integer token amount to a decimal string
// with two fractional digits, scaling by the token's precision. Amounts are
// arbitrary-precision integers (yocto values exceed uint64), so the division
// is done in big.Rat space rather than floating point.
func ConvertBalance(raw string, decimals int) string {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "0.00"
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	value := new(big.Rat).SetFrac(amount, divisor)
	return value.FloatString(2)
}

// AddBalances sums two raw integer amount strings. Used to fold staked
// balance into liquid balance; string concatenation or float addition would
// corrupt yocto-scale values.
func AddBalances(a, b string) string {
	x, okX := new(big.Int).SetString(a, 10)
	if !okX {
		x = big.NewInt(0)
	}
	y, okY := new(big.Int).SetString(b, 10)
	if !okY {
		y = big.NewInt(0)
	}
	return new(big.Int).Add(x, y).String()
}

// parseBalanceFloat converts a formatted decimal string into a float64 for
// summary statistics only; response payloads always carry the exact string.
func parseBalanceFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
