package swap

import (
	"fmt"
	"math/big"
	"strings"
)

// ToNonDivisibleNumber converts a human decimal amount ("1.5") into the
// token's smallest units ("1500000" at 6 decimals). String fixed-point math,
// not floats; yocto amounts do not survive float64.
func ToNonDivisibleNumber(amount string, decimals int) (string, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return "", fmt.Errorf("empty amount")
	}

	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return "", fmt.Errorf("invalid amount %q", amount)
	}
	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	combined := strings.TrimLeft(whole+frac, "0")
	if combined == "" {
		return "0", nil
	}
	return combined, nil
}

// FromNonDivisibleNumber converts smallest units back into a decimal string
// with five fractional digits, the precision swap estimates are shown at.
func FromNonDivisibleNumber(raw string, decimals int) string {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "0.00000"
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(amount, divisor).FloatString(5)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
