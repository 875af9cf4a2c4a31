package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertBalance(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals int
		want     string
	}{
		{"one NEAR", "1000000000000000000000000", 24, "1.00"},
		{"fractional", "1500000000000000000000000", 24, "1.50"},
		{"rounding", "1005000000000000000000000", 24, "1.01"},
		{"dust rounds to zero", "6", 24, "0.00"},
		{"zero", "0", 24, "0.00"},
		{"usdc six decimals", "12345678", 6, "12.35"},
		{"huge amount keeps precision", "123456789012345678901234567890", 24, "123456.79"},
		{"garbage", "not-a-number", 24, "0.00"},
		{"empty", "", 24, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertBalance(tt.raw, tt.decimals))
		})
	}
}

func TestAddBalances(t *testing.T) {
	assert.Equal(t, "3000000000000000000000000",
		AddBalances("1000000000000000000000000", "2000000000000000000000000"))
	assert.Equal(t, "5", AddBalances("5", "0"))
	assert.Equal(t, "7", AddBalances("bogus", "7"))
	assert.Equal(t, "0", AddBalances("", ""))
}
