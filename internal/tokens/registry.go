// Package tokens holds the static allowlist of tokens the service reports on.
package tokens

// Token describes an allowlisted token.
type Token struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Icon     string `json:"icon"`
	Decimals int    `json:"decimals"`
}

// NativeTokenID is the pseudo-id used for the chain's native balance.
const NativeTokenID = "near"

// NativeDecimals is NEAR's precision in yocto, also the fallback when a
// token's ft_metadata cannot be fetched.
const NativeDecimals = 24

// Registry is the fixed allowlist keyed by token id.
var Registry = map[string]Token{
	"near": {
		ID:       "near",
		Name:     "NEAR",
		Symbol:   "NEAR",
		Decimals: 24,
	},
	"wrap.near": {
		ID:       "wrap.near",
		Name:     "Wrapped NEAR",
		Symbol:   "wNEAR",
		Decimals: 24,
	},
	"usdt.tether-token.near": {
		ID:       "usdt.tether-token.near",
		Name:     "Tether USD",
		Symbol:   "USDt",
		Decimals: 6,
	},
	"17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1": {
		ID:       "17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1",
		Name:     "USD Coin",
		Symbol:   "USDC",
		Decimals: 6,
	},
	"dac17f958d2ee523a2206206994597c13d831ec7.factory.bridge.near": {
		ID:       "dac17f958d2ee523a2206206994597c13d831ec7.factory.bridge.near",
		Name:     "Tether USD (bridged)",
		Symbol:   "USDT.e",
		Decimals: 6,
	},
}

// Lookup returns the allowlisted token for an id.
func Lookup(id string) (Token, bool) {
	t, ok := Registry[id]
	return t, ok
}

// Decimals returns the registered precision for a token id, or ok=false when
// the token is not allowlisted and metadata must be fetched.
func Decimals(id string) (int, bool) {
	t, ok := Registry[id]
	if !ok {
		return 0, false
	}
	return t.Decimals, true
}
