package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearvault/treasury-api/internal/clients/nearblocks"
	"github.com/nearvault/treasury-api/internal/nearrpc"
)

type fakeGateway struct {
	fn func(req nearrpc.Request) (*nearrpc.Response, error)
}

func (g fakeGateway) Send(_ context.Context, req nearrpc.Request, _ nearrpc.Options) (*nearrpc.Response, error) {
	return g.fn(req)
}

type fakeNearPrice float64

func (p fakeNearPrice) NearPrice(context.Context) (float64, error) {
	if p < 0 {
		return 0, fmt.Errorf("all sources down")
	}
	return float64(p), nil
}

type fakeDexPrice map[string]float64

func (p fakeDexPrice) TokenPriceUSD(_ context.Context, tokenID string) (float64, error) {
	price, ok := p[tokenID]
	if !ok {
		return 0, fmt.Errorf("no price for %s", tokenID)
	}
	return price, nil
}

type fakeInventory struct {
	inv nearblocks.Inventory
	err error
}

func (f fakeInventory) Inventory(context.Context, string) (nearblocks.Inventory, error) {
	return f.inv, f.err
}

func callBytes(raw []byte) *nearrpc.Response {
	bytes := make([]int, len(raw))
	for i := range raw {
		bytes[i] = int(raw[i])
	}
	result, _ := json.Marshal(map[string]any{"result": bytes})
	return &nearrpc.Response{JSONRPC: "2.0", Result: result}
}

func callString(s string) *nearrpc.Response {
	return callBytes([]byte(`"` + s + `"`))
}

func balanceGateway(native string, ft map[string]string) fakeGateway {
	return fakeGateway{fn: func(req nearrpc.Request) (*nearrpc.Response, error) {
		switch req.Params["request_type"] {
		case "view_account":
			result, _ := json.Marshal(map[string]any{"amount": native, "locked": "0"})
			return &nearrpc.Response{JSONRPC: "2.0", Result: result}, nil
		case "call_function":
			contract, _ := req.Params["account_id"].(string)
			balance, ok := ft[contract]
			if !ok {
				return nil, fmt.Errorf("unknown contract %s", contract)
			}
			return callString(balance), nil
		}
		return nil, fmt.Errorf("unexpected request")
	}}
}

func TestMetadataFromRegistry(t *testing.T) {
	svc := NewService(fakeGateway{fn: func(nearrpc.Request) (*nearrpc.Response, error) {
		return nil, fmt.Errorf("should not be called")
	}}, fakeInventory{}, fakeNearPrice(3), fakeDexPrice{}, zerolog.Nop())

	meta, err := svc.Metadata(context.Background(), "usdt.tether-token.near")
	require.NoError(t, err)
	assert.Equal(t, "USDt", meta.Symbol)
	assert.Equal(t, 6, meta.Decimals)
}

func TestMetadataFromChain(t *testing.T) {
	gateway := fakeGateway{fn: func(req nearrpc.Request) (*nearrpc.Response, error) {
		require.Equal(t, "ft_metadata", req.Params["method_name"])
		meta, _ := json.Marshal(map[string]any{
			"name": "Obscure Coin", "symbol": "OBS", "decimals": 8,
		})
		return callBytes(meta), nil
	}}
	svc := NewService(gateway, fakeInventory{}, fakeNearPrice(3), fakeDexPrice{}, zerolog.Nop())

	meta, err := svc.Metadata(context.Background(), "obscure.near")
	require.NoError(t, err)
	assert.Equal(t, "OBS", meta.Symbol)
	assert.Equal(t, 8, meta.Decimals)
	assert.Equal(t, "obscure.near", meta.ID)
}

func TestWhitelistTokensSortedByBalance(t *testing.T) {
	gateway := balanceGateway(
		"2000000000000000000000000", // 2 NEAR
		map[string]string{
			"usdt.tether-token.near": "50000000", // 50 USDt
			"wrap.near":              "0",
			"17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1": "0",
			"dac17f958d2ee523a2206206994597c13d831ec7.factory.bridge.near":     "0",
		},
	)
	svc := NewService(gateway, fakeInventory{}, fakeNearPrice(5), fakeDexPrice{
		"usdt.tether-token.near": 1.0001,
	}, zerolog.Nop())

	entries, err := svc.WhitelistTokens(context.Background(), "alice.near")
	require.NoError(t, err)
	require.Len(t, entries, 5)

	assert.Equal(t, "USDt", entries[0].Symbol)
	assert.Equal(t, "50.00", entries[0].Balance)
	assert.Equal(t, "1.0001", entries[0].Price)
	assert.Equal(t, "50.01", entries[0].Value)

	assert.Equal(t, "NEAR", entries[1].Symbol)
	assert.Equal(t, "2.00", entries[1].Balance)
	assert.Equal(t, "5.0000", entries[1].Price)
	assert.Equal(t, "10.00", entries[1].Value)

	for _, e := range entries[2:] {
		assert.Equal(t, "0.00", e.Balance)
	}
}

func TestWhitelistTokensPriceFailureZeroes(t *testing.T) {
	gateway := balanceGateway("1000000000000000000000000", map[string]string{
		"usdt.tether-token.near": "0",
		"wrap.near":              "0",
		"17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1": "0",
		"dac17f958d2ee523a2206206994597c13d831ec7.factory.bridge.near":     "0",
	})
	svc := NewService(gateway, fakeInventory{}, fakeNearPrice(-1), fakeDexPrice{}, zerolog.Nop())

	entries, err := svc.WhitelistTokens(context.Background(), "alice.near")
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, "0.0000", e.Price)
	}
}

func TestFTTokens(t *testing.T) {
	usdtPrice := "1.00"
	inv := fakeInventory{inv: nearblocks.Inventory{FTs: []nearblocks.InventoryToken{
		{
			Contract: "usdt.tether-token.near",
			Amount:   "75000000",
			FTMeta:   nearblocks.FTMeta{Name: "Tether USD", Symbol: "USDt", Decimals: 6, Price: &usdtPrice},
		},
		{
			Contract: "unpriced.near",
			Amount:   "1000000000000000000000000",
			FTMeta:   nearblocks.FTMeta{Name: "Unpriced", Symbol: "UNP", Decimals: 24},
		},
	}}}
	svc := NewService(fakeGateway{}, inv, fakeNearPrice(3), fakeDexPrice{}, zerolog.Nop())

	out, err := svc.FTTokens(context.Background(), "alice.near")
	require.NoError(t, err)
	require.Len(t, out.FTs, 2)
	assert.Equal(t, "USDt", out.FTs[0].Symbol, "priced holding sorts first")
	assert.Equal(t, "75.00", out.FTs[0].Amount)
	assert.InDelta(t, 75.0, out.FTs[0].Value, 1e-9)
	assert.InDelta(t, 75.0, out.TotalCumulativeAmt, 1e-9)
	assert.Zero(t, out.FTs[1].Value)
}

func TestFTTokensIndexerFailure(t *testing.T) {
	svc := NewService(fakeGateway{}, fakeInventory{err: fmt.Errorf("indexer down")}, fakeNearPrice(3), fakeDexPrice{}, zerolog.Nop())

	_, err := svc.FTTokens(context.Background(), "alice.near")
	assert.Error(t, err)
}
