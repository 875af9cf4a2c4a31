// Package tokens serves token metadata and per-account holdings: the static
// allowlist priced and joined with live balances, and the full indexed
// inventory with cumulative USD value.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/nearvault/treasury-api/internal/clients/nearblocks"
	"github.com/nearvault/treasury-api/internal/modules/history"
	"github.com/nearvault/treasury-api/internal/nearrpc"
	registry "github.com/nearvault/treasury-api/internal/tokens"
)

// PriceSource resolves USD spot prices.
type PriceSource interface {
	NearPrice(ctx context.Context) (float64, error)
}

// DexPriceSource resolves listed token prices from the DEX indexer.
type DexPriceSource interface {
	TokenPriceUSD(ctx context.Context, tokenID string) (float64, error)
}

// InventorySource returns an account's indexed token holdings.
type InventorySource interface {
	Inventory(ctx context.Context, accountID string) (nearblocks.Inventory, error)
}

// WhitelistEntry is one allowlisted token joined with the account's balance
// and the current price.
type WhitelistEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Icon     string `json:"icon,omitempty"`
	Decimals int    `json:"decimals"`
	Balance  string `json:"balance"`
	Price    string `json:"price"`
	Value    string `json:"value"`

	parsedBalance float64
}

// FTHolding is one inventory entry with its USD value.
type FTHolding struct {
	Contract string  `json:"contract"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Icon     string  `json:"icon,omitempty"`
	Decimals int     `json:"decimals"`
	Amount   string  `json:"amount"`
	Price    string  `json:"price,omitempty"`
	Value    float64 `json:"value"`
}

// FTPortfolio is the inventory response: holdings plus their combined value.
type FTPortfolio struct {
	TotalCumulativeAmt float64     `json:"totalCumulativeAmt"`
	FTs                []FTHolding `json:"fts"`
}

// Service answers token metadata and holdings queries.
type Service struct {
	gateway   history.Gateway
	inventory InventorySource
	nearPrice PriceSource
	dexPrice  DexPriceSource
	log       zerolog.Logger
}

// NewService creates the tokens service.
func NewService(gateway history.Gateway, inventory InventorySource, nearPrice PriceSource, dexPrice DexPriceSource, log zerolog.Logger) *Service {
	return &Service{
		gateway:   gateway,
		inventory: inventory,
		nearPrice: nearPrice,
		dexPrice:  dexPrice,
		log:       log.With().Str("service", "tokens").Logger(),
	}
}

// Metadata resolves a token's display metadata: allowlist first, then a live
// ft_metadata call.
func (s *Service) Metadata(ctx context.Context, tokenID string) (registry.Token, error) {
	if t, ok := registry.Lookup(tokenID); ok {
		return t, nil
	}

	resp, err := s.gateway.Send(ctx, nearrpc.CallFunctionFinal(tokenID, "ft_metadata", map[string]any{}), nearrpc.Options{})
	if err != nil {
		return registry.Token{}, err
	}
	raw, err := resp.CallResult()
	if err != nil {
		return registry.Token{}, err
	}

	var meta struct {
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Icon     string `json:"icon"`
		Decimals int    `json:"decimals"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return registry.Token{}, errors.New("token metadata is not valid JSON")
	}
	return registry.Token{
		ID:       tokenID,
		Name:     meta.Name,
		Symbol:   meta.Symbol,
		Icon:     meta.Icon,
		Decimals: meta.Decimals,
	}, nil
}

// WhitelistTokens returns every allowlisted token with the account's current
// balance and price, sorted by held balance descending. A failing price or
// balance lookup zeroes that entry rather than failing the response.
func (s *Service) WhitelistTokens(ctx context.Context, accountID string) ([]WhitelistEntry, error) {
	entries := make([]WhitelistEntry, 0, len(registry.Registry))
	for _, t := range registry.Registry {
		raw := s.currentBalance(ctx, accountID, t.ID)
		balance := history.ConvertBalance(raw, t.Decimals)

		price := s.priceUSD(ctx, t.ID)
		parsed, _ := strconv.ParseFloat(balance, 64)

		entries = append(entries, WhitelistEntry{
			ID:            t.ID,
			Name:          t.Name,
			Symbol:        t.Symbol,
			Icon:          t.Icon,
			Decimals:      t.Decimals,
			Balance:       balance,
			Price:         strconv.FormatFloat(price, 'f', 4, 64),
			Value:         strconv.FormatFloat(parsed*price, 'f', 2, 64),
			parsedBalance: parsed,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].parsedBalance > entries[j].parsedBalance
	})
	return entries, nil
}

// FTTokens returns the account's indexed inventory with per-token and
// cumulative USD values, largest value first.
func (s *Service) FTTokens(ctx context.Context, accountID string) (FTPortfolio, error) {
	inv, err := s.inventory.Inventory(ctx, accountID)
	if err != nil {
		return FTPortfolio{}, err
	}

	out := FTPortfolio{FTs: make([]FTHolding, 0, len(inv.FTs))}
	for _, ft := range inv.FTs {
		amount := history.ConvertBalance(ft.Amount, ft.FTMeta.Decimals)
		holding := FTHolding{
			Contract: ft.Contract,
			Name:     ft.FTMeta.Name,
			Symbol:   ft.FTMeta.Symbol,
			Icon:     ft.FTMeta.Icon,
			Decimals: ft.FTMeta.Decimals,
			Amount:   amount,
		}
		if ft.FTMeta.Price != nil {
			holding.Price = *ft.FTMeta.Price
			price, err := strconv.ParseFloat(*ft.FTMeta.Price, 64)
			if err == nil {
				parsed, _ := strconv.ParseFloat(amount, 64)
				holding.Value = parsed * price
				out.TotalCumulativeAmt += holding.Value
			}
		}
		out.FTs = append(out.FTs, holding)
	}

	sort.SliceStable(out.FTs, func(i, j int) bool {
		return out.FTs[i].Value > out.FTs[j].Value
	})
	return out, nil
}

// currentBalance fetches the live raw balance of one token, "0" on failure.
func (s *Service) currentBalance(ctx context.Context, accountID, tokenID string) string {
	if tokenID == registry.NativeTokenID {
		resp, err := s.gateway.Send(ctx, nearrpc.ViewAccountFinal(accountID), nearrpc.Options{})
		if err != nil {
			return "0"
		}
		account, err := resp.Account()
		if err != nil {
			return "0"
		}
		return account.Amount
	}

	req := nearrpc.CallFunctionFinal(tokenID, "ft_balance_of", map[string]any{"account_id": accountID})
	resp, err := s.gateway.Send(ctx, req, nearrpc.Options{})
	if err != nil {
		return "0"
	}
	balance, err := resp.CallResultString()
	if err != nil {
		return "0"
	}
	return balance
}

func (s *Service) priceUSD(ctx context.Context, tokenID string) float64 {
	if tokenID == registry.NativeTokenID || tokenID == "wrap.near" {
		price, err := s.nearPrice.NearPrice(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("NEAR price unavailable")
			return 0
		}
		return price
	}

	price, err := s.dexPrice.TokenPriceUSD(ctx, tokenID)
	if err != nil {
		s.log.Debug().Err(err).Str("token", tokenID).Msg("DEX price unavailable")
		return 0
	}
	return price
}
