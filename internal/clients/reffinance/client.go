// Package reffinance provides a client for the Ref Finance DEX APIs: spot
// token prices from the indexer and swap route planning from the smart
// router.
package reffinance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearvault/treasury-api/internal/cache"
)

const (
	defaultIndexerURL = "https://indexer.ref.finance"
	defaultRouterURL  = "https://smartrouter.ref.finance"

	priceTTL = 1 * time.Minute
)

// TokenPrice is a spot price entry from the indexer.
type TokenPrice struct {
	Price   string `json:"price"`
	Symbol  string `json:"symbol"`
	Decimal int    `json:"decimal"`
}

// Route is one leg plan from the smart router. The payload is forwarded to
// callers nearly verbatim; only the fields the service inspects are typed.
type Route struct {
	AmountIn  string          `json:"amount_in"`
	AmountOut string          `json:"amount_out"`
	Pools     json.RawMessage `json:"pools"`
}

// SwapPath is the smart router's answer for a token pair and amount.
type SwapPath struct {
	AmountIn  string  `json:"amount_in"`
	AmountOut string  `json:"amount_out"`
	Routes    []Route `json:"routes"`
}

// Client is the Ref Finance API client.
type Client struct {
	indexerURL string
	routerURL  string
	httpClient *http.Client
	log        zerolog.Logger
	prices     *cache.TTL[TokenPrice]
}

// NewClient creates a new Ref Finance client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		indexerURL: defaultIndexerURL,
		routerURL:  defaultRouterURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:    log.With().Str("component", "reffinance").Logger(),
		prices: cache.NewTTL[TokenPrice](1024, priceTTL),
	}
}

// SetBaseURLs overrides both API endpoints. Used by tests.
func (c *Client) SetBaseURLs(indexer, router string) {
	c.indexerURL = indexer
	c.routerURL = router
}

// TokenPrice returns the indexer's USD spot price for a token contract.
func (c *Client) TokenPrice(ctx context.Context, tokenID string) (TokenPrice, error) {
	if cached, ok := c.prices.Get(tokenID); ok {
		return cached, nil
	}

	var out TokenPrice
	u := fmt.Sprintf("%s/get-token-price?token_id=%s", c.indexerURL, url.QueryEscape(tokenID))
	if err := c.doGet(ctx, u, &out); err != nil {
		return TokenPrice{}, err
	}
	if out.Price == "" || out.Price == "N/A" {
		return TokenPrice{}, fmt.Errorf("no price listed for %s", tokenID)
	}

	c.prices.Set(tokenID, out)
	return out, nil
}

// TokenPriceUSD returns the indexer's price as a float.
func (c *Client) TokenPriceUSD(ctx context.Context, tokenID string) (float64, error) {
	p, err := c.TokenPrice(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(p.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q for %s", p.Price, tokenID)
	}
	return price, nil
}

// ListTokenPrices returns all listed spot prices keyed by token contract.
func (c *Client) ListTokenPrices(ctx context.Context) (map[string]TokenPrice, error) {
	var out map[string]TokenPrice
	if err := c.doGet(ctx, c.indexerURL+"/list-token-price", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindPath asks the smart router for the best swap route. amountIn is in the
// input token's non-divisible units, slippage a fraction like 0.005.
func (c *Client) FindPath(ctx context.Context, tokenIn, tokenOut, amountIn string, slippage float64) (SwapPath, error) {
	q := url.Values{}
	q.Set("tokenIn", tokenIn)
	q.Set("tokenOut", tokenOut)
	q.Set("amountIn", amountIn)
	q.Set("pathDeep", "3")
	q.Set("slippage", fmt.Sprintf("%g", slippage))

	var out struct {
		ResultData SwapPath `json:"result_data"`
	}
	u := c.routerURL + "/findPath?" + q.Encode()
	if err := c.doGet(ctx, u, &out); err != nil {
		return SwapPath{}, err
	}
	if len(out.ResultData.Routes) == 0 {
		return SwapPath{}, fmt.Errorf("no route from %s to %s", tokenIn, tokenOut)
	}
	return out.ResultData, nil
}

func (c *Client) doGet(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Ref Finance API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
