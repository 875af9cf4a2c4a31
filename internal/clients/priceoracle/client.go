// Package priceoracle resolves the NEAR/USD spot price by trying a chain of
// public price APIs in order. Any single source being down or rate limited
// must not take the price endpoint with it.
package priceoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearvault/treasury-api/internal/cache"
)

// priceTTL matches how long a quoted price stays acceptable for display.
const priceTTL = 50 * time.Second

const cacheKey = "near-usd"

// Source fetches the NEAR/USD price from one provider.
type Source struct {
	Name  string
	Fetch func(*Client, context.Context) (float64, error)
}

// Client is the failover price client.
type Client struct {
	httpClient *http.Client
	log        zerolog.Logger
	sources    []Source
	cached     *cache.TTL[float64]

	coingeckoURL     string
	binanceURL       string
	cryptocompareURL string
}

// NewClient creates a price client with the default source chain:
// CoinGecko, then Binance, then CryptoCompare.
func NewClient(log zerolog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log:    log.With().Str("component", "priceoracle").Logger(),
		cached: cache.NewTTL[float64](4, priceTTL),

		coingeckoURL:     "https://api.coingecko.com",
		binanceURL:       "https://api.binance.com",
		cryptocompareURL: "https://min-api.cryptocompare.com",
	}
	c.sources = []Source{
		{Name: "coingecko", Fetch: (*Client).fetchCoingecko},
		{Name: "binance", Fetch: (*Client).fetchBinance},
		{Name: "cryptocompare", Fetch: (*Client).fetchCryptocompare},
	}
	return c
}

// SetBaseURLs overrides the provider endpoints. Used by tests.
func (c *Client) SetBaseURLs(coingecko, binance, cryptocompare string) {
	c.coingeckoURL = coingecko
	c.binanceURL = binance
	c.cryptocompareURL = cryptocompare
}

// NearPrice returns the current NEAR/USD price, trying each source in order
// and serving a short-lived cached value between calls.
func (c *Client) NearPrice(ctx context.Context) (float64, error) {
	if price, ok := c.cached.Get(cacheKey); ok {
		return price, nil
	}

	var lastErr error
	for _, src := range c.sources {
		price, err := src.Fetch(c, ctx)
		if err != nil {
			c.log.Warn().Err(err).Str("source", src.Name).Msg("Price source failed")
			lastErr = err
			continue
		}
		if price <= 0 {
			lastErr = fmt.Errorf("%s returned non-positive price", src.Name)
			continue
		}
		c.cached.Set(cacheKey, price)
		return price, nil
	}
	return 0, fmt.Errorf("all price sources failed: %w", lastErr)
}

func (c *Client) fetchCoingecko(ctx context.Context) (float64, error) {
	var out map[string]map[string]float64
	u := c.coingeckoURL + "/api/v3/simple/price?ids=near&vs_currencies=usd"
	if err := c.doGet(ctx, u, &out); err != nil {
		return 0, err
	}
	return out["near"]["usd"], nil
}

func (c *Client) fetchBinance(ctx context.Context) (float64, error) {
	var out struct {
		Price string `json:"price"`
	}
	u := c.binanceURL + "/api/v3/ticker/price?symbol=NEARUSDT"
	if err := c.doGet(ctx, u, &out); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(out.Price, 64)
}

func (c *Client) fetchCryptocompare(ctx context.Context) (float64, error) {
	var out struct {
		USD float64 `json:"USD"`
	}
	u := c.cryptocompareURL + "/data/price?fsym=NEAR&tsyms=USD"
	if err := c.doGet(ctx, u, &out); err != nil {
		return 0, err
	}
	return out.USD, nil
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
		return fmt.Errorf("price API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
