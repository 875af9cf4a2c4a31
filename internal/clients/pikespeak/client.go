// Package pikespeak provides a client for the Pikespeak analytics API.
// Pikespeak serves parsed balance and transfer feeds that would otherwise
// require walking every block an account ever touched.
package pikespeak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.pikespeak.ai"

// ErrMissingAPIKey is returned when the client is used without credentials.
// Pikespeak has no anonymous tier, so failing loudly beats a confusing 403.
var ErrMissingAPIKey = errors.New("pikespeak api key is not configured")

// Balance is one holding from the account balance feed.
type Balance struct {
	Contract string  `json:"contract"`
	Symbol   string  `json:"symbol"`
	Amount   float64 `json:"amount"`
	IsParsed bool    `json:"isParsed"`
}

// Transfer is one row from the transfer feeds. Both the native and the
// fungible token feeds share this shape.
type Transfer struct {
	Timestamp string `json:"timestamp"`
	Amount    string `json:"amount"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Contract  string `json:"contract"`
	Direction string `json:"direction"`
}

// Client is the Pikespeak API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new Pikespeak client. The key may be empty; every call
// then returns ErrMissingAPIKey so the caller can degrade explicitly.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("component", "pikespeak").Logger(),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Balances returns the account's current holdings across all tokens.
func (c *Client) Balances(ctx context.Context, accountID string) ([]Balance, error) {
	var out []Balance
	path := fmt.Sprintf("/account/balance/%s", url.PathEscape(accountID))
	if err := c.doGet(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NearTransfers returns a page of native token transfers, newest first.
func (c *Client) NearTransfers(ctx context.Context, accountID string, limit, offset int) ([]Transfer, error) {
	path := fmt.Sprintf("/account/near-transfer/%s?limit=%d&offset=%d", url.PathEscape(accountID), limit, offset)
	return c.transfers(ctx, path)
}

// FTTransfers returns a page of fungible token transfers, newest first.
func (c *Client) FTTransfers(ctx context.Context, accountID string, limit, offset int) ([]Transfer, error) {
	path := fmt.Sprintf("/account/ft-transfer/%s?limit=%d&offset=%d", url.PathEscape(accountID), limit, offset)
	return c.transfers(ctx, path)
}

func (c *Client) transfers(ctx context.Context, path string) ([]Transfer, error) {
	var out []Transfer
	if err := c.doGet(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Pikespeak API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
