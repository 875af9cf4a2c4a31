// Package nearblocks provides a client for the NEARBlocks indexer API.
// NEARBlocks exposes indexed chain data the RPC nodes cannot answer directly,
// like an account's full token inventory and its staking transactions.
package nearblocks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearvault/treasury-api/internal/cache"
)

const (
	defaultBaseURL = "https://api.nearblocks.io"
	// Rate limits: 6 requests/minute without API key, 150 with the free key
	inventoryTTL = 2 * time.Minute
)

// FTMeta is the token metadata NEARBlocks attaches to inventory entries.
type FTMeta struct {
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Decimals int     `json:"decimals"`
	Icon     string  `json:"icon"`
	Price    *string `json:"price"` // USD, null for unpriced tokens
}

// InventoryToken is one fungible token holding.
type InventoryToken struct {
	Contract string `json:"contract"`
	Amount   string `json:"amount"`
	FTMeta   FTMeta `json:"ft_meta"`
}

// Inventory is an account's indexed token holdings.
type Inventory struct {
	FTs []InventoryToken `json:"fts"`
}

// StakeTxn is a staking action against a validator pool.
type StakeTxn struct {
	ReceiverID  string
	BlockHeight uint64
}

// Client is the NEARBlocks API client.
type Client struct {
	baseURL    string
	apiKey     string // Optional - raises the rate limit
	httpClient *http.Client
	log        zerolog.Logger
	inventory  *cache.TTL[Inventory]
}

// NewClient creates a new NEARBlocks client.
// apiKey is optional but strongly recommended; the anonymous rate limit is
// too low for interactive use.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:       log.With().Str("component", "nearblocks").Logger(),
		inventory: cache.NewTTL[Inventory](256, inventoryTTL),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Inventory returns the account's fungible token holdings.
func (c *Client) Inventory(ctx context.Context, accountID string) (Inventory, error) {
	if cached, ok := c.inventory.Get(accountID); ok {
		c.log.Debug().Str("account", accountID).Msg("Inventory cache hit")
		return cached, nil
	}

	var out struct {
		Inventory Inventory `json:"inventory"`
	}
	path := fmt.Sprintf("/v1/account/%s/inventory", url.PathEscape(accountID))
	if err := c.doGet(ctx, path, &out); err != nil {
		return Inventory{}, err
	}

	c.inventory.Set(accountID, out.Inventory)
	return out.Inventory, nil
}

// StakeTransactions returns the account's staking actions, the source for
// discovering which validator pools it has ever delegated to.
func (c *Client) StakeTransactions(ctx context.Context, accountID string) ([]StakeTxn, error) {
	var out struct {
		Txns []struct {
			ReceiverAccountID string `json:"receiver_account_id"`
			Block             struct {
				BlockHeight uint64 `json:"block_height"`
			} `json:"block"`
		} `json:"txns"`
	}
	path := fmt.Sprintf("/v1/account/%s/stake-txns?per_page=100", url.PathEscape(accountID))
	if err := c.doGet(ctx, path, &out); err != nil {
		return nil, err
	}

	txns := make([]StakeTxn, 0, len(out.Txns))
	for _, t := range out.Txns {
		if t.ReceiverAccountID == "" {
			continue
		}
		txns = append(txns, StakeTxn{
			ReceiverID:  t.ReceiverAccountID,
			BlockHeight: t.Block.BlockHeight,
		})
	}
	return txns, nil
}

// doGet performs an authenticated GET and decodes the JSON response.
func (c *Client) doGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("NEARBlocks API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
