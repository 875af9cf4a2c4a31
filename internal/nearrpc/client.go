// Package nearrpc implements the JSON-RPC gateway to NEAR node endpoints,
// with fixed-priority failover, per-endpoint rate-limit cooldowns, a durable
// response cache keyed by request content hash and a negative cache of
// account existence facts.
package nearrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultCooldownWindow = 10 * time.Second
)

// Store is the durable cache the gateway writes through. Implemented by
// rpccache.Repository; tests inject in-memory fakes.
type Store interface {
	StoreResponse(hash, endpoint string, requestBody, responseBody []byte) error
	LookupResponse(hash string) (json.RawMessage, error)
	RecordAbsent(accountID string, blockHeight uint64) error
	AccountAbsentAtOrBefore(accountID string, blockHeight uint64) (bool, error)
}

// Options select per-call gateway behavior.
type Options struct {
	// DisableCache skips the durable cache lookup (the response is still
	// stored on success).
	DisableCache bool

	// Archival selects the archival endpoint pool. Some chain data is only
	// retained by archival nodes.
	Archival bool
}

// Config holds gateway configuration.
type Config struct {
	Recent   []Endpoint
	Archival []Endpoint

	// FastnearAPIKey authorizes endpoints flagged RequiresKey.
	FastnearAPIKey string

	// CooldownWindow suspends an endpoint after an HTTP 429 response.
	CooldownWindow time.Duration

	HTTPClient *http.Client
	Store      Store
	Log        zerolog.Logger
}

// Client sends JSON-RPC requests across a pool of node endpoints.
type Client struct {
	recent   []Endpoint
	archival []Endpoint
	apiKey   string
	window   time.Duration

	http  *http.Client
	store Store
	log   zerolog.Logger

	// cooldowns maps endpoint URL to the time its suspension ends. Written
	// from fanned-out goroutines, hence the concurrent map.
	cooldowns *xsync.Map[string, time.Time]
}

// New creates a gateway client.
func New(cfg Config) *Client {
	if len(cfg.Recent) == 0 {
		cfg.Recent = DefaultRecentEndpoints()
	}
	if len(cfg.Archival) == 0 {
		cfg.Archival = DefaultArchivalEndpoints()
	}
	if cfg.CooldownWindow <= 0 {
		cfg.CooldownWindow = defaultCooldownWindow
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		recent:    cfg.Recent,
		archival:  cfg.Archival,
		apiKey:    cfg.FastnearAPIKey,
		window:    cfg.CooldownWindow,
		http:      cfg.HTTPClient,
		store:     cfg.Store,
		log:       cfg.Log.With().Str("component", "nearrpc").Logger(),
		cooldowns: xsync.NewMap[string, time.Time](),
	}
}

// Send issues the request against the selected endpoint pool.
//
// Before any network call it consults the existence oracle (account-state
// queries only) and the durable response cache. Endpoints are tried in fixed
// priority order; a response-level `error` field, a missing `result` and any
// transport failure all count as per-endpoint failures. The first endpoint
// that yields a valid result has its response persisted and returned. If the
// whole pool fails, the ErrAllEndpointsFailed sentinel is returned so callers
// can degrade instead of aborting.
func (c *Client) Send(ctx context.Context, req Request, opts Options) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rpc request: %w", err)
	}

	hash, err := CanonicalHash(body)
	if err != nil {
		return nil, err
	}

	accountID, blockHeight, isAccountQuery := req.accountStateQuery()
	if isAccountQuery {
		absent, err := c.store.AccountAbsentAtOrBefore(accountID, blockHeight)
		if err != nil {
			c.log.Warn().Err(err).Str("account", accountID).Msg("Existence oracle lookup failed")
		} else if absent {
			return nil, fmt.Errorf("%w: %s at height %d", ErrAccountNotFound, accountID, blockHeight)
		}
	}

	if !opts.DisableCache {
		cached, err := c.store.LookupResponse(hash)
		if err != nil {
			c.log.Warn().Err(err).Str("hash", hash).Msg("Cache lookup failed")
		} else if cached != nil {
			resp, err := parseResponse(cached)
			if err == nil {
				return resp, nil
			}
			c.log.Warn().Err(err).Str("hash", hash).Msg("Discarding malformed cache entry")
		}
	}

	pool := c.recent
	if opts.Archival {
		pool = c.archival
	}

	var lastErr error
	for _, ep := range pool {
		if c.coolingDown(ep.URL) {
			continue
		}

		resp, err := c.try(ctx, ep, body, accountID, blockHeight, isAccountQuery)
		if err != nil {
			if errorIsFatal(err) {
				return nil, err
			}
			lastErr = err
			c.log.Debug().Err(err).Str("endpoint", ep.URL).Msg("RPC endpoint failed")
			continue
		}

		if err := c.store.StoreResponse(hash, ep.URL, body, resp.raw); err != nil {
			c.log.Warn().Err(err).Str("endpoint", ep.URL).Msg("Failed to persist rpc response")
		}
		return resp, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllEndpointsFailed, lastErr)
	}
	return nil, ErrAllEndpointsFailed
}

// try issues the request against a single endpoint and classifies the outcome.
func (c *Client) try(ctx context.Context, ep Endpoint, body []byte, accountID string, blockHeight uint64, isAccountQuery bool) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if ep.RequiresKey {
		if c.apiKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, ep.URL)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		c.cooldowns.Store(ep.URL, time.Now().Add(c.window))
		c.log.Warn().Str("endpoint", ep.URL).Msg("Rate limited, cooling endpoint down")
		return nil, fmt.Errorf("http 429 from %s", ep.URL)
	}

	// The node reports protocol errors inside the envelope; some proxies
	// also surface them with a non-2xx status. Classify from the body when
	// it parses, regardless of status.
	resp, parseErr := parseResponse(respBody)
	if parseErr != nil {
		if httpResp.StatusCode >= 300 {
			return nil, fmt.Errorf("http %d from %s", httpResp.StatusCode, ep.URL)
		}
		return nil, parseErr
	}

	if resp.Error != nil {
		if resp.Error.Cause.Name == "UNKNOWN_ACCOUNT" && isAccountQuery {
			if err := c.store.RecordAbsent(accountID, blockHeight); err != nil {
				c.log.Warn().Err(err).Str("account", accountID).Msg("Failed to record account absence")
			}
		}
		return nil, fmt.Errorf("rpc error %s: %s", resp.Error.Cause.Name, resp.Error.Name)
	}

	if httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d from %s", httpResp.StatusCode, ep.URL)
	}

	if resp.Result == nil {
		return nil, fmt.Errorf("invalid response from %s: missing result", ep.URL)
	}

	return resp, nil
}

func (c *Client) coolingDown(url string) bool {
	until, ok := c.cooldowns.Load(url)
	if !ok {
		return false
	}
	if time.Now().After(until) {
		c.cooldowns.Delete(url)
		return false
	}
	return true
}

// errorIsFatal reports configuration errors that must not be swallowed by
// the failover loop.
func errorIsFatal(err error) bool {
	return errors.Is(err, ErrMissingAPIKey)
}
