package nearrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu        sync.Mutex
	responses map[string][]json.RawMessage
	absences  map[string][]uint64
}

func newMemStore() *memStore {
	return &memStore{
		responses: make(map[string][]json.RawMessage),
		absences:  make(map[string][]uint64),
	}
}

func (s *memStore) StoreResponse(hash, endpoint string, req, resp []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[hash] = append(s.responses[hash], append(json.RawMessage(nil), resp...))
	return nil
}

func (s *memStore) LookupResponse(hash string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.responses[hash]
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[len(entries)-1], nil
}

func (s *memStore) RecordAbsent(accountID string, blockHeight uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.absences[accountID] = append(s.absences[accountID], blockHeight)
	return nil
}

func (s *memStore) AccountAbsentAtOrBefore(accountID string, blockHeight uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.absences[accountID] {
		if h >= blockHeight {
			return true, nil
		}
	}
	return false, nil
}

// countingServer returns an httptest server that counts hits and replies with
// the given handler.
func countingServer(t *testing.T, hits *int, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		handler(w, r)
	}))
}

func okHandler(result string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}
}

func newTestClient(store Store, endpoints ...Endpoint) *Client {
	return New(Config{
		Recent:   endpoints,
		Archival: endpoints,
		Store:    store,
		Log:      zerolog.Nop(),
	})
}

func TestSendReturnsFirstHealthyEndpoint(t *testing.T) {
	var aHits, bHits, cHits int
	a := countingServer(t, &aHits, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer a.Close()
	b := countingServer(t, &bHits, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"name":"HANDLER_ERROR","cause":{"name":"UNKNOWN_BLOCK"}}}`))
	})
	defer b.Close()
	c := countingServer(t, &cHits, okHandler(`{"header":{"height":42,"timestamp":1700000000000000000}}`))
	defer c.Close()

	client := newTestClient(newMemStore(), Endpoint{URL: a.URL}, Endpoint{URL: b.URL}, Endpoint{URL: c.URL})

	resp, err := client.Send(context.Background(), FinalBlock(), Options{})
	require.NoError(t, err)

	header, err := resp.Block()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), header.Height)

	// First two endpoints fail, third succeeds: exactly three network calls.
	assert.Equal(t, 1, aHits)
	assert.Equal(t, 1, bHits)
	assert.Equal(t, 1, cHits)
}

func TestSendAllEndpointsFailReturnsSentinel(t *testing.T) {
	var hits int
	srv := countingServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	client := newTestClient(newMemStore(), Endpoint{URL: srv.URL}, Endpoint{URL: srv.URL})

	resp, err := client.Send(context.Background(), FinalBlock(), Options{})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllEndpointsFailed)
}

func TestSendCachesResponses(t *testing.T) {
	var hits int
	srv := countingServer(t, &hits, okHandler(`{"header":{"height":7,"timestamp":1700000000000000000}}`))
	defer srv.Close()

	store := newMemStore()
	client := newTestClient(store, Endpoint{URL: srv.URL})

	_, err := client.Send(context.Background(), FinalBlock(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	// Second identical call is served from the durable cache.
	resp, err := client.Send(context.Background(), FinalBlock(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	header, err := resp.Block()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), header.Height)

	// DisableCache forces a fresh network call.
	_, err = client.Send(context.Background(), FinalBlock(), Options{DisableCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestSendCacheIsKeyOrderInsensitive(t *testing.T) {
	var hits int
	srv := countingServer(t, &hits, okHandler(`{"header":{"height":9,"timestamp":1700000000000000000}}`))
	defer srv.Close()

	client := newTestClient(newMemStore(), Endpoint{URL: srv.URL})

	first := Request{JSONRPC: "2.0", ID: 1, Method: "block", Params: map[string]any{"finality": "final"}}
	_, err := client.Send(context.Background(), first, Options{})
	require.NoError(t, err)

	// Content-equal request built in a different insertion order hits the
	// same cache entry.
	params := map[string]any{}
	params["finality"] = "final"
	second := Request{JSONRPC: "2.0", ID: 1, Method: "block", Params: params}
	_, err = client.Send(context.Background(), second, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, hits)
}

func TestSendRecordsUnknownAccount(t *testing.T) {
	var hits int
	srv := countingServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"name":"HANDLER_ERROR","cause":{"name":"UNKNOWN_ACCOUNT","info":{"block_height":500}},"data":"account alice.near does not exist"}}`))
	})
	defer srv.Close()

	store := newMemStore()
	client := newTestClient(store, Endpoint{URL: srv.URL})

	_, err := client.Send(context.Background(), ViewAccount("alice.near", 500), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllEndpointsFailed)
	assert.Equal(t, 1, hits)

	// The absence was recorded: queries at or below the height short-circuit
	// with zero network calls.
	_, err = client.Send(context.Background(), ViewAccount("alice.near", 400), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, 1, hits)

	_, err = client.Send(context.Background(), ViewAccount("alice.near", 500), Options{})
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, 1, hits)

	// A query above the recorded height is not short-circuited.
	_, err = client.Send(context.Background(), ViewAccount("alice.near", 600), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllEndpointsFailed)
	assert.Equal(t, 2, hits)
}

func TestSendRateLimitCooldown(t *testing.T) {
	var aHits, bHits int
	a := countingServer(t, &aHits, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer a.Close()
	b := countingServer(t, &bHits, okHandler(`{"header":{"height":1,"timestamp":1700000000000000000}}`))
	defer b.Close()

	client := New(Config{
		Recent:         []Endpoint{{URL: a.URL}, {URL: b.URL}},
		CooldownWindow: time.Minute,
		Store:          newMemStore(),
		Log:            zerolog.Nop(),
	})

	_, err := client.Send(context.Background(), FinalBlock(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, aHits)

	// The rate-limited endpoint is skipped while cooling down.
	_, err = client.Send(context.Background(), FinalBlock(), Options{DisableCache: true})
	require.NoError(t, err)
	assert.Equal(t, 1, aHits)
	assert.Equal(t, 2, bHits)
}

func TestSendMissingAPIKeyFailsLoudly(t *testing.T) {
	client := New(Config{
		Recent: []Endpoint{{URL: "https://keyed.example.com", RequiresKey: true}},
		Store:  newMemStore(),
		Log:    zerolog.Nop(),
	})

	_, err := client.Send(context.Background(), FinalBlock(), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
