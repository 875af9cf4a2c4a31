package priceoracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearPriceFirstSource(t *testing.T) {
	calls := 0
	coingecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		w.Write([]byte(`{"near":{"usd":5.25}}`))
	}))
	defer coingecko.Close()

	client := NewClient(zerolog.Nop())
	client.SetBaseURLs(coingecko.URL, "http://127.0.0.1:0", "http://127.0.0.1:0")

	price, err := client.NearPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.25, price)

	// Served from cache within the TTL.
	_, err = client.NearPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestNearPriceFailover(t *testing.T) {
	coingecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer coingecko.Close()

	binance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "NEARUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"NEARUSDT","price":"5.30"}`))
	}))
	defer binance.Close()

	client := NewClient(zerolog.Nop())
	client.SetBaseURLs(coingecko.URL, binance.URL, "http://127.0.0.1:0")

	price, err := client.NearPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.30, price)
}

func TestNearPriceSkipsNonPositive(t *testing.T) {
	coingecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Missing key decodes to zero, which must not be served.
		w.Write([]byte(`{}`))
	}))
	defer coingecko.Close()

	cryptocompare := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/price", r.URL.Path)
		w.Write([]byte(`{"USD":5.40}`))
	}))
	defer cryptocompare.Close()

	client := NewClient(zerolog.Nop())
	client.SetBaseURLs(coingecko.URL, "http://127.0.0.1:0", cryptocompare.URL)

	price, err := client.NearPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.40, price)
}

func TestNearPriceAllSourcesDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	client := NewClient(zerolog.Nop())
	client.SetBaseURLs(down.URL, down.URL, down.URL)

	_, err := client.NearPrice(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all price sources failed")
}
