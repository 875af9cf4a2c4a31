package pikespeak

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingAPIKey(t *testing.T) {
	client := NewClient("", zerolog.Nop())
	assert.False(t, client.Configured())

	_, err := client.NearTransfers(context.Background(), "dao.near", 20, 0)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = client.Balances(context.Background(), "dao.near")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNearTransfers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account/near-transfer/dao.near", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "40", r.URL.Query().Get("offset"))
		w.Write([]byte(`[
			{"timestamp":"1700000000000","amount":"1000000000000000000000000","sender":"alice.near","receiver":"dao.near","contract":"near","direction":"receive"}
		]`))
	}))
	defer srv.Close()

	client := NewClient("key", zerolog.Nop())
	client.SetBaseURL(srv.URL)

	rows, err := client.NearTransfers(context.Background(), "dao.near", 20, 40)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice.near", rows[0].Sender)
	assert.Equal(t, "receive", rows[0].Direction)
}

func TestFTTransfers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account/ft-transfer/dao.near", r.URL.Path)
		w.Write([]byte(`[{"timestamp":"1700000000500","amount":"50","contract":"usdt.tether-token.near","direction":"send"}]`))
	}))
	defer srv.Close()

	client := NewClient("key", zerolog.Nop())
	client.SetBaseURL(srv.URL)

	rows, err := client.FTTransfers(context.Background(), "dao.near", 20, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "usdt.tether-token.near", rows[0].Contract)
}

func TestBalances(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account/balance/dao.near", r.URL.Path)
		w.Write([]byte(`[{"contract":"Near","symbol":"NEAR","amount":12.5,"isParsed":true}]`))
	}))
	defer srv.Close()

	client := NewClient("key", zerolog.Nop())
	client.SetBaseURL(srv.URL)

	rows, err := client.Balances(context.Background(), "dao.near")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 12.5, rows[0].Amount)
	assert.True(t, rows[0].IsParsed)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient("bad", zerolog.Nop())
	client.SetBaseURL(srv.URL)

	_, err := client.NearTransfers(context.Background(), "dao.near", 20, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "status 403")
}
