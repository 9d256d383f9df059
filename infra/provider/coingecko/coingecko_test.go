package coingecko

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/valutatrade/pkg/config"
	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url, key string) *Client {
	t.Helper()
	c, err := New(&config.CoinGecko{
		ApiKey:      key,
		ApiUrl:      url,
		HTTPTimeout: time.Second,
		Coins:       "BTC:bitcoin,ETH:ethereum,SOL:solana",
	}, "USD", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum,solana", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":59337.21},"ethereum":{"usd":3720.0},"solana":{"usd":0}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "demo-key")
	fixed := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)
	c.nowFunc = func() time.Time { return fixed }

	pairs, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	btc := pairs["BTC_USD"]
	assert.Equal(t, 59337.21, btc.Rate)
	assert.Equal(t, "CoinGecko", btc.Source)
	assert.Equal(t, fixed, btc.ObservedAt)
	assert.Equal(t, 3720.0, pairs["ETH_USD"].Rate)
	_, hasSol := pairs["SOL_USD"]
	assert.False(t, hasSol)
	assert.Equal(t, "coingecko", c.Name())
}

func TestFetchWithoutKeyOmitsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	}))
	defer srv.Close()

	pairs, err := newTestClient(t, srv.URL, "").Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`},
		{"invalid json", http.StatusOK, `{"bitcoin":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, "").Fetch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrProviderFailure)
		})
	}
}

func TestParseCoins(t *testing.T) {
	coins, err := ParseCoins(" btc:bitcoin , ETH:ethereum,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"BTC": "bitcoin", "ETH": "ethereum"}, coins)

	_, err = ParseCoins("BTC")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = ParseCoins("")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
