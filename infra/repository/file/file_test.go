package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/domain/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewRateStore(dir)

	empty, err := s.ReadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	now := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)
	snap := rate.NewSnapshot(map[string]rate.Entry{
		"BTC_USD": {Pair: rate.NewPair("BTC", "USD"), Rate: 59337.21, ObservedAt: now, Source: "CoinGecko"},
		"EUR_USD": {Pair: rate.NewPair("EUR", "USD"), Rate: 1.0786, ObservedAt: now, Source: "ExchangeRate-API"},
	}, now)
	require.NoError(t, s.WriteSnapshot(ctx, snap))

	loaded, err := NewRateStore(dir).ReadSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	btc, ok := loaded.Get("BTC_USD")
	require.True(t, ok)
	assert.Equal(t, 59337.21, btc.Rate)
	assert.Equal(t, "CoinGecko", btc.Source)
	assert.True(t, btc.ObservedAt.Equal(now))
	require.NotNil(t, loaded.LastRefresh)
	assert.True(t, loaded.LastRefresh.Equal(now))

	raw, err := os.ReadFile(filepath.Join(dir, RatesFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"updated_at"`)
	assert.Contains(t, string(raw), `"last_refresh"`)

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, leftovers)
}

func TestRateStoreRejectsCorruptKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RatesFile),
		[]byte(`{"pairs":{"BTCUSD":{"rate":1}},"last_refresh":null}`), 0o600))

	_, err := NewRateStore(dir).ReadSnapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRateStoreHistoryAppends(t *testing.T) {
	ctx := context.Background()
	s := NewRateStore(t.TempDir())
	ts := time.Now().UTC()
	btc := rate.Entry{Pair: rate.NewPair("BTC", "USD"), Rate: 1, Source: "CoinGecko"}
	eth := rate.Entry{Pair: rate.NewPair("ETH", "USD"), Rate: 2, Source: "CoinGecko"}

	require.NoError(t, s.AppendHistory(ctx, []rate.HistoryRecord{rate.NewHistoryRecord(btc, ts, "CoinGeckoClient")}))
	require.NoError(t, s.AppendHistory(ctx, []rate.HistoryRecord{rate.NewHistoryRecord(eth, ts, "CoinGeckoClient")}))
	require.NoError(t, s.AppendHistory(ctx, nil))

	all, err := s.ReadHistory(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ETH", all[0].From)
	assert.Equal(t, "CoinGeckoClient", all[1].Meta.Client)

	btcOnly, err := s.ReadHistory(ctx, "BTC_USD", 10)
	require.NoError(t, err)
	assert.Len(t, btcOnly, 1)
}

func TestPortfolioRepository(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := NewPortfolioRepository(dir)
	alice, bob := uuid.New(), uuid.New()

	p, err := r.Read(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, p.Wallets())

	require.NoError(t, p.EnsureWallet("USD").Deposit(1000))
	require.NoError(t, p.EnsureWallet("BTC").Deposit(0.01))
	require.NoError(t, r.Write(ctx, p))

	q, _ := r.Read(ctx, bob)
	require.NoError(t, q.EnsureWallet("EUR").Deposit(5))
	require.NoError(t, r.Write(ctx, q))

	require.NoError(t, p.EnsureWallet("USD").Withdraw(500))
	require.NoError(t, r.Write(ctx, p))

	loaded, err := NewPortfolioRepository(dir).Read(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"USD": 500, "BTC": 0.01}, loaded.Balances())

	other, _ := r.Read(ctx, bob)
	assert.Equal(t, map[string]float64{"EUR": 5}, other.Balances())
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := NewUserRepository(dir)

	u, err := user.NewUser("alice", "1234")
	require.NoError(t, err)
	require.NoError(t, r.Create(ctx, u))
	assert.ErrorIs(t, r.Create(ctx, u), domain.ErrAlreadyExists)

	got, err := NewUserRepository(dir).GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.VerifyPassword("1234"))

	byID, err := r.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = r.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
