package currency_test

import (
	"os"
	"path/filepath"
	"testing"

	fixtures "github.com/amirasaad/valutatrade/internal/fixtures/currency"
	"github.com/amirasaad/valutatrade/pkg/currency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	list, err := fixtures.LoadCurrencyMetaCSV("")
	require.NoError(t, err)
	require.Len(t, list, 7)

	r, err := fixtures.NewRegistry("")
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH", "EUR", "GBP", "RUB", "SOL", "USD"}, r.Codes())

	eth, err := r.Get("eth")
	require.NoError(t, err)
	assert.Equal(t, currency.KindCrypto, eth.Kind)
	assert.Equal(t, "Ethash", eth.Crypto.Algorithm)
	assert.InDelta(t, 4.5e11, eth.Crypto.MarketCap, 1)

	rub, err := r.Get("RUB")
	require.NoError(t, err)
	assert.Equal(t, "Russia", rub.Fiat.IssuingCountry)
}

func TestLoadCurrencyMetaCSVFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.csv")
	content := "code,name,kind,issuing_country,algorithm,market_cap\n" +
		"JPY,Japanese Yen,fiat,Japan,,\n" +
		"short\n" +
		"ADA,Cardano,crypto,,Ouroboros,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	list, err := fixtures.LoadCurrencyMetaCSV(path)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "JPY", list[0].Code)
	assert.Equal(t, 0.0, list[1].Crypto.MarketCap)
}

func TestLoadCurrencyMetaCSVErrors(t *testing.T) {
	_, err := fixtures.LoadCurrencyMetaCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("code,name\nUSD,Dollar\n"), 0o600))
	_, err = fixtures.LoadCurrencyMetaCSV(path)
	assert.ErrorContains(t, err, "invalid CSV format")

	require.NoError(t, os.WriteFile(path, []byte(
		"code,name,kind,issuing_country,algorithm,market_cap\nGLD,Gold,metal,,,\n"), 0o600))
	_, err = fixtures.LoadCurrencyMetaCSV(path)
	assert.Error(t, err)
}
