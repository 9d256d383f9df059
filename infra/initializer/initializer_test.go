package initializer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/valutatrade/infra/repository/file"
	"github.com/amirasaad/valutatrade/infra/repository/memory"
	"github.com/amirasaad/valutatrade/pkg/app"
	"github.com/amirasaad/valutatrade/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testConfig(driver, dir string, providers ...string) *config.App {
	return &config.App{
		Log:     &config.Log{Format: "text"},
		Storage: &config.Storage{Driver: driver, DataDir: dir},
		Rates: &config.Rates{
			BaseCurrency: "USD",
			Providers:    providers,
			StaticRates:  "BTC_USD:50000,EUR_USD:1.1",
		},
		Providers: &config.ExchangeRateProviders{
			CoinGecko:       &config.CoinGecko{Coins: "BTC:bitcoin"},
			ExchangeRateApi: &config.ExchangeRateApi{Currencies: []string{"EUR"}},
		},
	}
}

func TestInitializeMemory(t *testing.T) {
	deps, err := InitializeDependencies(testConfig("memory", "", "static"))
	require.NoError(t, err)

	assert.IsType(t, &memory.RateStore{}, deps.RateStore)
	require.Len(t, deps.Providers, 1)
	assert.Equal(t, "static", deps.Providers[0].Name())
	assert.True(t, deps.CurrencyRegistry.IsSupported("BTC"))
	assert.NotNil(t, deps.Metrics)

	pairs, err := deps.Providers[0].Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
}

func TestInitializeFile(t *testing.T) {
	dir := t.TempDir()
	deps, err := InitializeDependencies(testConfig("file", dir, "coingecko", "exchangerate"))
	require.NoError(t, err)

	assert.IsType(t, &file.RateStore{}, deps.RateStore)
	require.Len(t, deps.Providers, 2)
	assert.Equal(t, "coingecko", deps.Providers[0].Name())
	assert.Equal(t, "exchangerate", deps.Providers[1].Name())
}

func TestInitializeRejectsUnknownSettings(t *testing.T) {
	_, err := InitializeDependencies(testConfig("memory", "", "bloomberg"))
	assert.ErrorContains(t, err, "unknown rate provider")

	_, err = InitializeDependencies(testConfig("sqlite", "", "static"))
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "actions.log")
	logger, closeLog := setupLogger(&config.Log{File: path, MaxSizeMB: 1, MaxBackups: 1})
	logger.Info("action", "action", "BUY", "result", "OK")
	require.NoError(t, closeLog())
	assert.FileExists(t, path)
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestUsePostgresClosesConnectionWhenMigrationFails(t *testing.T) {
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDb, DriverName: "postgres"}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	mock.ExpectClose()

	deps := &app.Deps{}
	err = usePostgres(db, deps)
	assert.ErrorContains(t, err, "failed to migrate database")
	assert.Empty(t, deps.Closers)
	assert.Nil(t, deps.RateStore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseAllRunsEveryCloserInReverse(t *testing.T) {
	var order []string
	closer := func(name string, err error) func() error {
		return func() error {
			order = append(order, name)
			return err
		}
	}
	boom := errors.New("boom")

	err := closeAll([]func() error{closer("log", nil), closer("db", boom), closer("redis", nil)})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"redis", "db", "log"}, order)
	assert.NoError(t, closeAll(nil))
}
