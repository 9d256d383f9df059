package initializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/valutatrade/infra"
	"github.com/amirasaad/valutatrade/infra/cache"
	"github.com/amirasaad/valutatrade/infra/provider/coingecko"
	"github.com/amirasaad/valutatrade/infra/provider/exchangerateapi"
	"github.com/amirasaad/valutatrade/infra/provider/static"
	infra_repository "github.com/amirasaad/valutatrade/infra/repository"
	"github.com/amirasaad/valutatrade/infra/repository/file"
	"github.com/amirasaad/valutatrade/infra/repository/memory"
	currencyfixtures "github.com/amirasaad/valutatrade/internal/fixtures/currency"
	"github.com/amirasaad/valutatrade/pkg/app"
	"github.com/amirasaad/valutatrade/pkg/config"
	"github.com/amirasaad/valutatrade/pkg/metrics"
	"github.com/amirasaad/valutatrade/pkg/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

// InitializeDependencies initializes all the application dependencies.
// On failure every handle opened so far is closed.
func InitializeDependencies(cfg *config.App) (*app.Deps, error) {
	deps := &app.Deps{}
	if err := initialize(cfg, deps); err != nil {
		if cerr := closeAll(deps.Closers); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}
	return deps, nil
}

func initialize(cfg *config.App, deps *app.Deps) error {
	var err error
	logger, closeLog := setupLogger(cfg.Log)
	deps.Logger = logger
	deps.Closers = append(deps.Closers, closeLog)

	logger.Info("Loading embedded currency metadata")
	deps.CurrencyRegistry, err = currencyfixtures.NewRegistry("")
	if err != nil {
		return fmt.Errorf("failed to initialize currency registry: %w", err)
	}
	logger.Info("Currency registry ready", "currencies", len(deps.CurrencyRegistry.Codes()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Metrics = metrics.New(reg)
	deps.Gatherer = reg

	if err = initStorage(cfg, deps); err != nil {
		return err
	}

	deps.Providers, err = buildProviders(cfg, logger)
	if err != nil {
		return err
	}
	return nil
}

// closeAll runs closers in reverse order of registration.
func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	return errors.Join(errs...)
}

func initStorage(cfg *config.App, deps *app.Deps) error {
	logger := deps.Logger
	storage := cfg.Storage
	if storage == nil {
		storage = &config.Storage{Driver: "memory"}
	}

	switch storage.Driver {
	case "memory":
		deps.RateStore = memory.NewRateStore()
		deps.Portfolios = memory.NewPortfolioRepository()
		deps.Users = memory.NewUserRepository()
	case "file", "":
		deps.RateStore = file.NewRateStore(storage.DataDir)
		deps.Portfolios = file.NewPortfolioRepository(storage.DataDir)
		deps.Users = file.NewUserRepository(storage.DataDir)
	case "postgres":
		db, err := infra.NewDBConnection(context.Background(), cfg.DB, cfg.Env, logger)
		if err != nil {
			logger.Error("Failed to initialize database", "error", err)
			return err
		}
		if err := usePostgres(db, deps); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown storage driver %q", storage.Driver)
	}
	logger.Info("Storage initialized", "driver", storage.Driver, "data_dir", storage.DataDir)

	if storage.RateStore == "redis" {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.RateStore = cache.NewRedisRateStore(client, cfg.Redis.KeyPrefix, cfg.Redis.HistoryLimit, logger)
		deps.Closers = append(deps.Closers, client.Close)
		logger.Info("Rate snapshot kept in redis", "prefix", cfg.Redis.KeyPrefix)
	}
	return nil
}

// usePostgres migrates db and installs the gorm repositories. The
// connection is closed when the migration fails.
func usePostgres(db *gorm.DB, deps *app.Deps) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := infra_repository.Migrate(db); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	deps.Closers = append(deps.Closers, sqlDB.Close)
	deps.RateStore = infra_repository.NewRateStore(db)
	deps.Portfolios = infra_repository.NewPortfolioRepository(db)
	deps.Users = infra_repository.NewUserRepository(db)
	return nil
}

// buildProviders creates the providers named in RATES_PROVIDERS, in that
// order.
func buildProviders(cfg *config.App, logger *slog.Logger) ([]provider.RateProvider, error) {
	base := "USD"
	var names []string
	if cfg.Rates != nil {
		base = cfg.Rates.BaseCurrency
		names = cfg.Rates.Providers
	}
	providersCfg := cfg.Providers
	if providersCfg == nil {
		providersCfg = &config.ExchangeRateProviders{}
	}

	var out []provider.RateProvider
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
			continue
		case coingecko.Name:
			if providersCfg.CoinGecko == nil {
				return nil, fmt.Errorf("%s provider enabled without configuration", coingecko.Name)
			}
			p, err := coingecko.New(providersCfg.CoinGecko, base, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create %s provider: %w", coingecko.Name, err)
			}
			out = append(out, p)
		case exchangerateapi.Name:
			if providersCfg.ExchangeRateApi == nil {
				return nil, fmt.Errorf("%s provider enabled without configuration", exchangerateapi.Name)
			}
			out = append(out, exchangerateapi.New(providersCfg.ExchangeRateApi, base, logger))
		case static.Name:
			rates, err := static.Parse(cfg.Rates.StaticRates)
			if err != nil {
				return nil, fmt.Errorf("failed to create %s provider: %w", static.Name, err)
			}
			out = append(out, static.New(static.Name, rates))
		default:
			return nil, fmt.Errorf("unknown rate provider %q", name)
		}
	}
	logger.Info("Rate providers configured", "providers", names)
	return out, nil
}
