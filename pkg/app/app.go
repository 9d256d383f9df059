package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/amirasaad/valutatrade/pkg/config"
	"github.com/amirasaad/valutatrade/pkg/currency"
	"github.com/amirasaad/valutatrade/pkg/decorator"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/domain/user"
	"github.com/amirasaad/valutatrade/pkg/metrics"
	"github.com/amirasaad/valutatrade/pkg/provider"
	"github.com/amirasaad/valutatrade/pkg/repository"
	"github.com/amirasaad/valutatrade/pkg/scheduler"
	"github.com/amirasaad/valutatrade/pkg/service/auth"
	"github.com/amirasaad/valutatrade/pkg/service/rates"
	"github.com/amirasaad/valutatrade/pkg/service/trading"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps contains everything the services are built from.
type Deps struct {
	CurrencyRegistry *currency.Registry
	RateStore        repository.RateStore
	Portfolios       repository.PortfolioRepository
	Users            repository.UserRepository
	Providers        []provider.RateProvider
	Metrics          *metrics.Metrics
	// Gatherer serves the /metrics endpoint.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	// Closers release storage handles on shutdown.
	Closers []func() error
}

type App struct {
	Deps        *Deps
	Config      *config.App
	AuthService *auth.Service
	Aggregator  *rates.Aggregator
	RateService *rates.Service
	Engine      *trading.Engine
	Scheduler   *scheduler.Scheduler
	Actions     *decorator.ActionLogger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(deps *Deps, cfg *config.App) *App {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ratesCfg := cfg.Rates
	if ratesCfg == nil {
		ratesCfg = &config.Rates{}
	}
	verbose := cfg.Log != nil && cfg.Log.Verbose

	app := &App{Deps: deps, Config: cfg}
	app.ctx, app.cancel = context.WithCancel(context.Background())
	app.Aggregator = rates.NewAggregator(deps.Providers, deps.RateStore, logger, deps.Metrics)
	app.RateService = rates.NewService(
		deps.CurrencyRegistry, deps.RateStore, app.Aggregator, ratesCfg.TTL, logger, deps.Metrics,
	)
	app.Engine = trading.NewEngine(
		deps.CurrencyRegistry, app.RateService, deps.Portfolios, ratesCfg.BaseCurrency, logger, deps.Metrics,
	)
	app.AuthService = auth.New(deps.Users, deps.Portfolios, cfg.Jwt, logger)
	app.Scheduler = scheduler.New(app.Aggregator, ratesCfg.RefreshInterval, ratesCfg.SchedulerStopTimeout, logger)
	app.Actions = decorator.NewActionLogger(logger, deps.Metrics, verbose)
	return app
}

func (a *App) Register(ctx context.Context, username, password string) (*user.User, error) {
	return decorator.Action(ctx, a.Actions, "REGISTER", []any{"username", username},
		func(ctx context.Context) (*user.User, error) {
			return a.AuthService.Register(ctx, username, password)
		})
}

func (a *App) Login(ctx context.Context, username, password string) (*user.User, error) {
	return decorator.Action(ctx, a.Actions, "LOGIN", []any{"username", username},
		func(ctx context.Context) (*user.User, error) {
			return a.AuthService.Login(ctx, username, password)
		})
}

func (a *App) Currencies() []currency.Currency {
	return a.Deps.CurrencyRegistry.List()
}

func (a *App) LookupRate(ctx context.Context, from, to string) (rate.Quote, error) {
	return decorator.Action(ctx, a.Actions, "GET_RATE", []any{"from", from, "to", to},
		func(ctx context.Context) (rate.Quote, error) {
			return a.RateService.Lookup(ctx, from, to)
		})
}

func (a *App) Buy(ctx context.Context, userID uuid.UUID, code string, amount float64) (trading.TradeResult, error) {
	return decorator.Action(ctx, a.Actions, "BUY",
		[]any{"user_id", userID, "currency", code, "amount", amount, "base", a.Engine.Base()},
		func(ctx context.Context) (trading.TradeResult, error) {
			return a.Engine.Buy(ctx, userID, code, amount)
		})
}

func (a *App) Sell(ctx context.Context, userID uuid.UUID, code string, amount float64) (trading.TradeResult, error) {
	return decorator.Action(ctx, a.Actions, "SELL",
		[]any{"user_id", userID, "currency", code, "amount", amount, "base", a.Engine.Base()},
		func(ctx context.Context) (trading.TradeResult, error) {
			return a.Engine.Sell(ctx, userID, code, amount)
		})
}

func (a *App) ValuatePortfolio(ctx context.Context, userID uuid.UUID, base string) (trading.Valuation, error) {
	return decorator.Action(ctx, a.Actions, "SHOW_PORTFOLIO", []any{"user_id", userID, "base", base},
		func(ctx context.Context) (trading.Valuation, error) {
			return a.Engine.Valuate(ctx, userID, base)
		})
}

func (a *App) RefreshRates(ctx context.Context, source string) (rate.RefreshResult, error) {
	return decorator.Action(ctx, a.Actions, "UPDATE_RATES", []any{"source", source},
		func(ctx context.Context) (rate.RefreshResult, error) {
			return a.RateService.Refresh(ctx, source)
		})
}

func (a *App) ListCachedRates(ctx context.Context, code string, top int) (rates.Listing, error) {
	return decorator.Action(ctx, a.Actions, "SHOW_RATES", []any{"currency", code, "top", top},
		func(ctx context.Context) (rates.Listing, error) {
			return a.RateService.ListCached(ctx, code, top)
		})
}

// Context lives until Close and scopes background work started by handlers.
func (a *App) Context() context.Context {
	return a.ctx
}

func (a *App) StartScheduler(ctx context.Context) bool {
	return a.Scheduler.Start(ctx)
}

func (a *App) StopScheduler() error {
	return a.Scheduler.Stop()
}

// Close stops the scheduler and releases storage handles.
func (a *App) Close() error {
	errs := []error{a.Scheduler.Stop()}
	a.cancel()
	for _, c := range a.Deps.Closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
