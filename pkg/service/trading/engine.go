// Package trading implements buying, selling and valuing currency holdings
// against the base currency.
package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/amirasaad/valutatrade/pkg/currency"
	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/metrics"
	"github.com/amirasaad/valutatrade/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OperationBuy     = "buy"
	OperationSell    = "sell"
	OperationValuate = "valuate"
)

// RateLookup resolves a rate, refreshing on demand.
type RateLookup interface {
	Lookup(ctx context.Context, from, to string) (rate.Quote, error)
}

// TradeResult describes a completed buy or sell. For operations on the base
// currency itself Rate is 1 and Value equals Amount.
type TradeResult struct {
	Operation string
	Currency  string
	Amount    float64
	Base      string
	Rate      float64
	// Value is the cost of a buy or the proceeds of a sell, in Base.
	Value         float64
	Before        float64
	After         float64
	BaseBefore    float64
	BaseAfter     float64
	NothingToSell bool
}

// ValuationLine is one wallet of a valuation.
type ValuationLine struct {
	Currency      string
	Balance       float64
	Value         float64
	Rate          float64
	Unconvertible bool
}

// Valuation is a portfolio priced in Base. Total only covers convertible
// lines.
type Valuation struct {
	UserID uuid.UUID
	Base   string
	Lines  []ValuationLine
	Total  float64
}

// Engine executes trades. Each trade loads the portfolio, stages both legs
// on a copy and persists it only once both legs succeeded. Concurrent trades
// of the same user are not serialized; the last write wins.
type Engine struct {
	registry   *currency.Registry
	rates      RateLookup
	portfolios repository.PortfolioRepository
	base       string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewEngine(
	registry *currency.Registry,
	rates RateLookup,
	portfolios repository.PortfolioRepository,
	base string,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if base == "" {
		base = currency.DefaultCurrency
	}
	return &Engine{
		registry:   registry,
		rates:      rates,
		portfolios: portfolios,
		base:       currency.NormalizeCode(base),
		logger:     logger.With("service", "TradingEngine"),
		metrics:    m,
	}
}

func (e *Engine) Base() string { return e.base }

func (e *Engine) checkRequest(userID uuid.UUID, code string, amount float64) (string, error) {
	if userID == uuid.Nil {
		return "", domain.ErrPermissionDenied
	}
	code, err := e.registry.Normalize(code)
	if err != nil {
		return "", err
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "", fmt.Errorf("%w: got %v", domain.ErrInvalidAmount, amount)
	}
	return code, nil
}

func convert(amount, r float64) float64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(r)).InexactFloat64()
}

// Buy credits amount of code, paying with the base currency wallet. Buying
// the base currency is a plain deposit.
func (e *Engine) Buy(ctx context.Context, userID uuid.UUID, code string, amount float64) (res TradeResult, err error) {
	defer func() { e.metrics.ObserveTrade(OperationBuy, err) }()
	code, err = e.checkRequest(userID, code, amount)
	if err != nil {
		return TradeResult{}, err
	}
	log := e.logger.With("operation", OperationBuy, "user_id", userID, "currency", code, "amount", amount)

	current, err := e.portfolios.Read(ctx, userID)
	if err != nil {
		return TradeResult{}, fmt.Errorf("read portfolio: %w", err)
	}
	staged := current.Clone()
	res = TradeResult{Operation: OperationBuy, Currency: code, Amount: amount, Base: e.base, Rate: 1, Value: amount}

	target := staged.EnsureWallet(code)
	res.Before = target.Balance()

	if code != e.base {
		quote, lerr := e.rates.Lookup(ctx, code, e.base)
		if lerr != nil {
			return TradeResult{}, lerr
		}
		res.Rate = quote.Rate
		res.Value = convert(amount, quote.Rate)

		cash, ok := staged.Wallet(e.base)
		if !ok {
			return TradeResult{}, &domain.InsufficientFundsError{Available: 0, Required: res.Value, Code: e.base}
		}
		res.BaseBefore = cash.Balance()
		if err = cash.Withdraw(res.Value); err != nil {
			return TradeResult{}, err
		}
		res.BaseAfter = cash.Balance()
	}

	if err = target.Deposit(amount); err != nil {
		return TradeResult{}, err
	}
	res.After = target.Balance()
	if code == e.base {
		res.BaseBefore, res.BaseAfter = res.Before, res.After
	}

	if err = e.portfolios.Write(ctx, staged); err != nil {
		return TradeResult{}, fmt.Errorf("write portfolio: %w", err)
	}
	log.Info("Buy completed", "rate", res.Rate, "cost", res.Value)
	return res, nil
}

// Sell debits amount of code and credits the proceeds to the base currency
// wallet. Selling from a wallet that does not exist is not an error; the
// result has NothingToSell set.
func (e *Engine) Sell(ctx context.Context, userID uuid.UUID, code string, amount float64) (res TradeResult, err error) {
	defer func() { e.metrics.ObserveTrade(OperationSell, err) }()
	code, err = e.checkRequest(userID, code, amount)
	if err != nil {
		return TradeResult{}, err
	}
	log := e.logger.With("operation", OperationSell, "user_id", userID, "currency", code, "amount", amount)

	current, err := e.portfolios.Read(ctx, userID)
	if err != nil {
		return TradeResult{}, fmt.Errorf("read portfolio: %w", err)
	}
	staged := current.Clone()
	res = TradeResult{Operation: OperationSell, Currency: code, Amount: amount, Base: e.base, Rate: 1, Value: amount}

	source, ok := staged.Wallet(code)
	if !ok {
		log.Info("No wallet to sell from")
		res.NothingToSell = true
		return res, nil
	}
	res.Before = source.Balance()
	if err = source.Withdraw(amount); err != nil {
		return TradeResult{}, err
	}
	res.After = source.Balance()

	if code == e.base {
		res.BaseBefore, res.BaseAfter = res.Before, res.After
	} else {
		quote, lerr := e.rates.Lookup(ctx, code, e.base)
		if lerr != nil {
			return TradeResult{}, lerr
		}
		res.Rate = quote.Rate
		res.Value = convert(amount, quote.Rate)

		cash := staged.EnsureWallet(e.base)
		res.BaseBefore = cash.Balance()
		if err = cash.Deposit(res.Value); err != nil {
			return TradeResult{}, err
		}
		res.BaseAfter = cash.Balance()
	}

	if err = e.portfolios.Write(ctx, staged); err != nil {
		return TradeResult{}, fmt.Errorf("write portfolio: %w", err)
	}
	log.Info("Sell completed", "rate", res.Rate, "proceeds", res.Value)
	return res, nil
}

// Valuate prices every wallet in base. Wallets without a rate are reported
// as unconvertible and left out of the total.
func (e *Engine) Valuate(ctx context.Context, userID uuid.UUID, base string) (val Valuation, err error) {
	defer func() { e.metrics.ObserveTrade(OperationValuate, err) }()
	if userID == uuid.Nil {
		return Valuation{}, domain.ErrPermissionDenied
	}
	if base == "" {
		base = e.base
	}
	base, err = e.registry.Normalize(base)
	if err != nil {
		return Valuation{}, err
	}

	p, err := e.portfolios.Read(ctx, userID)
	if err != nil {
		return Valuation{}, fmt.Errorf("read portfolio: %w", err)
	}

	val = Valuation{UserID: userID, Base: base}
	total := decimal.Zero
	for _, w := range p.Wallets() {
		line := ValuationLine{Currency: w.CurrencyCode, Balance: w.Balance()}
		quote, lerr := e.rates.Lookup(ctx, w.CurrencyCode, base)
		switch {
		case lerr == nil:
			line.Rate = quote.Rate
			value := decimal.NewFromFloat(line.Balance).Mul(decimal.NewFromFloat(quote.Rate))
			line.Value = value.InexactFloat64()
			total = total.Add(value)
		case errors.Is(lerr, domain.ErrRateUnavailable), errors.Is(lerr, domain.ErrCurrencyNotFound):
			e.logger.Warn("Wallet not convertible", "currency", w.CurrencyCode, "base", base, "error", lerr)
			line.Unconvertible = true
		default:
			return Valuation{}, lerr
		}
		val.Lines = append(val.Lines, line)
	}
	val.Total = total.InexactFloat64()
	return val, nil
}
