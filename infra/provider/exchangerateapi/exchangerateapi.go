// Package exchangerateapi fetches fiat rates from exchangerate-api.com (v6).
package exchangerateapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/valutatrade/infra/provider"
	"github.com/amirasaad/valutatrade/pkg/config"
	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
)

const (
	Name       = "exchangerate"
	Source     = "ExchangeRate-API"
	ClientName = "ExchangeRateApiClient"
)

// ErrMissingAPIKey is returned by Fetch when no API key is configured.
var ErrMissingAPIKey = errors.New("EXCHANGERATE_API_KEY is not set")

// ResponseV6 represents the v6 response from the ExchangeRate API
// See: https://www.exchangerate-api.com/docs/standard-requests
type ResponseV6 struct {
	Result             string             `json:"result"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	BaseCode           string             `json:"base_code"`
	ConversionRates    map[string]float64 `json:"conversion_rates"`
	ErrorType          string             `json:"error-type,omitempty"`
}

// Client implements provider.RateProvider for ExchangeRate-API.
type Client struct {
	apiKey     string
	baseURL    string
	base       string
	currencies []string
	http       *provider.HTTPClient
	logger     *slog.Logger
	nowFunc    func() time.Time
}

// New creates a client publishing CODE_BASE pairs for the configured
// currencies.
func New(cfg *config.ExchangeRateApi, base string, logger *slog.Logger) *Client {
	currencies := make([]string, 0, len(cfg.Currencies))
	for _, c := range cfg.Currencies {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			currencies = append(currencies, c)
		}
	}
	return &Client{
		apiKey:     cfg.ApiKey,
		baseURL:    strings.TrimRight(cfg.ApiUrl, "/"),
		base:       strings.ToUpper(base),
		currencies: currencies,
		http: provider.NewHTTPClient(provider.HTTPOptions{
			Timeout:           cfg.HTTPTimeout,
			MaxRetries:        cfg.MaxRetries,
			RequestsPerMinute: cfg.RequestsPerMinute,
			Burst:             cfg.BurstSize,
		}, logger),
		logger:  logger.With("service", ClientName),
		nowFunc: time.Now,
	}
}

func (c *Client) Name() string { return Name }

// Fetch requests the latest table for the base currency. The API quotes
// 1 BASE = x CODE, so each pair CODE_BASE is stored as 1/x.
func (c *Client) Fetch(ctx context.Context) (map[string]rate.Entry, error) {
	if c.apiKey == "" {
		return nil, domain.NewProviderError(Name, ErrMissingAPIKey)
	}
	url := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, c.base)
	c.logger.Debug("Fetching exchange rates from API", "base", c.base)

	body, err := c.http.Get(ctx, url, nil)
	if err != nil {
		return nil, domain.NewProviderError(Name, err)
	}

	var apiResp ResponseV6
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, domain.NewProviderError(Name, fmt.Errorf("failed to decode response: %w", err))
	}
	if apiResp.Result != "success" {
		return nil, domain.NewProviderError(
			Name,
			fmt.Errorf("API returned result=%s error-type=%s", apiResp.Result, apiResp.ErrorType),
		)
	}

	now := c.nowFunc().UTC()
	out := make(map[string]rate.Entry, len(c.currencies))
	for _, code := range c.currencies {
		if code == c.base {
			continue
		}
		v, ok := apiResp.ConversionRates[code]
		if !ok || v <= 0 {
			c.logger.Warn("Conversion rate missing from response", "currency", code)
			continue
		}
		e := rate.Entry{
			Pair:       rate.NewPair(code, c.base),
			Rate:       1 / v,
			ObservedAt: now,
			Source:     Source,
		}
		if err := e.Validate(); err != nil {
			c.logger.Warn("Skipping invalid rate", "currency", code, "error", err)
			continue
		}
		out[e.Pair.Key()] = e
	}
	c.logger.Info("Exchange rates fetched successfully", "base", c.base, "pairs", len(out))
	return out, nil
}
