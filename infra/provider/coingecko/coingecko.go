// Package coingecko fetches crypto prices from the CoinGecko simple price
// API.
package coingecko

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/amirasaad/valutatrade/infra/provider"
	"github.com/amirasaad/valutatrade/pkg/config"
	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/tidwall/gjson"
)

const (
	Name       = "coingecko"
	Source     = "CoinGecko"
	ClientName = "CoinGeckoClient"
	apiKeyHdr  = "x-cg-demo-api-key"
)

// Client implements provider.RateProvider for CoinGecko.
type Client struct {
	baseURL string
	apiKey  string
	quote   string
	coins   map[string]string // code -> CoinGecko id
	http    *provider.HTTPClient
	logger  *slog.Logger
	nowFunc func() time.Time
}

// New creates a CoinGecko client quoting prices in quote (e.g. "USD").
func New(cfg *config.CoinGecko, quote string, logger *slog.Logger) (*Client, error) {
	coins, err := ParseCoins(cfg.Coins)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.ApiUrl, "/"),
		apiKey:  cfg.ApiKey,
		quote:   strings.ToUpper(quote),
		coins:   coins,
		http: provider.NewHTTPClient(provider.HTTPOptions{
			Timeout:           cfg.HTTPTimeout,
			MaxRetries:        cfg.MaxRetries,
			RequestsPerMinute: cfg.RequestsPerMinute,
			Burst:             cfg.BurstSize,
		}, logger),
		logger:  logger.With("service", ClientName),
		nowFunc: time.Now,
	}, nil
}

// ParseCoins parses "BTC:bitcoin,ETH:ethereum" into code -> id.
func ParseCoins(s string) (map[string]string, error) {
	coins := map[string]string{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		code, id, ok := strings.Cut(item, ":")
		if !ok || strings.TrimSpace(code) == "" || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: invalid coin mapping %q", domain.ErrValidation, item)
		}
		coins[strings.ToUpper(strings.TrimSpace(code))] = strings.TrimSpace(id)
	}
	if len(coins) == 0 {
		return nil, fmt.Errorf("%w: no coins configured", domain.ErrValidation)
	}
	return coins, nil
}

func (c *Client) Name() string { return Name }

// Fetch returns CODE_QUOTE pairs for every configured coin present in the
// response.
func (c *Client) Fetch(ctx context.Context) (map[string]rate.Entry, error) {
	ids := make([]string, 0, len(c.coins))
	for _, id := range c.coins {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	vs := strings.ToLower(c.quote)
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", vs)
	endpoint := c.baseURL + "/simple/price?" + q.Encode()

	headers := map[string]string{}
	if c.apiKey != "" {
		headers[apiKeyHdr] = c.apiKey
	}

	c.logger.Debug("Fetching prices", "ids", ids)
	body, err := c.http.Get(ctx, endpoint, headers)
	if err != nil {
		return nil, domain.NewProviderError(Name, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, domain.NewProviderError(Name, errors.New("invalid JSON response"))
	}

	now := c.nowFunc().UTC()
	out := make(map[string]rate.Entry, len(c.coins))
	for code, id := range c.coins {
		price := gjson.GetBytes(body, id+"."+vs)
		if !price.Exists() {
			c.logger.Warn("Price missing from response", "coin", id)
			continue
		}
		e := rate.Entry{
			Pair:       rate.NewPair(code, c.quote),
			Rate:       price.Float(),
			ObservedAt: now,
			Source:     Source,
		}
		if err := e.Validate(); err != nil {
			c.logger.Warn("Skipping invalid price", "coin", id, "error", err)
			continue
		}
		out[e.Pair.Key()] = e
	}
	c.logger.Info("Fetched prices", "pairs", len(out))
	return out, nil
}
