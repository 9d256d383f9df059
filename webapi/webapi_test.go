package webapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/valutatrade/infra/provider/static"
	"github.com/amirasaad/valutatrade/infra/repository/memory"
	fixtures "github.com/amirasaad/valutatrade/internal/fixtures/currency"
	"github.com/amirasaad/valutatrade/pkg/app"
	"github.com/amirasaad/valutatrade/pkg/config"
	"github.com/amirasaad/valutatrade/pkg/metrics"
	"github.com/amirasaad/valutatrade/pkg/provider"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Title   string          `json:"title"`
	Errors  map[string]any  `json:"errors"`
}

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	reg, err := fixtures.NewRegistry("")
	require.NoError(t, err)
	promReg := prometheus.NewRegistry()
	deps := &app.Deps{
		CurrencyRegistry: reg,
		RateStore:        memory.NewRateStore(),
		Portfolios:       memory.NewPortfolioRepository(),
		Users:            memory.NewUserRepository(),
		Providers: []provider.RateProvider{
			static.New("static", map[string]float64{"BTC_USD": 50000, "EUR_USD": 1.25}),
		},
		Metrics:  metrics.New(promReg),
		Gatherer: promReg,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	cfg := &config.App{
		Log:       &config.Log{},
		Jwt:       &config.Jwt{Secret: "test-secret", Expiry: time.Hour},
		RateLimit: &config.RateLimit{MaxRequests: 1000, Window: time.Minute},
		Rates: &config.Rates{
			TTL:                  time.Minute,
			RefreshInterval:      time.Hour,
			BaseCurrency:         "USD",
			SchedulerStopTimeout: time.Second,
		},
	}
	a := app.New(deps, cfg)
	t.Cleanup(func() { _ = a.Close() })
	return SetupApp(a)
}

func doRequest(t *testing.T, fa *fiber.App, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := fa.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func registerAndLogin(t *testing.T, fa *fiber.App, username string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": "1234"}
	resp, _ := doRequest(t, fa, http.MethodPost, "/auth/register", "", creds)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, env := doRequest(t, fa, http.MethodPost, "/auth/login", "", creds)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestHealth(t *testing.T) {
	fa := setupTestApp(t)
	resp, _ := doRequest(t, fa, http.MethodGet, "/", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthEndpoints(t *testing.T) {
	fa := setupTestApp(t)
	registerAndLogin(t, fa, "alice")

	resp, _ := doRequest(t, fa, http.MethodPost, "/auth/register", "",
		map[string]string{"username": "alice", "password": "1234"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = doRequest(t, fa, http.MethodPost, "/auth/register", "",
		map[string]string{"username": "bob", "password": "123"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, fa, http.MethodPost, "/auth/login", "",
		map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCurrencyEndpoints(t *testing.T) {
	fa := setupTestApp(t)
	resp, env := doRequest(t, fa, http.MethodGet, "/currencies/btc", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"code":"BTC"`)

	resp, env = doRequest(t, fa, http.MethodGet, "/currencies/XYZ", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "XYZ", env.Errors["code"])
}

func TestRateEndpoints(t *testing.T) {
	fa := setupTestApp(t)

	resp, env := doRequest(t, fa, http.MethodGet, "/rates", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, env.Message, "empty")

	resp, env = doRequest(t, fa, http.MethodGet, "/rates/usd/btc", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var quote struct {
		Rate     float64 `json:"rate"`
		Reverse  float64 `json:"reverse_rate"`
		Inverted bool    `json:"inverted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.InDelta(t, 1.0/50000, quote.Rate, 1e-12)
	assert.InDelta(t, 50000, quote.Reverse, 1e-6)
	assert.True(t, quote.Inverted)

	resp, _ = doRequest(t, fa, http.MethodGet, "/rates/BTC/EUR", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = doRequest(t, fa, http.MethodGet, "/rates/XYZ/USD", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, env = doRequest(t, fa, http.MethodGet, "/rates?currency=BTC", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "BTC_USD")
	assert.NotContains(t, string(env.Data), "EUR_USD")

	resp, env = doRequest(t, fa, http.MethodPost, "/rates/refresh?source=static", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"total_pairs_updated":2`)

	resp, _ = doRequest(t, fa, http.MethodPost, "/rates/refresh?source=nope", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, env = doRequest(t, fa, http.MethodGet, "/rates/history?pair=btc_usd", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"client":"static"`)
}

func TestPortfolioEndpoints(t *testing.T) {
	fa := setupTestApp(t)

	resp, _ := doRequest(t, fa, http.MethodGet, "/portfolio", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "missing token")

	token := registerAndLogin(t, fa, "alice")

	resp, env := doRequest(t, fa, http.MethodGet, "/portfolio", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Portfolio is empty", env.Message)

	resp, _ = doRequest(t, fa, http.MethodPost, "/portfolio/buy", token,
		map[string]any{"currency": "USD", "amount": 1000})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = doRequest(t, fa, http.MethodPost, "/portfolio/buy", token,
		map[string]any{"currency": "BTC", "amount": 0.01})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var trade struct {
		Value     float64 `json:"value"`
		BaseAfter float64 `json:"base_after"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &trade))
	assert.InDelta(t, 500, trade.Value, 1e-9)
	assert.InDelta(t, 500, trade.BaseAfter, 1e-9)

	resp, env = doRequest(t, fa, http.MethodPost, "/portfolio/buy", token,
		map[string]any{"currency": "BTC", "amount": 100})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "USD", env.Errors["code"])

	resp, _ = doRequest(t, fa, http.MethodPost, "/portfolio/sell", token,
		map[string]any{"currency": "BTC", "amount": -1})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, env = doRequest(t, fa, http.MethodPost, "/portfolio/sell", token,
		map[string]any{"currency": "EUR", "amount": 1})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Nothing to sell", env.Message)

	resp, env = doRequest(t, fa, http.MethodGet, "/portfolio?base=USD", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var val struct {
		Total float64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &val))
	assert.InDelta(t, 1000, val.Total, 1e-9)
}

func TestSchedulerEndpoints(t *testing.T) {
	fa := setupTestApp(t)

	resp, _ := doRequest(t, fa, http.MethodPost, "/scheduler/start", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	token := registerAndLogin(t, fa, "ops")
	resp, _ = doRequest(t, fa, http.MethodPost, "/scheduler/start", token, nil)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	resp, env := doRequest(t, fa, http.MethodGet, "/scheduler", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"running":true`)

	resp, _ = doRequest(t, fa, http.MethodPost, "/scheduler/stop", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	fa := setupTestApp(t)
	doRequest(t, fa, http.MethodGet, "/rates/USD/BTC", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := fa.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "valutatrade_rates_lookup_total")
}

func TestClientKey(t *testing.T) {
	fa := fiber.New()
	fa.Get("/", func(c *fiber.Ctx) error { return c.SendString(clientKey(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	resp, err := fa.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "10.0.0.1", string(body))
}
