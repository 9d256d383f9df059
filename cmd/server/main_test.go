package main_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/amirasaad/valutatrade/infra/provider/static"
	"github.com/amirasaad/valutatrade/infra/repository/memory"
	fixtures "github.com/amirasaad/valutatrade/internal/fixtures/currency"
	"github.com/amirasaad/valutatrade/pkg/app"
	"github.com/amirasaad/valutatrade/pkg/config"
	"github.com/amirasaad/valutatrade/pkg/provider"
	"github.com/amirasaad/valutatrade/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
)

// TestMain runs before any tests and applies globally for all tests in the package.
func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

type MainTestSuite struct {
	suite.Suite
	app      *app.App
	fiberApp *fiber.App
}

func TestMainTestSuite(t *testing.T) {
	suite.Run(t, new(MainTestSuite))
}

func (s *MainTestSuite) SetupTest() {
	reg, err := fixtures.NewRegistry("")
	s.Require().NoError(err)
	deps := &app.Deps{
		CurrencyRegistry: reg,
		RateStore:        memory.NewRateStore(),
		Portfolios:       memory.NewPortfolioRepository(),
		Users:            memory.NewUserRepository(),
		Providers:        []provider.RateProvider{static.New("static", map[string]float64{"EUR_USD": 1.1})},
		Logger:           slog.Default(),
	}
	s.app = app.New(deps, &config.App{
		Server: &config.Server{Host: "localhost", Port: 3000},
		Log:    &config.Log{},
		Jwt:    &config.Jwt{Secret: "secret", Expiry: time.Hour},
		Rates:  &config.Rates{TTL: time.Minute, BaseCurrency: "USD"},
	})
	s.fiberApp = webapi.SetupApp(s.app)
}

func (s *MainTestSuite) TearDownTest() {
	s.NoError(s.app.Close())
}

func (s *MainTestSuite) request(method, path, body string) *http.Response {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.fiberApp.Test(req)
	s.Require().NoError(err)
	return resp
}

func (s *MainTestSuite) TestStartServer_RootRoute() {
	resp := s.request(http.MethodGet, "/", "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *MainTestSuite) TestProtectedRoute_Unauthorized() {
	resp := s.request(http.MethodPost, "/portfolio/buy", `{"currency":"EUR","amount":1}`)
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *MainTestSuite) TestNotFoundRoute() {
	resp := s.request(http.MethodGet, "/doesnotexist", "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *MainTestSuite) TestLoginRoute_BadRequest() {
	resp := s.request(http.MethodPost, "/auth/login", "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
