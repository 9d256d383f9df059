package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrPermissionDenied, fiber.StatusUnauthorized},
		{&domain.CurrencyNotFoundError{Code: "XYZ"}, fiber.StatusNotFound},
		{fmt.Errorf("%w: got -1", domain.ErrInvalidAmount), fiber.StatusBadRequest},
		{&domain.InsufficientFundsError{Code: "USD"}, fiber.StatusUnprocessableEntity},
		{&domain.RateUnavailableError{From: "BTC", To: "EUR"}, fiber.StatusServiceUnavailable},
		{domain.ErrAlreadyExists, fiber.StatusConflict},
		{fiber.ErrNotFound, fiber.StatusNotFound},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorToStatusCode(tt.err), tt.err.Error())
	}
}

func TestProblemDetailsCarriesInsufficientFunds(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Buy failed", &domain.InsufficientFundsError{
			Available: 500, Required: 5000000, Code: "USD",
		})
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint: errcheck
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get(fiber.HeaderContentType))

	var pd struct {
		Title  string         `json:"title"`
		Errors map[string]any `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	assert.Equal(t, "Buy failed", pd.Title)
	assert.Equal(t, 500.0, pd.Errors["available"])
	assert.Equal(t, "USD", pd.Errors["code"])
}

type input struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func TestBindAndValidate(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		in, err := BindAndValidate[input](c)
		if in == nil {
			return err
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "ok", in)
	})

	send := func(body string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, send(`{"amount": 1.5}`))
	assert.Equal(t, fiber.StatusBadRequest, send(`{"amount": -1}`))
	assert.Equal(t, fiber.StatusBadRequest, send(`{bad json`))
}
