package currency

import (
	"github.com/amirasaad/valutatrade/pkg/app"
	"github.com/amirasaad/valutatrade/pkg/currency"
	"github.com/amirasaad/valutatrade/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// Output describes one supported currency.
type Output struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Kind           string  `json:"kind"`
	IssuingCountry string  `json:"issuing_country,omitempty"`
	Algorithm      string  `json:"algorithm,omitempty"`
	MarketCap      float64 `json:"market_cap,omitempty"`
	Display        string  `json:"display"`
}

func toOutput(c currency.Currency) Output {
	out := Output{Code: c.Code, Name: c.Name, Kind: c.Kind.String(), Display: c.DisplayInfo()}
	if c.Fiat != nil {
		out.IssuingCountry = c.Fiat.IssuingCountry
	}
	if c.Crypto != nil {
		out.Algorithm = c.Crypto.Algorithm
		out.MarketCap = c.Crypto.MarketCap
	}
	return out
}

func Routes(fiberApp *fiber.App, a *app.App) {
	fiberApp.Get("/currencies", ListCurrencies(a))
	fiberApp.Get("/currencies/:code", GetCurrency(a))
}

// ListCurrencies returns every supported currency sorted by code.
func ListCurrencies(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list := a.Currencies()
		out := make([]Output, 0, len(list))
		for _, cur := range list {
			out = append(out, toOutput(cur))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Currencies fetched successfully", out)
	}
}

// GetCurrency returns one currency by code.
func GetCurrency(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cur, err := a.Deps.CurrencyRegistry.Get(c.Params("code"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Currency not found", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Currency fetched successfully", toOutput(cur))
	}
}
