package portfolio

import (
	"context"

	"github.com/amirasaad/valutatrade/pkg/app"
	"github.com/amirasaad/valutatrade/pkg/middleware"
	"github.com/amirasaad/valutatrade/pkg/service/trading"
	"github.com/amirasaad/valutatrade/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TradeInput is the body of buy and sell requests.
type TradeInput struct {
	Currency string  `json:"currency" validate:"required"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
}

// TradeOutput is the result of a buy or sell.
type TradeOutput struct {
	Operation     string  `json:"operation"`
	Currency      string  `json:"currency"`
	Amount        float64 `json:"amount"`
	Base          string  `json:"base"`
	Rate          float64 `json:"rate"`
	Value         float64 `json:"value"`
	Before        float64 `json:"before"`
	After         float64 `json:"after"`
	BaseBefore    float64 `json:"base_before"`
	BaseAfter     float64 `json:"base_after"`
	NothingToSell bool    `json:"nothing_to_sell,omitempty"`
}

// LineOutput is one wallet in a valuation.
type LineOutput struct {
	Currency      string  `json:"currency"`
	Balance       float64 `json:"balance"`
	Value         float64 `json:"value"`
	Rate          float64 `json:"rate,omitempty"`
	Unconvertible bool    `json:"unconvertible,omitempty"`
}

// ValuationOutput is a portfolio priced in a base currency.
type ValuationOutput struct {
	Base    string       `json:"base"`
	Wallets []LineOutput `json:"wallets"`
	Total   float64      `json:"total"`
}

func toTradeOutput(r trading.TradeResult) TradeOutput {
	return TradeOutput{
		Operation:     r.Operation,
		Currency:      r.Currency,
		Amount:        r.Amount,
		Base:          r.Base,
		Rate:          r.Rate,
		Value:         r.Value,
		Before:        r.Before,
		After:         r.After,
		BaseBefore:    r.BaseBefore,
		BaseAfter:     r.BaseAfter,
		NothingToSell: r.NothingToSell,
	}
}

func Routes(fiberApp *fiber.App, a *app.App) {
	group := fiberApp.Group("/portfolio", middleware.JwtProtected(a.Config.Jwt))
	group.Get("/", Show(a))
	group.Post("/buy", Buy(a))
	group.Post("/sell", Sell(a))
}

func currentUser(c *fiber.Ctx, a *app.App) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return a.AuthService.GetCurrentUserID(token)
}

// Show values the caller's wallets in ?base= (the configured base by default).
func Show(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, a)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err, fiber.StatusUnauthorized)
		}
		val, err := a.ValuatePortfolio(c.UserContext(), userID, c.Query("base"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to value portfolio", err)
		}
		out := ValuationOutput{Base: val.Base, Total: val.Total, Wallets: make([]LineOutput, 0, len(val.Lines))}
		for _, l := range val.Lines {
			out.Wallets = append(out.Wallets, LineOutput{
				Currency:      l.Currency,
				Balance:       l.Balance,
				Value:         l.Value,
				Rate:          l.Rate,
				Unconvertible: l.Unconvertible,
			})
		}
		message := "Portfolio fetched successfully"
		if len(out.Wallets) == 0 {
			message = "Portfolio is empty"
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, message, out)
	}
}

func Buy(a *app.App) fiber.Handler {
	return trade(a, "Buy failed", a.Buy)
}

func Sell(a *app.App) fiber.Handler {
	return trade(a, "Sell failed", a.Sell)
}

type tradeFunc func(ctx context.Context, userID uuid.UUID, code string, amount float64) (trading.TradeResult, error)

func trade(a *app.App, title string, fn tradeFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, a)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err, fiber.StatusUnauthorized)
		}
		input, err := common.BindAndValidate[TradeInput](c)
		if input == nil {
			return err
		}
		res, err := fn(c.UserContext(), userID, input.Currency, input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, title, err)
		}
		message := "Trade completed"
		if res.NothingToSell {
			message = "Nothing to sell"
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, message, toTradeOutput(res))
	}
}
