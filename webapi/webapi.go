// Package webapi exposes the trading hub over HTTP. It is organized into
// sub-packages per area:
// - auth: registration and login
// - currency: supported currencies
// - rates: rate lookup, cache listing, refresh and scheduler control
// - portfolio: valuation and trades of the authenticated user
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/valutatrade/pkg/app"
	authweb "github.com/amirasaad/valutatrade/webapi/auth"
	"github.com/amirasaad/valutatrade/webapi/common"
	currencyweb "github.com/amirasaad/valutatrade/webapi/currency"
	portfolioweb "github.com/amirasaad/valutatrade/webapi/portfolio"
	ratesweb "github.com/amirasaad/valutatrade/webapi/rates"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	if rl := a.Config.RateLimit; rl != nil && rl.MaxRequests > 0 {
		fiberApp.Use(limiter.New(limiter.Config{
			Max:          rl.MaxRequests,
			Expiration:   rl.Window,
			KeyGenerator: clientKey,
			LimitReached: func(c *fiber.Ctx) error {
				return common.ProblemDetailsJSON(
					c,
					"Too Many Requests",
					errors.New("rate limit exceeded"),
					fiber.StatusTooManyRequests,
				)
			},
		}))
	}
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ValutaTrade API is running!")
	})

	gatherer := a.Deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	fiberApp.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	authweb.Routes(fiberApp, a)
	currencyweb.Routes(fiberApp, a)
	ratesweb.Routes(fiberApp, a)
	portfolioweb.Routes(fiberApp, a)
	return fiberApp
}

// clientKey prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address.
func clientKey(c *fiber.Ctx) string {
	if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
		if first, _, ok := strings.Cut(forwardedFor, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwardedFor)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}
