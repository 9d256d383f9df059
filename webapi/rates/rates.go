package rates

import (
	"time"

	"github.com/amirasaad/valutatrade/pkg/app"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/middleware"
	"github.com/amirasaad/valutatrade/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// QuoteOutput is a single rate answer.
type QuoteOutput struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Rate       float64   `json:"rate"`
	Reverse    float64   `json:"reverse_rate"`
	UpdatedAt  time.Time `json:"updated_at"`
	Source     string    `json:"source"`
	Inverted   bool      `json:"inverted"`
	TTLSeconds float64   `json:"ttl_seconds"`
}

// EntryOutput is one cached pair.
type EntryOutput struct {
	Pair      string    `json:"pair"`
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}

// ListOutput is the cached table view.
type ListOutput struct {
	LastRefresh *time.Time    `json:"last_refresh"`
	Rates       []EntryOutput `json:"rates"`
}

// RefreshOutput reports a refresh.
type RefreshOutput struct {
	TotalPairsUpdated int       `json:"total_pairs_updated"`
	LastRefresh       time.Time `json:"last_refresh"`
	FailedProviders   []string  `json:"failed_providers,omitempty"`
}

// HistoryOutput is one audit row.
type HistoryOutput struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Rate      float64   `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Client    string    `json:"client,omitempty"`
}

// SchedulerOutput reports scheduler state.
type SchedulerOutput struct {
	Running         bool           `json:"running"`
	IntervalSeconds float64        `json:"interval_seconds"`
	LastRun         *time.Time     `json:"last_run,omitempty"`
	LastResult      *RefreshOutput `json:"last_result,omitempty"`
	LastError       string         `json:"last_error,omitempty"`
}

func toRefreshOutput(r rate.RefreshResult) RefreshOutput {
	return RefreshOutput{
		TotalPairsUpdated: r.TotalPairsUpdated,
		LastRefresh:       r.LastRefresh,
		FailedProviders:   r.FailedProviders,
	}
}

func Routes(fiberApp *fiber.App, a *app.App) {
	fiberApp.Get("/rates", ListRates(a))
	fiberApp.Get("/rates/history", History(a))
	fiberApp.Get("/rates/:from/:to", GetRate(a))
	fiberApp.Post("/rates/refresh", Refresh(a))

	fiberApp.Get("/scheduler", SchedulerStatus(a))
	fiberApp.Post("/scheduler/start", middleware.JwtProtected(a.Config.Jwt), StartScheduler(a))
	fiberApp.Post("/scheduler/stop", middleware.JwtProtected(a.Config.Jwt), StopScheduler(a))
}

// GetRate returns the rate from->to, refreshing when missing or stale.
func GetRate(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := a.LookupRate(c.UserContext(), c.Params("from"), c.Params("to"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Rate lookup failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rate fetched successfully", QuoteOutput{
			From:       q.From,
			To:         q.To,
			Rate:       q.Rate,
			Reverse:    q.Reverse().Rate,
			UpdatedAt:  q.ObservedAt,
			Source:     q.Source,
			Inverted:   q.Inverted,
			TTLSeconds: a.RateService.TTL().Seconds(),
		})
	}
}

// ListRates returns the cached table, optionally filtered by ?currency= and
// cut to the ?top= highest rates.
func ListRates(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		top := c.QueryInt("top", 0)
		if top < 0 {
			return common.ProblemDetailsJSON(c, "Invalid top", fiber.NewError(fiber.StatusBadRequest, "top must be positive"))
		}
		list, err := a.ListCachedRates(c.UserContext(), c.Query("currency"), top)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list rates", err)
		}
		out := ListOutput{LastRefresh: list.LastRefresh, Rates: make([]EntryOutput, 0, len(list.Entries))}
		for _, e := range list.Entries {
			out.Rates = append(out.Rates, EntryOutput{
				Pair:      e.Pair.Key(),
				Rate:      e.Rate,
				UpdatedAt: e.ObservedAt,
				Source:    e.Source,
			})
		}
		message := "Rates fetched successfully"
		if len(out.Rates) == 0 {
			message = "Local rates cache is empty, run a refresh first"
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, message, out)
	}
}

// Refresh runs a manual refresh for ?source= (all providers by default).
func Refresh(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := a.RefreshRates(c.UserContext(), c.Query("source"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Rates update failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rates updated", toRefreshOutput(res))
	}
}

// History lists refresh history for ?pair= (all pairs when empty).
func History(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		records, err := a.RateService.History(c.UserContext(), c.Query("pair"), c.QueryInt("limit", 50))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to read history", err)
		}
		out := make([]HistoryOutput, 0, len(records))
		for _, r := range records {
			out = append(out, HistoryOutput{
				ID:        r.ID,
				From:      r.From,
				To:        r.To,
				Rate:      r.Rate,
				Timestamp: r.Timestamp,
				Source:    r.Source,
				Client:    r.Meta.Client,
			})
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "History fetched successfully", out)
	}
}

func SchedulerStatus(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := a.Scheduler.Status()
		out := SchedulerOutput{
			Running:         st.Running,
			IntervalSeconds: st.Interval.Seconds(),
			LastRun:         st.LastRun,
			LastError:       st.LastError,
		}
		if st.LastResult != nil {
			r := toRefreshOutput(*st.LastResult)
			out.LastResult = &r
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Scheduler status", out)
	}
}

func StartScheduler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// The loop must outlive the request.
		if !a.StartScheduler(a.Context()) {
			return common.SuccessResponseJSON(c, fiber.StatusOK, "Scheduler already running", nil)
		}
		return common.SuccessResponseJSON(c, fiber.StatusAccepted, "Scheduler started", nil)
	}
}

func StopScheduler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.StopScheduler(); err != nil {
			return common.ProblemDetailsJSON(c, "Scheduler stop timed out", err, fiber.StatusAccepted)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Scheduler stopped", nil)
	}
}
