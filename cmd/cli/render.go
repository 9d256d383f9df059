package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/service/rates"
	"github.com/amirasaad/valutatrade/pkg/service/trading"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	headColor = color.New(color.FgCyan, color.Bold)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func renderQuote(w io.Writer, q rate.Quote) {
	rev := q.Reverse()
	fmt.Fprintf(w, "Rate %s→%s: %.8f (updated: %s, source: %s)\n",
		q.From, q.To, q.Rate, q.ObservedAt.Format(timeLayout), q.Source)
	fmt.Fprintf(w, "Reverse rate %s→%s: %.8f\n", rev.From, rev.To, rev.Rate)
}

func renderTrade(w io.Writer, r trading.TradeResult) {
	if r.NothingToSell {
		warnColor.Fprintf(w, "You have no %s wallet, nothing to sell. It is created on the first buy.\n", r.Currency)
		return
	}
	verb := "Purchase"
	if r.Operation == trading.OperationSell {
		verb = "Sale"
	}
	if r.Currency == r.Base {
		okColor.Fprintf(w, "%s completed: %.4f %s\n", verb, r.Amount, r.Currency)
	} else {
		okColor.Fprintf(w, "%s completed: %.4f %s at %.2f %s/%s\n",
			verb, r.Amount, r.Currency, r.Rate, r.Base, r.Currency)
	}
	fmt.Fprintln(w, "Portfolio changes:")
	fmt.Fprintf(w, "- %s: was %.4f → now %.4f\n", r.Currency, r.Before, r.After)
	if r.Currency == r.Base {
		return
	}
	fmt.Fprintf(w, "- %s: was %.4f → now %.4f\n", r.Base, r.BaseBefore, r.BaseAfter)
	label := "Estimated cost"
	if r.Operation == trading.OperationSell {
		label = "Estimated proceeds"
	}
	fmt.Fprintf(w, "%s: %.2f %s\n", label, r.Value, r.Base)
}

func renderValuation(w io.Writer, username string, v trading.Valuation) {
	headColor.Fprintf(w, "Portfolio of '%s' (base: %s):\n", username, v.Base)
	if len(v.Lines) == 0 {
		fmt.Fprintln(w, "Portfolio is empty")
		return
	}
	t := newTable("CURRENCY", "BALANCE", "VALUE")
	for _, l := range v.Lines {
		value := fmt.Sprintf("%.2f %s", l.Value, v.Base)
		if l.Unconvertible {
			value = "(no rate to " + v.Base + ")"
		}
		t.Row(l.Currency, fmt.Sprintf("%.4f", l.Balance), value)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "TOTAL: %.2f %s\n", v.Total, v.Base)
}

func renderRefresh(w io.Writer, r rate.RefreshResult) {
	if r.TotalPairsUpdated == 0 && len(r.FailedProviders) > 0 {
		errColor.Fprintf(w, "Rates update failed: %s\n", strings.Join(r.FailedProviders, ", "))
		return
	}
	okColor.Fprintf(w, "Total rates updated: %d. Last refresh: %s\n",
		r.TotalPairsUpdated, r.LastRefresh.Format(timeLayout))
	if len(r.FailedProviders) > 0 {
		warnColor.Fprintf(w, "Failed providers: %s\n", strings.Join(r.FailedProviders, ", "))
	}
}

func renderRates(w io.Writer, l rates.Listing) {
	if len(l.Entries) == 0 {
		warnColor.Fprintln(w, "Local rates cache is empty. Run 'update-rates' to load data.")
		return
	}
	updated := "never"
	if l.LastRefresh != nil {
		updated = l.LastRefresh.Format(timeLayout)
	}
	headColor.Fprintf(w, "Rates from cache (updated at %s):\n", updated)
	t := newTable("PAIR", "RATE", "UPDATED", "SOURCE")
	for _, e := range l.Entries {
		t.Row(e.Pair.Key(), fmt.Sprintf("%.8f", e.Rate), e.ObservedAt.Format(timeLayout), e.Source)
	}
	fmt.Fprintln(w, t.Render())
}

func renderError(w io.Writer, err error, supported []string) {
	errColor.Fprintln(w, err.Error())
	if h := hint(err, supported); h != "" {
		fmt.Fprintln(w, "Hint: "+h)
	}
}
