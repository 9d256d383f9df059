// Package metrics exposes the Prometheus collectors of the trading hub.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "valutatrade"

// Outcome label values
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds all collectors.
type Metrics struct {
	RefreshTotal          *prometheus.CounterVec
	ProviderFailuresTotal *prometheus.CounterVec
	PairsUpdated          prometheus.Gauge
	LookupTotal           *prometheus.CounterVec
	TradesTotal           *prometheus.CounterVec
	ActionDuration        *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rates_refresh_total",
				Help:      "Rate refreshes by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),
		ProviderFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rates_provider_failures_total",
				Help:      "Failed provider fetches",
			},
			[]string{"provider"},
		),
		PairsUpdated: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rates_pairs_updated",
				Help:      "Pairs written by the last successful refresh",
			},
		),
		LookupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rates_lookup_total",
				Help:      "Rate lookups by result (fresh, refreshed, unavailable)",
			},
			[]string{"result"},
		),
		TradesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_total",
				Help:      "Trading operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		ActionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of exposed operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action", "outcome"},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

func (m *Metrics) ObserveRefresh(trigger string, pairs int, err error) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(trigger, outcome(err)).Inc()
	if err == nil && pairs > 0 {
		m.PairsUpdated.Set(float64(pairs))
	}
}

func (m *Metrics) ObserveProviderFailure(provider string) {
	if m == nil {
		return
	}
	m.ProviderFailuresTotal.WithLabelValues(provider).Inc()
}

func (m *Metrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.LookupTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTrade(operation string, err error) {
	if m == nil {
		return
	}
	m.TradesTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func (m *Metrics) ObserveAction(action string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.ActionDuration.WithLabelValues(action, outcome(err)).Observe(elapsed.Seconds())
}
