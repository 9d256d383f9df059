package rates

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/metrics"
	"github.com/amirasaad/valutatrade/pkg/provider"
	"github.com/amirasaad/valutatrade/pkg/repository"
	"golang.org/x/sync/errgroup"
)

// Refresh triggers, used as metric labels.
const (
	TriggerScheduled = "scheduled"
	TriggerOnDemand  = "on_demand"
	TriggerManual    = "manual"
)

// SourceAll selects every configured provider.
const SourceAll = "all"

// Aggregator fans out to the configured providers and replaces the stored
// snapshot with the merged result.
type Aggregator struct {
	providers []provider.RateProvider
	store     repository.RateStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewAggregator creates an aggregator. Provider order matters: on a key
// collision the later provider wins.
func NewAggregator(
	providers []provider.RateProvider,
	store repository.RateStore,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		providers: providers,
		store:     store,
		logger:    logger.With("service", "RatesUpdater"),
		metrics:   m,
		now:       time.Now,
	}
}

// Providers returns the names of the configured providers in merge order.
func (a *Aggregator) Providers() []string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		names = append(names, p.Name())
	}
	return names
}

// Refresh queries every provider and replaces the snapshot. It is the
// scheduled refresh path.
func (a *Aggregator) Refresh(ctx context.Context) (rate.RefreshResult, error) {
	return a.refresh(ctx, TriggerScheduled, a.providers, false)
}

// RefreshSources refreshes from the provider named source, or from all of
// them for "" and "all". A partial refresh keeps the pairs of the other
// providers from the previous snapshot.
func (a *Aggregator) RefreshSources(ctx context.Context, source string) (rate.RefreshResult, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" || source == SourceAll {
		return a.refresh(ctx, TriggerManual, a.providers, false)
	}
	for _, p := range a.providers {
		if strings.EqualFold(p.Name(), source) {
			return a.refresh(ctx, TriggerManual, []provider.RateProvider{p}, true)
		}
	}
	return rate.RefreshResult{}, fmt.Errorf(
		"%w: unknown source %q, expected one of %s or %q",
		domain.ErrValidation, source, strings.Join(a.Providers(), ", "), SourceAll,
	)
}

type fetchResult struct {
	pairs map[string]rate.Entry
	err   error
}

func (a *Aggregator) fetchAll(ctx context.Context, providers []provider.RateProvider) []fetchResult {
	results := make([]fetchResult, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		i, p := i, p // per-iteration copies (module targets go 1.21 loop semantics)
		g.Go(func() error {
			pairs, err := p.Fetch(ctx)
			results[i] = fetchResult{pairs: pairs, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *Aggregator) refresh(
	ctx context.Context,
	trigger string,
	providers []provider.RateProvider,
	carryOver bool,
) (result rate.RefreshResult, err error) {
	log := a.logger.With("trigger", trigger)
	log.Info("Starting rates update", "providers", len(providers))
	defer func() { a.metrics.ObserveRefresh(trigger, result.TotalPairsUpdated, err) }()

	merged := map[string]rate.Entry{}
	clients := map[string]string{}
	for i, res := range a.fetchAll(ctx, providers) {
		name := providers[i].Name()
		if res.err != nil {
			log.Warn("Provider fetch failed", "provider", name, "error", res.err)
			a.metrics.ObserveProviderFailure(name)
			result.FailedProviders = append(result.FailedProviders, name)
			continue
		}
		accepted := 0
		for key, entry := range res.pairs {
			if entry.Pair.From == "" {
				pair, perr := rate.ParseKey(key)
				if perr != nil {
					log.Warn("Skipping pair", "provider", name, "key", key, "error", perr)
					continue
				}
				entry.Pair = pair
			}
			if verr := entry.Validate(); verr != nil {
				log.Warn("Skipping pair", "provider", name, "key", key, "error", verr)
				continue
			}
			merged[entry.Pair.Key()] = entry
			clients[entry.Pair.Key()] = name
			accepted++
		}
		log.Info("Provider fetched", "provider", name, "pairs", accepted)
	}

	now := a.now().UTC()
	result.LastRefresh = now
	if len(merged) == 0 {
		log.Warn("No rates fetched, keeping previous snapshot",
			"failed_providers", result.FailedProviders)
		return result, nil
	}

	pairs := make(map[string]rate.Entry, len(merged))
	if carryOver {
		prev, rerr := a.store.ReadSnapshot(ctx)
		if rerr != nil {
			return result, fmt.Errorf("read snapshot: %w", rerr)
		}
		for key, entry := range prev.Pairs {
			pairs[key] = entry
		}
	}
	for key, entry := range merged {
		pairs[key] = entry
	}

	if err = a.store.WriteSnapshot(ctx, rate.NewSnapshot(pairs, now)); err != nil {
		log.Error("Failed to write snapshot", "error", err)
		return result, fmt.Errorf("write snapshot: %w", err)
	}
	result.TotalPairsUpdated = len(merged)

	records := make([]rate.HistoryRecord, 0, len(merged))
	for key, entry := range merged {
		records = append(records, rate.NewHistoryRecord(entry, now, clients[key]))
	}
	if herr := a.store.AppendHistory(ctx, records); herr != nil {
		log.Error("Failed to append rate history", "error", herr)
	}

	log.Info("Rates update finished",
		"pairs_updated", result.TotalPairsUpdated,
		"last_refresh", now.Format(time.RFC3339),
	)
	return result, nil
}
