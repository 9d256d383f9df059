// Package rates serves exchange rates from the stored snapshot and keeps
// the snapshot current through the aggregator.
package rates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/valutatrade/pkg/currency"
	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/metrics"
	"github.com/amirasaad/valutatrade/pkg/repository"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a stored rate counts as fresh.
const DefaultTTL = 300 * time.Second

const onDemandRefreshTimeout = 30 * time.Second

// Lookup results, used as metric labels.
const (
	LookupFresh       = "fresh"
	LookupIdentity    = "identity"
	LookupRefreshed   = "refreshed"
	LookupUnavailable = "unavailable"
)

// Listing is a filtered view of the cached rates.
type Listing struct {
	Entries     []rate.Entry
	LastRefresh *time.Time
}

// Service answers rate lookups. A missing or stale rate triggers one
// synchronous refresh; concurrent lookups share it.
type Service struct {
	registry   *currency.Registry
	store      repository.RateStore
	aggregator *Aggregator
	ttl        time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	refreshes  singleflight.Group
	now        func() time.Time
}

func NewService(
	registry *currency.Registry,
	store repository.RateStore,
	aggregator *Aggregator,
	ttl time.Duration,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		registry:   registry,
		store:      store,
		aggregator: aggregator,
		ttl:        ttl,
		logger:     logger.With("service", "RateService"),
		metrics:    m,
		now:        time.Now,
	}
}

func (s *Service) TTL() time.Duration { return s.ttl }

// Lookup returns the rate from->to.
func (s *Service) Lookup(ctx context.Context, from, to string) (rate.Quote, error) {
	from, err := s.registry.Normalize(from)
	if err != nil {
		return rate.Quote{}, err
	}
	to, err = s.registry.Normalize(to)
	if err != nil {
		return rate.Quote{}, err
	}
	if from == to {
		s.metrics.ObserveLookup(LookupIdentity)
		return rate.Quote{
			From:       from,
			To:         to,
			Rate:       1,
			ObservedAt: s.now().UTC(),
			Source:     rate.IdentitySource,
		}, nil
	}

	log := s.logger.With("from", from, "to", to)
	snap, err := s.store.ReadSnapshot(ctx)
	if err != nil {
		return rate.Quote{}, fmt.Errorf("read snapshot: %w", err)
	}
	if q, ok := snap.Resolve(from, to); ok {
		if q.IsFresh(s.now(), s.ttl) {
			s.metrics.ObserveLookup(LookupFresh)
			return q, nil
		}
		log.Info("Cached rate is stale, refreshing", "observed_at", q.ObservedAt)
	} else {
		log.Info("Rate not cached, refreshing")
	}

	if err := s.refreshOnDemand(ctx); err != nil {
		return rate.Quote{}, err
	}

	snap, err = s.store.ReadSnapshot(ctx)
	if err != nil {
		return rate.Quote{}, fmt.Errorf("read snapshot: %w", err)
	}
	q, ok := snap.Resolve(from, to)
	if !ok {
		s.metrics.ObserveLookup(LookupUnavailable)
		return rate.Quote{}, &domain.RateUnavailableError{From: from, To: to}
	}
	if !q.IsFresh(s.now(), s.ttl) {
		log.Warn("Serving stale rate after refresh", "observed_at", q.ObservedAt)
	}
	s.metrics.ObserveLookup(LookupRefreshed)
	return q, nil
}

// refreshOnDemand runs the shared refresh detached from the caller, so one
// caller giving up does not fail the others. The caller still returns as
// soon as its own context is done.
func (s *Service) refreshOnDemand(ctx context.Context) error {
	ch := s.refreshes.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), onDemandRefreshTimeout)
		defer cancel()
		return s.aggregator.refresh(rctx, TriggerOnDemand, s.aggregator.providers, false)
	})
	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Joined in-flight refresh")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh runs a manual refresh restricted to source ("" or "all" for every
// provider).
func (s *Service) Refresh(ctx context.Context, source string) (rate.RefreshResult, error) {
	return s.aggregator.RefreshSources(ctx, source)
}

// ListCached returns the cached pairs involving code (all pairs when empty).
// With top > 0 the entries are the top highest rates, otherwise they are
// sorted by pair key.
func (s *Service) ListCached(ctx context.Context, code string, top int) (Listing, error) {
	if code != "" {
		normalized, err := s.registry.Normalize(code)
		if err != nil {
			return Listing{}, err
		}
		code = normalized
	}
	snap, err := s.store.ReadSnapshot(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("read snapshot: %w", err)
	}
	return Listing{
		Entries:     rate.TopN(snap.Filter(code), top),
		LastRefresh: snap.LastRefresh,
	}, nil
}

// History lists refresh history for pairKey, newest first.
func (s *Service) History(ctx context.Context, pairKey string, limit int) ([]rate.HistoryRecord, error) {
	reader, ok := s.store.(repository.HistoryReader)
	if !ok {
		return nil, fmt.Errorf("%w: rate store keeps no readable history", domain.ErrNotFound)
	}
	if pairKey != "" {
		pair, err := rate.ParseKey(pairKey)
		if err != nil {
			return nil, err
		}
		pairKey = rate.NewPair(currency.NormalizeCode(pair.From), currency.NormalizeCode(pair.To)).Key()
	}
	return reader.ReadHistory(ctx, pairKey, limit)
}
