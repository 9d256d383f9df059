package file

import (
	"context"
	"fmt"
	"time"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/repository"
)

type pairDoc struct {
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}

type ratesDoc struct {
	Pairs       map[string]pairDoc `json:"pairs"`
	LastRefresh *time.Time         `json:"last_refresh"`
}

type historyMetaDoc struct {
	Client string `json:"client,omitempty"`
}

type historyDoc struct {
	ID           string         `json:"id"`
	FromCurrency string         `json:"from_currency"`
	ToCurrency   string         `json:"to_currency"`
	Rate         float64        `json:"rate"`
	Timestamp    time.Time      `json:"timestamp"`
	Source       string         `json:"source"`
	Meta         historyMetaDoc `json:"meta"`
}

// RateStore keeps the snapshot in rates.json and the history in
// exchange_rates.json.
type RateStore struct {
	rates   *jsonFile
	history *jsonFile
}

var (
	_ repository.RateStore     = (*RateStore)(nil)
	_ repository.HistoryReader = (*RateStore)(nil)
)

func NewRateStore(dir string) *RateStore {
	return &RateStore{
		rates:   newJSONFile(dir, RatesFile),
		history: newJSONFile(dir, HistoryFile),
	}
}

func (s *RateStore) ReadSnapshot(_ context.Context) (*rate.Snapshot, error) {
	doc, err := read[ratesDoc](s.rates)
	if err != nil {
		return nil, err
	}
	snap := rate.EmptySnapshot()
	for key, p := range doc.Pairs {
		pair, err := rate.ParseKey(key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", RatesFile, err)
		}
		snap.Pairs[key] = rate.Entry{
			Pair:       pair,
			Rate:       p.Rate,
			ObservedAt: p.UpdatedAt,
			Source:     p.Source,
		}
	}
	snap.LastRefresh = doc.LastRefresh
	return snap, nil
}

func (s *RateStore) WriteSnapshot(_ context.Context, snapshot *rate.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrValidation)
	}
	doc := ratesDoc{
		Pairs:       make(map[string]pairDoc, len(snapshot.Pairs)),
		LastRefresh: snapshot.LastRefresh,
	}
	for key, e := range snapshot.Pairs {
		doc.Pairs[key] = pairDoc{Rate: e.Rate, UpdatedAt: e.ObservedAt.UTC(), Source: e.Source}
	}
	s.rates.mu.Lock()
	defer s.rates.mu.Unlock()
	return s.rates.store(&doc)
}

func (s *RateStore) AppendHistory(_ context.Context, records []rate.HistoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	return update(s.history, func(doc *[]historyDoc) error {
		for _, r := range records {
			*doc = append(*doc, historyDoc{
				ID:           r.ID,
				FromCurrency: r.From,
				ToCurrency:   r.To,
				Rate:         r.Rate,
				Timestamp:    r.Timestamp,
				Source:       r.Source,
				Meta:         historyMetaDoc{Client: r.Meta.Client},
			})
		}
		return nil
	})
}

func (s *RateStore) ReadHistory(_ context.Context, pairKey string, limit int) ([]rate.HistoryRecord, error) {
	docs, err := read[[]historyDoc](s.history)
	if err != nil {
		return nil, err
	}
	var out []rate.HistoryRecord
	for i := len(docs) - 1; i >= 0; i-- {
		d := docs[i]
		if pairKey != "" && d.FromCurrency+"_"+d.ToCurrency != pairKey {
			continue
		}
		out = append(out, rate.HistoryRecord{
			ID:        d.ID,
			From:      d.FromCurrency,
			To:        d.ToCurrency,
			Rate:      d.Rate,
			Timestamp: d.Timestamp,
			Source:    d.Source,
			Meta:      rate.HistoryMeta{Client: d.Meta.Client},
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
