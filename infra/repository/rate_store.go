package repository

import (
	"context"
	"fmt"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type rateStore struct {
	db *gorm.DB
}

// NewRateStore returns a RateStore backed by the rates and rate_history
// tables.
func NewRateStore(db *gorm.DB) interface {
	repository.RateStore
	repository.HistoryReader
} {
	return &rateStore{db: db}
}

func (s *rateStore) ReadSnapshot(ctx context.Context) (*rate.Snapshot, error) {
	var rows []Rate
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read rates: %w", err)
	}
	snap := rate.EmptySnapshot()
	for _, row := range rows {
		snap.Pairs[row.Pair] = rate.Entry{
			Pair:       rate.NewPair(row.FromCurrency, row.ToCurrency),
			Rate:       row.Rate,
			ObservedAt: row.ObservedAt,
			Source:     row.Source,
		}
		if snap.LastRefresh == nil || row.SnapshotAt.After(*snap.LastRefresh) {
			at := row.SnapshotAt
			snap.LastRefresh = &at
		}
	}
	return snap, nil
}

// WriteSnapshot replaces every row inside one transaction. The table lock
// serializes concurrent writers so the later one wins whole.
func (s *rateStore) WriteSnapshot(ctx context.Context, snapshot *rate.Snapshot) error {
	if snapshot == nil || snapshot.LastRefresh == nil {
		return fmt.Errorf("%w: snapshot without refresh time", domain.ErrValidation)
	}
	rows := make([]Rate, 0, len(snapshot.Pairs))
	for key, e := range snapshot.Pairs {
		rows = append(rows, Rate{
			Pair:         key,
			FromCurrency: e.Pair.From,
			ToCurrency:   e.Pair.To,
			Rate:         e.Rate,
			Source:       e.Source,
			ObservedAt:   e.ObservedAt.UTC(),
			SnapshotAt:   snapshot.LastRefresh.UTC(),
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("LOCK TABLE rates IN EXCLUSIVE MODE").Error; err != nil {
			return fmt.Errorf("failed to lock rates: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&Rate{}).Error; err != nil {
			return fmt.Errorf("failed to clear rates: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to write rates: %w", err)
		}
		return nil
	})
}

func (s *rateStore) AppendHistory(ctx context.Context, records []rate.HistoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]RateHistory, len(records))
	for i, r := range records {
		rows[i] = RateHistory{
			ID:           uuid.New(),
			RecordID:     r.ID,
			FromCurrency: r.From,
			ToCurrency:   r.To,
			Rate:         r.Rate,
			Timestamp:    r.Timestamp,
			Source:       r.Source,
			Client:       r.Meta.Client,
		}
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to append rate history: %w", err)
	}
	return nil
}

func (s *rateStore) ReadHistory(ctx context.Context, pairKey string, limit int) ([]rate.HistoryRecord, error) {
	q := s.db.WithContext(ctx).Order("timestamp desc")
	if pairKey != "" {
		pair, err := rate.ParseKey(pairKey)
		if err != nil {
			return nil, err
		}
		q = q.Where("from_currency = ? AND to_currency = ?", pair.From, pair.To)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []RateHistory
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read rate history: %w", err)
	}
	out := make([]rate.HistoryRecord, len(rows))
	for i, row := range rows {
		out[i] = rate.HistoryRecord{
			ID:        row.RecordID,
			From:      row.FromCurrency,
			To:        row.ToCurrency,
			Rate:      row.Rate,
			Timestamp: row.Timestamp,
			Source:    row.Source,
			Meta:      rate.HistoryMeta{Client: row.Client},
		}
	}
	return out, nil
}
