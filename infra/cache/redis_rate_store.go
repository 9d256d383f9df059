package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/valutatrade/pkg/config"
	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/repository"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotKey = "rates:snapshot"
	historyKey  = "rates:history"
)

type redisEntry struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}

type redisSnapshot struct {
	Pairs       map[string]redisEntry `json:"pairs"`
	LastRefresh *time.Time            `json:"last_refresh"`
}

type redisHistory struct {
	ID        string    `json:"id"`
	From      string    `json:"from_currency"`
	To        string    `json:"to_currency"`
	Rate      float64   `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Client    string    `json:"client,omitempty"`
}

// RedisRateStore keeps the whole snapshot under one key, so a SET replaces
// it atomically, and the history in a list capped at historyLimit records.
type RedisRateStore struct {
	client       *redis.Client
	prefix       string
	historyLimit int64
	logger       *slog.Logger
}

var (
	_ repository.RateStore     = (*RedisRateStore)(nil)
	_ repository.HistoryReader = (*RedisRateStore)(nil)
)

// NewRedisClient builds a client from the REDIS_* settings.
func NewRedisClient(cfg *config.Redis) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	opt.DialTimeout = cfg.DialTimeout
	opt.ReadTimeout = cfg.ReadTimeout
	opt.WriteTimeout = cfg.WriteTimeout
	return redis.NewClient(opt), nil
}

// NewRedisRateStore creates a new RedisRateStore. A historyLimit <= 0
// keeps every history record.
func NewRedisRateStore(client *redis.Client, prefix string, historyLimit int, logger *slog.Logger) *RedisRateStore {
	return &RedisRateStore{
		client:       client,
		prefix:       prefix,
		historyLimit: int64(historyLimit),
		logger:       logger.With("service", "RedisRateStore"),
	}
}

func (r *RedisRateStore) key(key string) string {
	return r.prefix + key
}

func (r *RedisRateStore) ReadSnapshot(ctx context.Context) (*rate.Snapshot, error) {
	val, err := r.client.Get(ctx, r.key(snapshotKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis snapshot miss")
		return rate.EmptySnapshot(), nil
	}
	if err != nil {
		r.logger.Error("Redis snapshot get error", "error", err)
		return nil, err
	}
	var doc redisSnapshot
	if err := json.Unmarshal(val, &doc); err != nil {
		r.logger.Error("Redis snapshot unmarshal error", "error", err)
		return nil, err
	}
	snap := rate.EmptySnapshot()
	for key, e := range doc.Pairs {
		snap.Pairs[key] = rate.Entry{
			Pair:       rate.NewPair(e.From, e.To),
			Rate:       e.Rate,
			ObservedAt: e.UpdatedAt,
			Source:     e.Source,
		}
	}
	snap.LastRefresh = doc.LastRefresh
	return snap, nil
}

func (r *RedisRateStore) WriteSnapshot(ctx context.Context, snapshot *rate.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrValidation)
	}
	doc := redisSnapshot{
		Pairs:       make(map[string]redisEntry, len(snapshot.Pairs)),
		LastRefresh: snapshot.LastRefresh,
	}
	for key, e := range snapshot.Pairs {
		doc.Pairs[key] = redisEntry{
			From:      e.Pair.From,
			To:        e.Pair.To,
			Rate:      e.Rate,
			UpdatedAt: e.ObservedAt.UTC(),
			Source:    e.Source,
		}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		r.logger.Error("Redis snapshot marshal error", "error", err)
		return err
	}
	if err := r.client.Set(ctx, r.key(snapshotKey), data, 0).Err(); err != nil {
		r.logger.Error("Redis snapshot set error", "error", err)
		return err
	}
	r.logger.Debug("Redis snapshot set", "pairs", len(doc.Pairs))
	return nil
}

func (r *RedisRateStore) AppendHistory(ctx context.Context, records []rate.HistoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]any, len(records))
	for i, rec := range records {
		data, err := json.Marshal(redisHistory{
			ID:        rec.ID,
			From:      rec.From,
			To:        rec.To,
			Rate:      rec.Rate,
			Timestamp: rec.Timestamp,
			Source:    rec.Source,
			Client:    rec.Meta.Client,
		})
		if err != nil {
			return err
		}
		values[i] = data
	}
	key := r.key(historyKey)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if r.historyLimit > 0 {
			pipe.LTrim(ctx, key, -r.historyLimit, -1)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Redis history push error", "error", err)
		return err
	}
	return nil
}

// ReadHistory scans the list from the newest record backwards.
func (r *RedisRateStore) ReadHistory(ctx context.Context, pairKey string, limit int) ([]rate.HistoryRecord, error) {
	vals, err := r.client.LRange(ctx, r.key(historyKey), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	var out []rate.HistoryRecord
	for i := len(vals) - 1; i >= 0; i-- {
		var h redisHistory
		if err := json.Unmarshal([]byte(vals[i]), &h); err != nil {
			return nil, err
		}
		if pairKey != "" && h.From+"_"+h.To != pairKey {
			continue
		}
		out = append(out, rate.HistoryRecord{
			ID:        h.ID,
			From:      h.From,
			To:        h.To,
			Rate:      h.Rate,
			Timestamp: h.Timestamp,
			Source:    h.Source,
			Meta:      rate.HistoryMeta{Client: h.Client},
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
