package rate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/amirasaad/valutatrade/pkg/domain"
)

// IdentitySource is reported for same-currency quotes.
const IdentitySource = "identity"

// Pair is a directional currency pair.
type Pair struct {
	From string
	To   string
}

func NewPair(from, to string) Pair {
	return Pair{From: from, To: to}
}

// Key returns the storage key, e.g. "BTC_USD".
func (p Pair) Key() string {
	return p.From + "_" + p.To
}

func (p Pair) Inverse() Pair {
	return Pair{From: p.To, To: p.From}
}

func (p Pair) String() string {
	return p.From + "->" + p.To
}

// ParseKey splits a "FROM_TO" key.
func ParseKey(key string) (Pair, error) {
	from, to, ok := strings.Cut(key, "_")
	if !ok || from == "" || to == "" || strings.Contains(to, "_") {
		return Pair{}, fmt.Errorf("%w: invalid pair key %q", domain.ErrValidation, key)
	}
	return Pair{From: from, To: to}, nil
}

// Entry is one observed rate: 1 unit of Pair.From buys Rate units of Pair.To.
type Entry struct {
	Pair       Pair
	Rate       float64
	ObservedAt time.Time
	Source     string
}

// Validate rejects non-positive and non-finite rates.
func (e Entry) Validate() error {
	if e.Rate <= 0 || math.IsNaN(e.Rate) || math.IsInf(e.Rate, 0) {
		return fmt.Errorf("%w: invalid rate %v for %s", domain.ErrValidation, e.Rate, e.Pair.Key())
	}
	return nil
}

// IsFresh reports whether the entry is no older than ttl at now.
func (e Entry) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.ObservedAt) <= ttl
}

// Quote is the answer to a lookup. Inverted is set when the rate was
// derived from the reverse pair.
type Quote struct {
	From       string
	To         string
	Rate       float64
	ObservedAt time.Time
	Source     string
	Inverted   bool
}

// Reverse returns the quote for the opposite direction.
func (q Quote) Reverse() Quote {
	return Quote{
		From:       q.To,
		To:         q.From,
		Rate:       1 / q.Rate,
		ObservedAt: q.ObservedAt,
		Source:     q.Source,
		Inverted:   !q.Inverted,
	}
}

// IsFresh reports whether the quote is no older than ttl at now.
func (q Quote) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(q.ObservedAt) <= ttl
}

// RefreshResult is returned by both the scheduled and the on-demand refresh.
type RefreshResult struct {
	TotalPairsUpdated int
	LastRefresh       time.Time
	FailedProviders   []string
}

// HistoryMeta describes where a history record came from.
type HistoryMeta struct {
	Client string
}

// HistoryRecord is an append-only audit row written once per pair per
// refresh.
type HistoryRecord struct {
	ID        string
	From      string
	To        string
	Rate      float64
	Timestamp time.Time
	Source    string
	Meta      HistoryMeta
}

// NewHistoryRecord derives the record for entry stamped at ts.
func NewHistoryRecord(entry Entry, ts time.Time, client string) HistoryRecord {
	stamp := ts.UTC().Format("2006-01-02T15:04:05Z")
	return HistoryRecord{
		ID:        entry.Pair.Key() + "_" + stamp,
		From:      entry.Pair.From,
		To:        entry.Pair.To,
		Rate:      entry.Rate,
		Timestamp: ts.UTC(),
		Source:    entry.Source,
		Meta:      HistoryMeta{Client: client},
	}
}
