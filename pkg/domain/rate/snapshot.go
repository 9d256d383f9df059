package rate

import (
	"sort"
	"strings"
	"time"
)

// Snapshot is the whole rate table. It is replaced as a unit and never
// edited after it has been handed to a store.
type Snapshot struct {
	Pairs       map[string]Entry
	LastRefresh *time.Time
}

// NewSnapshot builds a snapshot over pairs stamped with refreshed.
func NewSnapshot(pairs map[string]Entry, refreshed time.Time) *Snapshot {
	if pairs == nil {
		pairs = map[string]Entry{}
	}
	return &Snapshot{Pairs: pairs, LastRefresh: &refreshed}
}

// EmptySnapshot is what a store returns before the first refresh.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Pairs: map[string]Entry{}}
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Pairs)
}

// Get returns the entry stored under key, treating non-positive rates as
// absent.
func (s *Snapshot) Get(key string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.Pairs[key]
	if !ok || e.Rate <= 0 {
		return Entry{}, false
	}
	return e, true
}

// Resolve finds from->to directly, or inverts to->from. A present direct
// entry always wins over the inverse, whatever its age.
func (s *Snapshot) Resolve(from, to string) (Quote, bool) {
	p := NewPair(from, to)
	if e, ok := s.Get(p.Key()); ok {
		return Quote{
			From:       from,
			To:         to,
			Rate:       e.Rate,
			ObservedAt: e.ObservedAt,
			Source:     e.Source,
		}, true
	}
	if e, ok := s.Get(p.Inverse().Key()); ok {
		return Quote{
			From:       from,
			To:         to,
			Rate:       1 / e.Rate,
			ObservedAt: e.ObservedAt,
			Source:     e.Source,
			Inverted:   true,
		}, true
	}
	return Quote{}, false
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return EmptySnapshot()
	}
	pairs := make(map[string]Entry, len(s.Pairs))
	for k, v := range s.Pairs {
		pairs[k] = v
	}
	out := &Snapshot{Pairs: pairs}
	if s.LastRefresh != nil {
		t := *s.LastRefresh
		out.LastRefresh = &t
	}
	return out
}

// Filter returns the entries whose base or quote is code, sorted by key.
// An empty code returns every entry.
func (s *Snapshot) Filter(code string) []Entry {
	if s == nil {
		return nil
	}
	code = strings.ToUpper(code)
	var out []Entry
	for key, e := range s.Pairs {
		if code != "" && !strings.HasPrefix(key, code+"_") && !strings.HasSuffix(key, "_"+code) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair.Key() < out[j].Pair.Key() })
	return out
}

// TopN sorts entries by rate descending and keeps at most n. n <= 0 keeps
// all entries in their current order.
func TopN(entries []Entry, n int) []Entry {
	if n <= 0 {
		return entries
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rate > sorted[j].Rate })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
