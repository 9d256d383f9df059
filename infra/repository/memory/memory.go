// Package memory provides in-process stores, used for tests and the
// memory storage driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/domain/user"
	"github.com/amirasaad/valutatrade/pkg/domain/wallet"
	"github.com/amirasaad/valutatrade/pkg/repository"
	"github.com/google/uuid"
)

// RateStore keeps the snapshot behind an atomic pointer so readers never
// see a partially written table.
type RateStore struct {
	snapshot atomic.Pointer[rate.Snapshot]
	mu       sync.Mutex
	history  []rate.HistoryRecord
}

var (
	_ repository.RateStore     = (*RateStore)(nil)
	_ repository.HistoryReader = (*RateStore)(nil)
)

func NewRateStore() *RateStore {
	s := &RateStore{}
	s.snapshot.Store(rate.EmptySnapshot())
	return s
}

func (s *RateStore) ReadSnapshot(_ context.Context) (*rate.Snapshot, error) {
	return s.snapshot.Load().Clone(), nil
}

func (s *RateStore) WriteSnapshot(_ context.Context, snapshot *rate.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrValidation)
	}
	s.snapshot.Store(snapshot.Clone())
	return nil
}

func (s *RateStore) AppendHistory(_ context.Context, records []rate.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, records...)
	return nil
}

// ReadHistory returns the newest records for pairKey (all pairs when
// empty), newest first.
func (s *RateStore) ReadHistory(_ context.Context, pairKey string, limit int) ([]rate.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterHistory(s.history, pairKey, limit), nil
}

func filterHistory(history []rate.HistoryRecord, pairKey string, limit int) []rate.HistoryRecord {
	var out []rate.HistoryRecord
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]
		if pairKey != "" && rate.NewPair(rec.From, rec.To).Key() != pairKey {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// PortfolioRepository stores balances per user.
type PortfolioRepository struct {
	mu         sync.RWMutex
	portfolios map[uuid.UUID]map[string]float64
}

var _ repository.PortfolioRepository = (*PortfolioRepository)(nil)

func NewPortfolioRepository() *PortfolioRepository {
	return &PortfolioRepository{portfolios: map[uuid.UUID]map[string]float64{}}
}

func (r *PortfolioRepository) Read(_ context.Context, userID uuid.UUID) (*wallet.Portfolio, error) {
	r.mu.RLock()
	balances := r.portfolios[userID]
	r.mu.RUnlock()

	p := wallet.NewPortfolio(userID)
	codes := make([]string, 0, len(balances))
	for code := range balances {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		w, err := wallet.FromBalance(code, balances[code])
		if err != nil {
			return nil, err
		}
		p.AddWallet(w)
	}
	return p, nil
}

func (r *PortfolioRepository) Write(_ context.Context, portfolio *wallet.Portfolio) error {
	balances := portfolio.Balances()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portfolios[portfolio.UserID] = balances
	return nil
}

// UserRepository stores users keyed by id and username.
type UserRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*user.User
	byUsername map[string]*user.User
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       map[uuid.UUID]*user.User{},
		byUsername: map[string]*user.User{},
	}
}

func (r *UserRepository) Get(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byUsername[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUsername[u.Username]; exists {
		return fmt.Errorf("username '%s': %w", u.Username, domain.ErrAlreadyExists)
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.byUsername[u.Username] = &cp
	return nil
}
