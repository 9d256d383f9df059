package repository

import (
	"context"

	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/amirasaad/valutatrade/pkg/domain/user"
	"github.com/amirasaad/valutatrade/pkg/domain/wallet"
	"github.com/google/uuid"
)

// RateStore owns the current rate snapshot and the refresh history.
type RateStore interface {
	// ReadSnapshot returns the current snapshot, or an empty one before the
	// first refresh. The result is never shared with the store.
	ReadSnapshot(ctx context.Context) (*rate.Snapshot, error)
	// WriteSnapshot atomically replaces the whole snapshot.
	WriteSnapshot(ctx context.Context, snapshot *rate.Snapshot) error
	// AppendHistory appends records to the history log.
	AppendHistory(ctx context.Context, records []rate.HistoryRecord) error
}

// HistoryReader is implemented by stores that can list history.
type HistoryReader interface {
	ReadHistory(ctx context.Context, pairKey string, limit int) ([]rate.HistoryRecord, error)
}

// PortfolioRepository loads and persists whole portfolios.
type PortfolioRepository interface {
	// Read returns the portfolio of userID, or an empty one if none exists.
	Read(ctx context.Context, userID uuid.UUID) (*wallet.Portfolio, error)
	// Write replaces the stored portfolio atomically.
	Write(ctx context.Context, portfolio *wallet.Portfolio) error
}

// UserRepository defines the interface for user data access operations.
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	// Create fails with domain.ErrAlreadyExists on a duplicate username.
	Create(ctx context.Context, user *user.User) error
}
