package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/user"
	"github.com/amirasaad/valutatrade/pkg/domain/wallet"
	"github.com/amirasaad/valutatrade/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type portfolioRepository struct {
	db *gorm.DB
}

// NewPortfolioRepository returns a PortfolioRepository over the wallets
// table.
func NewPortfolioRepository(db *gorm.DB) repository.PortfolioRepository {
	return &portfolioRepository{db: db}
}

func (r *portfolioRepository) Read(ctx context.Context, userID uuid.UUID) (*wallet.Portfolio, error) {
	var rows []Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read portfolio: %w", err)
	}
	p := wallet.NewPortfolio(userID)
	for _, row := range rows {
		w, err := wallet.FromBalance(row.CurrencyCode, row.Balance)
		if err != nil {
			return nil, err
		}
		p.AddWallet(w)
	}
	return p, nil
}

// Write replaces all wallet rows of the user inside one transaction.
func (r *portfolioRepository) Write(ctx context.Context, portfolio *wallet.Portfolio) error {
	rows := make([]Wallet, 0)
	for _, w := range portfolio.Wallets() {
		rows = append(rows, Wallet{
			UserID:       portfolio.UserID,
			CurrencyCode: w.CurrencyCode,
			Balance:      w.Balance(),
		})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", portfolio.UserID).Delete(&Wallet{}).Error; err != nil {
			return fmt.Errorf("failed to clear portfolio: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to write portfolio: %w", err)
		}
		return nil
	})
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a UserRepository over the users table.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var m User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return user.NewUserFromData(m.ID, m.Username, m.Password, m.CreatedAt), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	var m User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&m).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return user.NewUserFromData(m.ID, m.Username, m.Password, m.CreatedAt), nil
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	m := User{
		ID:        u.ID,
		Username:  u.Username,
		Password:  u.Password,
		CreatedAt: u.CreatedAt,
	}
	err := r.db.WithContext(ctx).Create(&m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("username '%s': %w", u.Username, domain.ErrAlreadyExists)
	}
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
