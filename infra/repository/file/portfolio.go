package file

import (
	"context"
	"fmt"
	"time"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/user"
	"github.com/amirasaad/valutatrade/pkg/domain/wallet"
	"github.com/amirasaad/valutatrade/pkg/repository"
	"github.com/google/uuid"
)

type walletDoc struct {
	CurrencyCode string  `json:"currency_code"`
	Balance      float64 `json:"balance"`
}

type portfolioDoc struct {
	UserID  string               `json:"user_id"`
	Wallets map[string]walletDoc `json:"wallets"`
}

// PortfolioRepository stores all portfolios in portfolios.json.
type PortfolioRepository struct {
	file *jsonFile
}

var _ repository.PortfolioRepository = (*PortfolioRepository)(nil)

func NewPortfolioRepository(dir string) *PortfolioRepository {
	return &PortfolioRepository{file: newJSONFile(dir, PortfoliosFile)}
}

func (r *PortfolioRepository) Read(_ context.Context, userID uuid.UUID) (*wallet.Portfolio, error) {
	docs, err := read[[]portfolioDoc](r.file)
	if err != nil {
		return nil, err
	}
	p := wallet.NewPortfolio(userID)
	for _, d := range docs {
		if d.UserID != userID.String() {
			continue
		}
		for code, wd := range d.Wallets {
			w, err := wallet.FromBalance(code, wd.Balance)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", PortfoliosFile, err)
			}
			p.AddWallet(w)
		}
		break
	}
	return p, nil
}

func (r *PortfolioRepository) Write(_ context.Context, portfolio *wallet.Portfolio) error {
	wallets := make(map[string]walletDoc)
	for code, balance := range portfolio.Balances() {
		wallets[code] = walletDoc{CurrencyCode: code, Balance: balance}
	}
	id := portfolio.UserID.String()
	return update(r.file, func(docs *[]portfolioDoc) error {
		for i := range *docs {
			if (*docs)[i].UserID == id {
				(*docs)[i].Wallets = wallets
				return nil
			}
		}
		*docs = append(*docs, portfolioDoc{UserID: id, Wallets: wallets})
		return nil
	})
}

type userDoc struct {
	UserID           string    `json:"user_id"`
	Username         string    `json:"username"`
	HashedPassword   string    `json:"hashed_password"`
	RegistrationDate time.Time `json:"registration_date"`
}

func (d userDoc) toDomain() (*user.User, error) {
	id, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid user_id %q: %w", UsersFile, d.UserID, err)
	}
	return user.NewUserFromData(id, d.Username, d.HashedPassword, d.RegistrationDate), nil
}

// UserRepository stores users in users.json.
type UserRepository struct {
	file *jsonFile
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository(dir string) *UserRepository {
	return &UserRepository{file: newJSONFile(dir, UsersFile)}
}

func (r *UserRepository) Get(_ context.Context, id uuid.UUID) (*user.User, error) {
	return r.find(func(d userDoc) bool { return d.UserID == id.String() })
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*user.User, error) {
	return r.find(func(d userDoc) bool { return d.Username == username })
}

func (r *UserRepository) find(match func(userDoc) bool) (*user.User, error) {
	docs, err := read[[]userDoc](r.file)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if match(d) {
			return d.toDomain()
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	return update(r.file, func(docs *[]userDoc) error {
		for _, d := range *docs {
			if d.Username == u.Username {
				return fmt.Errorf("username '%s': %w", u.Username, domain.ErrAlreadyExists)
			}
		}
		*docs = append(*docs, userDoc{
			UserID:           u.ID.String(),
			Username:         u.Username,
			HashedPassword:   u.Password,
			RegistrationDate: u.CreatedAt,
		})
		return nil
	})
}
