package wallet

import (
	"fmt"
	"math"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/shopspring/decimal"
)

// Wallet is a single-currency balance. The balance never goes negative.
type Wallet struct {
	CurrencyCode string
	balance      decimal.Decimal
}

// New returns an empty wallet for code.
func New(code string) *Wallet {
	return &Wallet{CurrencyCode: code}
}

// FromBalance hydrates a wallet from storage.
func FromBalance(code string, balance float64) (*Wallet, error) {
	if err := checkFinite(balance); err != nil {
		return nil, err
	}
	if balance < 0 {
		return nil, fmt.Errorf("%w: negative balance %v for %s", domain.ErrValidation, balance, code)
	}
	return &Wallet{CurrencyCode: code, balance: decimal.NewFromFloat(balance)}, nil
}

func (w *Wallet) Balance() float64 {
	return w.balance.InexactFloat64()
}

// Deposit credits amount, which must be positive.
func (w *Wallet) Deposit(amount float64) error {
	d, err := positive(amount)
	if err != nil {
		return err
	}
	w.balance = w.balance.Add(d)
	return nil
}

// Withdraw debits amount. If it exceeds the balance the wallet is left
// untouched and an *domain.InsufficientFundsError is returned.
func (w *Wallet) Withdraw(amount float64) error {
	d, err := positive(amount)
	if err != nil {
		return err
	}
	if d.GreaterThan(w.balance) {
		return &domain.InsufficientFundsError{
			Available: w.Balance(),
			Required:  amount,
			Code:      w.CurrencyCode,
		}
	}
	w.balance = w.balance.Sub(d)
	return nil
}

func positive(amount float64) (decimal.Decimal, error) {
	if err := checkFinite(amount); err != nil {
		return decimal.Zero, err
	}
	if amount <= 0 {
		return decimal.Zero, fmt.Errorf("%w: got %v", domain.ErrInvalidAmount, amount)
	}
	return decimal.NewFromFloat(amount), nil
}

func checkFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: got %v", domain.ErrInvalidAmount, v)
	}
	return nil
}
