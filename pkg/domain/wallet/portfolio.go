package wallet

import (
	"sort"

	"github.com/google/uuid"
)

// Portfolio is the set of wallets of one user, at most one per currency.
// It is loaded per operation, mutated in memory and persisted whole.
type Portfolio struct {
	UserID  uuid.UUID
	wallets map[string]*Wallet
}

// NewPortfolio returns an empty portfolio for userID.
func NewPortfolio(userID uuid.UUID) *Portfolio {
	return &Portfolio{UserID: userID, wallets: map[string]*Wallet{}}
}

// Wallet returns the wallet for code, if any.
func (p *Portfolio) Wallet(code string) (*Wallet, bool) {
	w, ok := p.wallets[code]
	return w, ok
}

// AddWallet stores w, replacing any wallet with the same code.
func (p *Portfolio) AddWallet(w *Wallet) {
	p.wallets[w.CurrencyCode] = w
}

// EnsureWallet returns the wallet for code, creating an empty one first if
// needed.
func (p *Portfolio) EnsureWallet(code string) *Wallet {
	if w, ok := p.wallets[code]; ok {
		return w
	}
	w := New(code)
	p.wallets[code] = w
	return w
}

// Wallets returns the wallets sorted by currency code.
func (p *Portfolio) Wallets() []*Wallet {
	out := make([]*Wallet, 0, len(p.wallets))
	for _, w := range p.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrencyCode < out[j].CurrencyCode })
	return out
}

// Balances returns code -> balance.
func (p *Portfolio) Balances() map[string]float64 {
	out := make(map[string]float64, len(p.wallets))
	for code, w := range p.wallets {
		out[code] = w.Balance()
	}
	return out
}

// Clone returns a deep copy, used to stage a trade before persisting it.
func (p *Portfolio) Clone() *Portfolio {
	c := NewPortfolio(p.UserID)
	for code, w := range p.wallets {
		cw := *w
		c.wallets[code] = &cw
	}
	return c
}
