package currency

import (
	"fmt"
	"sort"
	"sync"

	"github.com/amirasaad/valutatrade/pkg/domain"
)

// Registry is the set of currencies the hub knows about. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	currencies map[string]Currency
}

// NewRegistry creates a registry holding the given currencies.
func NewRegistry(currencies ...Currency) (*Registry, error) {
	r := &Registry{currencies: make(map[string]Currency, len(currencies))}
	for _, c := range currencies {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a currency.
func (r *Registry) Register(c Currency) error {
	c.Code = NormalizeCode(c.Code)
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currencies[c.Code] = c
	return nil
}

// Get resolves code after normalization.
func (r *Registry) Get(code string) (Currency, error) {
	normalized := NormalizeCode(code)
	if !IsValidCode(normalized) {
		return Currency{}, &domain.CurrencyNotFoundError{Code: code}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.currencies[normalized]
	if !ok {
		return Currency{}, &domain.CurrencyNotFoundError{Code: normalized}
	}
	return c, nil
}

// Normalize returns the canonical form of code, or CurrencyNotFound.
func (r *Registry) Normalize(code string) (string, error) {
	c, err := r.Get(code)
	if err != nil {
		return "", err
	}
	return c.Code, nil
}

// IsSupported reports whether code resolves.
func (r *Registry) IsSupported(code string) bool {
	_, err := r.Get(code)
	return err == nil
}

// List returns all currencies sorted by code.
func (r *Registry) List() []Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Currency, 0, len(r.currencies))
	for _, c := range r.currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Codes returns the supported codes sorted.
func (r *Registry) Codes() []string {
	list := r.List()
	codes := make([]string, len(list))
	for i, c := range list {
		codes[i] = c.Code
	}
	return codes
}

func (r *Registry) String() string {
	return fmt.Sprintf("Registry%v", r.Codes())
}
