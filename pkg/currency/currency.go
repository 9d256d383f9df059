package currency

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/amirasaad/valutatrade/pkg/domain"
)

const (
	// DefaultCurrency is the reference currency every trade settles in (USD)
	DefaultCurrency = "USD"
	// MinCodeLength and MaxCodeLength bound a currency code
	MinCodeLength = 2
	MaxCodeLength = 5
)

// Kind tags a Currency as fiat or crypto.
type Kind int

const (
	KindFiat Kind = iota + 1
	KindCrypto
)

func (k Kind) String() string {
	switch k {
	case KindFiat:
		return "FIAT"
	case KindCrypto:
		return "CRYPTO"
	default:
		return "UNKNOWN"
	}
}

// ParseKind maps "fiat" and "crypto" (any case) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fiat":
		return KindFiat, nil
	case "crypto":
		return KindCrypto, nil
	default:
		return 0, fmt.Errorf("%w: unknown currency kind %q", domain.ErrValidation, s)
	}
}

// FiatInfo is carried by fiat currencies only.
type FiatInfo struct {
	IssuingCountry string
}

// CryptoInfo is carried by crypto currencies only.
type CryptoInfo struct {
	Algorithm string
	MarketCap float64
}

// Currency is a tagged variant: exactly one of Fiat or Crypto is set,
// matching Kind.
type Currency struct {
	Code   string
	Name   string
	Kind   Kind
	Fiat   *FiatInfo
	Crypto *CryptoInfo
}

// NewFiat builds a fiat currency.
func NewFiat(code, name, issuingCountry string) (Currency, error) {
	c := Currency{
		Code: code,
		Name: name,
		Kind: KindFiat,
		Fiat: &FiatInfo{IssuingCountry: issuingCountry},
	}
	return c, c.Validate()
}

// NewCrypto builds a crypto currency.
func NewCrypto(code, name, algorithm string, marketCap float64) (Currency, error) {
	c := Currency{
		Code:   code,
		Name:   name,
		Kind:   KindCrypto,
		Crypto: &CryptoInfo{Algorithm: algorithm, MarketCap: marketCap},
	}
	return c, c.Validate()
}

// Validate checks the code format, the name and that the variant payload
// matches the kind.
func (c Currency) Validate() error {
	if !IsValidCode(c.Code) {
		return fmt.Errorf("%w: invalid currency code %q", domain.ErrValidation, c.Code)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: currency %s has an empty name", domain.ErrValidation, c.Code)
	}
	switch c.Kind {
	case KindFiat:
		if c.Fiat == nil || c.Crypto != nil {
			return fmt.Errorf("%w: fiat currency %s needs fiat info only", domain.ErrValidation, c.Code)
		}
	case KindCrypto:
		if c.Crypto == nil || c.Fiat != nil {
			return fmt.Errorf("%w: crypto currency %s needs crypto info only", domain.ErrValidation, c.Code)
		}
		if c.Crypto.MarketCap < 0 {
			return fmt.Errorf("%w: crypto currency %s has a negative market cap", domain.ErrValidation, c.Code)
		}
	default:
		return fmt.Errorf("%w: currency %s has no kind", domain.ErrValidation, c.Code)
	}
	return nil
}

// DisplayInfo renders a one-line description for listings.
func (c Currency) DisplayInfo() string {
	switch c.Kind {
	case KindFiat:
		return fmt.Sprintf("[FIAT] %s - %s (Issuing: %s)", c.Code, c.Name, c.Fiat.IssuingCountry)
	case KindCrypto:
		return fmt.Sprintf(
			"[CRYPTO] %s - %s (Algo: %s, MCAP: %.2e)",
			c.Code, c.Name, c.Crypto.Algorithm, c.Crypto.MarketCap,
		)
	default:
		return fmt.Sprintf("[%s] %s - %s", c.Kind, c.Code, c.Name)
	}
}

// IsValidCode reports whether code is 2-5 uppercase characters without
// whitespace.
func IsValidCode(code string) bool {
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return false
	}
	for _, r := range code {
		if unicode.IsSpace(r) || unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// NormalizeCode trims and upper-cases code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
