package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized is returned when credentials do not match
	ErrUnauthorized = errors.New("unauthorized")
)

// Trading errors
var (
	// ErrCurrencyNotFound is returned for codes the registry does not know
	ErrCurrencyNotFound = errors.New("unknown currency")
	// ErrInvalidAmount is returned when an amount is not a positive number
	ErrInvalidAmount = errors.New("amount must be a positive number")
	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrRateUnavailable is returned when no rate exists even after a refresh
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	// ErrProviderFailure marks a failed provider fetch
	ErrProviderFailure = errors.New("rate provider failure")
	// ErrPermissionDenied is returned when no authenticated user is present
	ErrPermissionDenied = errors.New("permission denied: login required")
)

// CurrencyNotFoundError names the offending code.
type CurrencyNotFoundError struct {
	Code string
}

func (e *CurrencyNotFoundError) Error() string {
	return fmt.Sprintf("unknown currency '%s'", e.Code)
}

func (e *CurrencyNotFoundError) Unwrap() error { return ErrCurrencyNotFound }

// InsufficientFundsError carries the balance that was available and the
// amount that was required, both in Code.
type InsufficientFundsError struct {
	Available float64
	Required  float64
	Code      string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"insufficient funds: available %.4f %s, required %.4f %s",
		e.Available, e.Code, e.Required, e.Code,
	)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// RateUnavailableError is returned by lookups that found nothing after the
// on-demand refresh. Callers may retry once providers recover.
type RateUnavailableError struct {
	From string
	To   string
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf(
		"rate %s->%s unavailable: retry later or run update-rates",
		e.From, e.To,
	)
}

func (e *RateUnavailableError) Unwrap() error { return ErrRateUnavailable }

// ProviderError wraps a failure of a single rate provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() []error { return []error{ErrProviderFailure, e.Err} }

// NewProviderError wraps err as a failure of provider.
func NewProviderError(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}

// ErrorType returns a short name for err, used in action logs.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCurrencyNotFound):
		return "CurrencyNotFound"
	case errors.Is(err, ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.Is(err, ErrRateUnavailable):
		return "RateUnavailable"
	case errors.Is(err, ErrProviderFailure):
		return "ProviderFailure"
	case errors.Is(err, ErrPermissionDenied):
		return "PermissionDenied"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrAlreadyExists):
		return "AlreadyExists"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	default:
		return fmt.Sprintf("%T", err)
	}
}
