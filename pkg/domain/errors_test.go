package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredErrorsUnwrapToSentinels(t *testing.T) {
	insufficient := &InsufficientFundsError{Available: 500, Required: 5_000_000, Code: "USD"}
	wrapped := fmt.Errorf("buy BTC: %w", insufficient)

	assert.ErrorIs(t, wrapped, ErrInsufficientFunds)
	var target *InsufficientFundsError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, 500.0, target.Available)
	assert.Equal(t, 5_000_000.0, target.Required)
	assert.Contains(t, insufficient.Error(), "available 500.0000 USD")

	assert.ErrorIs(t, &CurrencyNotFoundError{Code: "XYZ"}, ErrCurrencyNotFound)
	assert.ErrorIs(t, &RateUnavailableError{From: "BTC", To: "EUR"}, ErrRateUnavailable)
	assert.Contains(t, (&RateUnavailableError{From: "BTC", To: "EUR"}).Error(), "retry")
}

func TestProviderErrorMatchesBoth(t *testing.T) {
	cause := errors.New("timeout")
	err := NewProviderError("coingecko", cause)

	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "provider coingecko: timeout", err.Error())
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&CurrencyNotFoundError{Code: "X"}, "CurrencyNotFound"},
		{fmt.Errorf("x: %w", ErrInvalidAmount), "InvalidAmount"},
		{&InsufficientFundsError{}, "InsufficientFunds"},
		{&RateUnavailableError{}, "RateUnavailable"},
		{ErrPermissionDenied, "PermissionDenied"},
		{ErrAlreadyExists, "AlreadyExists"},
		{errors.New("boom"), "*errors.errorString"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorType(tt.err))
	}
}
