package provider

import (
	"context"

	"github.com/amirasaad/valutatrade/pkg/domain/rate"
)

// RateProvider defines the interface for external exchange rate sources.
type RateProvider interface {
	// Name returns the provider's name for logging and source filtering.
	Name() string

	// Fetch returns the pairs the provider currently publishes, keyed by
	// pair key. Failures are reported as *domain.ProviderError.
	Fetch(ctx context.Context) (map[string]rate.Entry, error)
}

// RateProviderFunc adapts a function to RateProvider.
type RateProviderFunc struct {
	ProviderName string
	FetchFunc    func(ctx context.Context) (map[string]rate.Entry, error)
}

func (f RateProviderFunc) Name() string { return f.ProviderName }

func (f RateProviderFunc) Fetch(ctx context.Context) (map[string]rate.Entry, error) {
	return f.FetchFunc(ctx)
}
