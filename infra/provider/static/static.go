// Package static serves a fixed rate table. It backs offline development
// and tests.
package static

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/rate"
)

const (
	Name   = "static"
	Source = "Static"
)

// Provider returns the same rates on every fetch, stamped with the fetch
// time. An error set with Fail is returned instead until cleared.
type Provider struct {
	name  string
	mu    sync.Mutex
	rates map[string]float64
	err   error
	calls int
}

// New creates a provider named name serving rates keyed by pair key.
func New(name string, rates map[string]float64) *Provider {
	cp := make(map[string]float64, len(rates))
	for k, v := range rates {
		cp[k] = v
	}
	return &Provider{name: name, rates: cp}
}

// Parse builds rates from "BTC_USD:59337.21,EUR_USD:1.0786".
func Parse(s string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, val, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("%w: invalid static rate %q", domain.ErrValidation, item)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if _, err := rate.ParseKey(key); err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid static rate %q", domain.ErrValidation, item)
		}
		out[key] = v
	}
	return out, nil
}

func (p *Provider) Name() string { return p.name }

// Set replaces one rate.
func (p *Provider) Set(key string, v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates[key] = v
}

// Fail makes subsequent fetches return err; nil restores normal fetches.
func (p *Provider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Calls returns how many times Fetch ran.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Provider) Fetch(ctx context.Context) (map[string]rate.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if err := ctx.Err(); err != nil {
		return nil, domain.NewProviderError(p.name, err)
	}
	if p.err != nil {
		return nil, domain.NewProviderError(p.name, p.err)
	}
	now := time.Now().UTC()
	out := make(map[string]rate.Entry, len(p.rates))
	for key, v := range p.rates {
		pair, err := rate.ParseKey(key)
		if err != nil {
			return nil, domain.NewProviderError(p.name, err)
		}
		out[key] = rate.Entry{Pair: pair, Rate: v, ObservedAt: now, Source: Source}
	}
	return out, nil
}
