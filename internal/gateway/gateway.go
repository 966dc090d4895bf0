// Package gateway wraps external payment providers behind one capability
// interface. Providers are registered at startup and resolved by name. This
// layer never touches the wallet ledger and never retries; retry policy
// belongs to the caller.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrBadSignature means an inbound callback failed authentication.
	ErrBadSignature = errors.New("gateway signature mismatch")
	// ErrUnknownGateway means no provider is registered under that name.
	ErrUnknownGateway = errors.New("unknown gateway")
)

// Charge is the result of initiating a payment with a provider.
type Charge struct {
	// ExternalID is the provider-side reference; the webhook correlates on it.
	ExternalID string `json:"external_id"`
	// ClientHandle is what the paying client needs to continue (checkout
	// URL, authorization code).
	ClientHandle string `json:"client_handle"`
}

// CallbackResult is the authenticated outcome carried by a webhook payload.
type CallbackResult struct {
	ExternalID string
	Succeeded  bool
	Amount     int64
	Currency   string
}

// Payout is the result of initiating a transfer to a seller's destination.
type Payout struct {
	ExternalID string
	Status     string
}

// Provider is the uniform contract each payment gateway implements.
type Provider interface {
	Name() string
	CreateCharge(ctx context.Context, amount int64, currency string) (Charge, error)
	VerifyAndCapture(payload []byte, signature string) (CallbackResult, error)
	CreatePayout(ctx context.Context, amount int64, currency, destination string) (Payout, error)
}

// Registry holds the providers resolved at startup. Registration happens
// once in main; lookups after that are read-only and safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Resolve(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, name)
	}
	return p, nil
}

// Names returns registered provider names, sorted, for health reporting.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
