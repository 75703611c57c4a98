package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/noah-isme/checkout-session/internal/resilience"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = &ProviderError{
	Provider:   "breaker",
	Message:    "payment provider unavailable",
	HTTPStatus: http.StatusServiceUnavailable,
	Err:        resilience.ErrOpenCircuit,
}

// Guarded fails fast when the wrapped provider keeps failing.
type Guarded struct {
	Next    Provider
	Breaker *resilience.Breaker
}

// CreateCheckoutSession forwards to Next unless the breaker is open.
func (g Guarded) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	if g.Breaker == nil {
		return g.Next.CreateCheckoutSession(ctx, req)
	}
	var sess Session
	err := g.Breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		sess, callErr = g.Next.CreateCheckoutSession(ctx, req)
		return callErr
	}, countsAgainstProvider)
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return Session{}, ErrUnavailable
	}
	return sess, err
}

// countsAgainstProvider keeps caller mistakes such as declined cards from opening the breaker.
func countsAgainstProvider(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.HTTPStatus >= 400 && pe.HTTPStatus < 500 {
		return false
	}
	return true
}
