package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ModePayment is the one-time payment session mode.
const ModePayment = "payment"

// SessionRequest captures everything needed to open a hosted checkout session.
type SessionRequest struct {
	Mode               string
	PaymentMethodTypes []string
	Currency           string
	UnitAmount         int64
	Quantity           int64
	ProductName        string
	ProductImages      []string
	ProductMetadata    map[string]string
	SuccessURL         string
	CancelURL          string
	Locale             string
}

// Session is the provider's view of a created checkout session.
type Session struct {
	ID  string
	URL string
}

// Provider abstracts the single operation required from an upstream payment provider.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
}

// ProviderError is a failure reported by the provider with a caller-safe message.
type ProviderError struct {
	Provider   string
	Message    string
	Code       string
	HTTPStatus int
	Err        error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		if e.Err != nil && e.Err.Error() != e.Message {
			return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return e.Provider + ": provider error"
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message extracts the caller-facing part of a provider failure. For a
// ProviderError only its Message is returned, never the wrapped cause; other
// errors yield err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return strings.TrimSpace(pe.Message)
	}
	return strings.TrimSpace(err.Error())
}

// Validate checks the invariants a session request must satisfy before it leaves the process.
func (r SessionRequest) Validate() error {
	if r.UnitAmount <= 0 {
		return errors.New("unit amount must be positive")
	}
	if r.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if strings.TrimSpace(r.ProductName) == "" {
		return errors.New("product name is required")
	}
	if strings.TrimSpace(r.Currency) == "" {
		return errors.New("currency is required")
	}
	if len(r.ProductImages) > 1 {
		return errors.New("at most one product image is allowed")
	}
	return nil
}
