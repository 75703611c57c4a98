package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/checkout-session/internal/obs"
)

// StripeConfig configures the Stripe checkout adapter.
type StripeConfig struct {
	SecretKey string
	// HTTPClient defaults to an otelhttp-instrumented client.
	HTTPClient *http.Client
	// BaseURL overrides the API host, used by tests.
	BaseURL string
	Logger  zerolog.Logger
}

// Stripe creates hosted checkout sessions through the Stripe API.
type Stripe struct {
	client session.Client
}

// NewStripe builds a Stripe adapter with its own backend. The backend never retries.
func NewStripe(cfg StripeConfig) *Stripe {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     obs.StripeLogger{Logger: cfg.Logger},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		backendCfg.URL = stripe.String(base)
	}
	return &Stripe{
		client: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
	}
}

// CreateCheckoutSession issues POST /v1/checkout/sessions with a single price_data line item.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	if err := req.Validate(); err != nil {
		return Session{}, &ProviderError{Provider: "stripe", Message: err.Error(), HTTPStatus: http.StatusBadRequest, Err: err}
	}

	images := make([]*string, 0, len(req.ProductImages))
	for _, img := range req.ProductImages {
		images = append(images, stripe.String(img))
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(req.Mode),
		PaymentMethodTypes: stripe.StringSlice(req.PaymentMethodTypes),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:     stripe.String(req.ProductName),
						Images:   images,
						Metadata: req.ProductMetadata,
					},
				},
				Quantity: stripe.Int64(req.Quantity),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.Locale != "" {
		params.Locale = stripe.String(req.Locale)
	}
	params.Context = ctx

	cs, err := s.client.New(params)
	if err != nil {
		return Session{}, translateStripeError(err)
	}
	return Session{ID: cs.ID, URL: cs.URL}, nil
}

// msgStripeConnection is shown to callers in place of transport error text.
const msgStripeConnection = "An error occurred with our connection to Stripe."

func translateStripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &ProviderError{
			Provider:   "stripe",
			Message:    se.Msg,
			Code:       string(se.Code),
			HTTPStatus: se.HTTPStatusCode,
			Err:        err,
		}
	}
	return &ProviderError{Provider: "stripe", Message: msgStripeConnection, Err: err}
}
