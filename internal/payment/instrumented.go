package payment

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/checkout-session/internal/obs"
)

const tracerName = "github.com/noah-isme/checkout-session/internal/payment"

// Instrumented records a span and Prometheus metrics around every provider call.
type Instrumented struct {
	Next Provider
	Name string
}

// CreateCheckoutSession implements Provider.
func (i Instrumented) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "payment.create_checkout_session",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("payment.provider", i.Name),
			attribute.String("payment.currency", req.Currency),
			attribute.Int64("payment.unit_amount", req.UnitAmount),
		),
	)
	defer span.End()

	start := time.Now()
	sess, err := i.Next.CreateCheckoutSession(ctx, req)
	elapsed := obs.DurationMillis(time.Since(start))

	result := "success"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, Message(err))
	} else {
		span.SetAttributes(attribute.String("payment.session_id", sess.ID))
	}
	if obs.ProviderRequestsTotal != nil {
		obs.ProviderRequestsTotal.WithLabelValues(i.Name, result).Inc()
	}
	if obs.ProviderLatency != nil {
		obs.ProviderLatency.WithLabelValues(i.Name).Observe(elapsed)
	}
	return sess, err
}
