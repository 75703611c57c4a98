package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcome labels.
const (
	ResultCreated          = "created"
	ResultInvalid          = "invalid"
	ResultProviderError    = "provider_error"
	ResultMethodNotAllowed = "method_not_allowed"
	ResultPreflight        = "preflight"
)

var (
	domainOnce sync.Once

	// CheckoutSessionTotal counts checkout endpoint outcomes.
	CheckoutSessionTotal *prometheus.CounterVec
	// CheckoutAmountMinor records accepted amounts in minor currency units.
	CheckoutAmountMinor *prometheus.HistogramVec
	// ProviderRequestsTotal counts outbound payment provider calls by outcome.
	ProviderRequestsTotal *prometheus.CounterVec
	// ProviderLatency records payment provider call latency in milliseconds.
	ProviderLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
// Subsequent calls are no-ops.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutSessionTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_session_total",
			Help:      "Count of checkout session endpoint outcomes.",
		}, []string{"result"}))
		CheckoutAmountMinor = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_amount_minor",
			Help:      "Distribution of accepted checkout amounts in minor currency units.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}, []string{"currency"}))
		ProviderRequestsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_provider_requests_total",
			Help:      "Count of payment provider session creation calls by outcome.",
		}, []string{"provider", "result"}))
		ProviderLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_provider_duration_ms",
			Help:      "Latency of payment provider session creation calls in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"provider"}))
	})
}

// RecordCheckout increments the checkout outcome counter when domain metrics are registered.
func RecordCheckout(result string) {
	if CheckoutSessionTotal == nil {
		return
	}
	CheckoutSessionTotal.WithLabelValues(result).Inc()
}

// RecordAmount observes an accepted amount when domain metrics are registered.
func RecordAmount(currency string, minor int64) {
	if CheckoutAmountMinor == nil {
		return
	}
	CheckoutAmountMinor.WithLabelValues(currency).Observe(float64(minor))
}
