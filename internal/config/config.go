package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Checkout variants select a preset of payment methods, currency, locale and redirect paths.
const (
	VariantFull    = "full"
	VariantMinimal = "minimal"
)

// Payment providers.
const (
	ProviderStripe = "stripe"
	ProviderStub   = "stub"
)

// SessionIDPlaceholder is substituted by the provider with the created session id.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// Checkout holds the settings that shape the outbound session request.
type Checkout struct {
	Variant             string
	PaymentMethods      []string
	Currency            string
	Locale              string
	FrontendURL         string
	SuccessPath         string
	CancelPath          string
	RedirectFromOrigin  bool
	SanitizeImages      bool
	ProviderErrorStatus int
}

// Payment configures the outbound provider.
type Payment struct {
	Provider            string
	StripeSecretKey     string
	StubBaseURL         string
	Timeout             time.Duration
	BreakerEnabled      bool
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
}

// RateLimit configures per-client throttling of the checkout endpoint.
type RateLimit struct {
	Enabled bool
	Max     int
	Window  time.Duration
}

// Obs configures logging, metrics and tracing.
type Obs struct {
	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
	PprofEnabled     bool
	PprofUser        string
	PprofPass        string
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv          string
	Port            string
	RedisURL        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	BodyLimitBytes  int64
	SecurityHeaders bool

	Checkout  Checkout
	Payment   Payment
	RateLimit RateLimit
	Obs       Obs
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:          valueOrDefault(k.String("APP_ENV"), "development"),
		Port:            valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:        strings.TrimSpace(k.String("REDIS_URL")),
		ReadTimeout:     parseDuration(k.String("HTTP_READ_TIMEOUT"), "5s"),
		WriteTimeout:    parseDuration(k.String("HTTP_WRITE_TIMEOUT"), "30s"),
		ShutdownTimeout: parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		BodyLimitBytes:  int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64<<10)),
		SecurityHeaders: parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),
		Payment: Payment{
			Provider:            strings.ToLower(valueOrDefault(k.String("PAYMENT_PROVIDER"), ProviderStripe)),
			StripeSecretKey:     strings.TrimSpace(k.String("STRIPE_SECRET_KEY")),
			StubBaseURL:         valueOrDefault(k.String("PAYMENT_STUB_BASE_URL"), "https://checkout.stub.local/pay"),
			Timeout:             parseDuration(k.String("PAYMENT_TIMEOUT"), "20s"),
			BreakerEnabled:      parseBool(k.String("PAYMENT_BREAKER_ENABLED"), false),
			BreakerMinRequests:  parseInt(k.String("PAYMENT_BREAKER_MIN_REQUESTS"), 5),
			BreakerFailureRatio: parseFloat(k.String("PAYMENT_BREAKER_FAILURE_RATIO"), 0.5),
			BreakerOpenFor:      parseDuration(k.String("PAYMENT_BREAKER_OPEN_FOR"), "30s"),
		},
		RateLimit: RateLimit{
			Enabled: parseBool(k.String("RATE_LIMIT_ENABLED"), false),
			Max:     parseInt(k.String("RATE_LIMIT_MAX"), 30),
			Window:  parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		},
		Obs: Obs{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "checkout"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
			PprofEnabled:     parseBool(k.String("OBS_ENABLE_PPROF"), false),
			PprofUser:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
			PprofPass:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		},
	}

	checkout, err := loadCheckout(k)
	if err != nil {
		return nil, err
	}
	cfg.Checkout = checkout

	switch cfg.Payment.Provider {
	case ProviderStripe:
		if cfg.Payment.StripeSecretKey == "" {
			return nil, errors.New("STRIPE_SECRET_KEY is required")
		}
	case ProviderStub:
	default:
		return nil, fmt.Errorf("unsupported PAYMENT_PROVIDER %q", cfg.Payment.Provider)
	}

	return cfg, nil
}

func loadCheckout(k *koanf.Koanf) (Checkout, error) {
	variant := strings.ToLower(valueOrDefault(k.String("CHECKOUT_VARIANT"), VariantFull))
	c, err := preset(variant)
	if err != nil {
		return Checkout{}, err
	}

	c.FrontendURL = strings.TrimRight(strings.TrimSpace(k.String("FRONTEND_URL")), "/")
	if methods := splitAndTrim(k.String("CHECKOUT_PAYMENT_METHODS")); len(methods) > 0 {
		c.PaymentMethods = methods
	}
	if v := strings.TrimSpace(k.String("CHECKOUT_CURRENCY")); v != "" {
		c.Currency = strings.ToLower(v)
	}
	if k.Exists("CHECKOUT_LOCALE") {
		c.Locale = strings.TrimSpace(k.String("CHECKOUT_LOCALE"))
	}
	if v := strings.TrimSpace(k.String("CHECKOUT_SUCCESS_PATH")); v != "" {
		c.SuccessPath = v
	}
	if v := strings.TrimSpace(k.String("CHECKOUT_CANCEL_PATH")); v != "" {
		c.CancelPath = v
	}
	c.SanitizeImages = parseBool(k.String("CHECKOUT_SANITIZE_IMAGES"), c.SanitizeImages)
	c.ProviderErrorStatus = parseInt(k.String("CHECKOUT_PROVIDER_ERROR_STATUS"), c.ProviderErrorStatus)
	if c.ProviderErrorStatus < 400 || c.ProviderErrorStatus > 599 {
		return Checkout{}, fmt.Errorf("CHECKOUT_PROVIDER_ERROR_STATUS must be a 4xx or 5xx status, got %d", c.ProviderErrorStatus)
	}
	c.RedirectFromOrigin = c.FrontendURL == ""

	return c, nil
}

func preset(variant string) (Checkout, error) {
	switch variant {
	case VariantFull:
		return Checkout{
			Variant:             VariantFull,
			PaymentMethods:      []string{"card", "p24", "blik"},
			Currency:            "pln",
			Locale:              "pl",
			SuccessPath:         "/pages/thank-you?session_id=" + SessionIDPlaceholder,
			CancelPath:          "/cart",
			SanitizeImages:      true,
			ProviderErrorStatus: http.StatusInternalServerError,
		}, nil
	case VariantMinimal:
		return Checkout{
			Variant:             VariantMinimal,
			PaymentMethods:      []string{"card"},
			Currency:            "usd",
			SuccessPath:         "/success?session_id=" + SessionIDPlaceholder,
			CancelPath:          "/cancel",
			SanitizeImages:      true,
			ProviderErrorStatus: http.StatusBadRequest,
		}, nil
	default:
		return Checkout{}, fmt.Errorf("unsupported CHECKOUT_VARIANT %q", variant)
	}
}

// AllowedOrigin is the value echoed in Access-Control-Allow-Origin.
func (c Checkout) AllowedOrigin() string {
	if c.FrontendURL == "" {
		return "*"
	}
	return c.FrontendURL
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return parsed
	}
	return fallback
}

func parseFloat(value string, fallback float64) float64 {
	if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return parsed
	}
	return fallback
}

// LoadForTests allows tests to override environment variables without touching the real environment.
// An empty value unsets the variable for the duration of the load.
func LoadForTests(vars map[string]string) (*Config, error) {
	original := make(map[string]*string, len(vars))
	for key := range vars {
		if prev, ok := os.LookupEnv(key); ok {
			original[key] = &prev
		} else {
			original[key] = nil
		}
		if err := setEnvVar(key, vars[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]*string) error {
	var errs []error
	for key, value := range values {
		var err error
		if value == nil {
			err = os.Unsetenv(key)
		} else {
			err = os.Setenv(key, *value)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %w", errors.Join(errs...))
	}
	return nil
}
