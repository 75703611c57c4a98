package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/checkout-session/internal/checkout"
	"github.com/noah-isme/checkout-session/internal/config"
	"github.com/noah-isme/checkout-session/internal/health"
	"github.com/noah-isme/checkout-session/internal/obs"
	"github.com/noah-isme/checkout-session/internal/payment"
	"github.com/noah-isme/checkout-session/internal/ratelimit"
	"github.com/noah-isme/checkout-session/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	}

	tracingEnabled := cfg.Obs.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "checkout-session",
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	var redisClient *redis.Client
	var probes []health.Probe
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient = redis.NewClient(redisOpts)
		if err := redisotel.InstrumentTracing(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
		if cfg.Obs.MetricsEnabled {
			if err := redisotel.InstrumentMetrics(redisClient); err != nil {
				logger.Error().Err(err).Msg("instrument redis metrics")
			}
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("ping redis")
		}
		cancel()
		probes = append(probes, health.RedisProbe(redisClient, 300*time.Millisecond))
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		if redisClient != nil {
			limiter = ratelimit.Sliding{Client: redisClient, Prefix: "checkout:ratelimit:"}
		} else {
			limiter = ratelimit.NewMemory("checkout")
		}
	}

	checkoutHandler := checkout.NewHandler(buildProvider(cfg, logger), checkout.NewOptions(cfg.Checkout), logger)

	var httpMetrics *obs.HTTPMetrics
	var metricsHandler http.Handler
	if cfg.Obs.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
		metricsHandler = promhttp.Handler()
	}

	r := newRouter(routerDeps{
		Config:         cfg,
		Logger:         logger,
		Checkout:       checkoutHandler,
		Health:         health.Handler{Probes: probes},
		Limiter:        limiter,
		HTTPMetrics:    httpMetrics,
		MetricsHandler: metricsHandler,
		Tracing:        tracingEnabled,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("variant", cfg.Checkout.Variant).
			Str("provider", cfg.Payment.Provider).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server exited unexpectedly")
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func buildProvider(cfg *config.Config, logger zerolog.Logger) payment.Provider {
	var provider payment.Provider
	switch cfg.Payment.Provider {
	case config.ProviderStub:
		provider = payment.Stub{BaseURL: cfg.Payment.StubBaseURL}
	default:
		provider = payment.NewStripe(payment.StripeConfig{
			SecretKey: cfg.Payment.StripeSecretKey,
			HTTPClient: &http.Client{
				Timeout:   cfg.Payment.Timeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			Logger: logger,
		})
	}
	provider = payment.Instrumented{Next: provider, Name: cfg.Payment.Provider}
	if cfg.Payment.BreakerEnabled {
		breaker := resilience.NewBreaker(cfg.Payment.BreakerMinRequests, cfg.Payment.BreakerFailureRatio, cfg.Payment.BreakerOpenFor).
			WithTarget(cfg.Payment.Provider).
			WithLogger(logger)
		provider = payment.Guarded{Next: provider, Breaker: breaker}
	}
	return provider
}
