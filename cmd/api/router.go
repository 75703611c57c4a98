package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-session/internal/common"
	"github.com/noah-isme/checkout-session/internal/config"
	"github.com/noah-isme/checkout-session/internal/health"
	"github.com/noah-isme/checkout-session/internal/obs"
	"github.com/noah-isme/checkout-session/internal/ratelimit"
	"github.com/noah-isme/checkout-session/internal/security"
)

type routerDeps struct {
	Config         *config.Config
	Logger         zerolog.Logger
	Checkout       http.Handler
	Health         health.Handler
	Limiter        ratelimit.Limiter
	HTTPMetrics    *obs.HTTPMetrics
	MetricsHandler http.Handler
	Tracing        bool
}

func newRouter(d routerDeps) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.AppEnv == "production"}.Middleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, "Not Found")
	})

	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}
	if cfg.Obs.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.Obs.PprofUser, cfg.Obs.PprofPass))
	}

	r.Group(func(c chi.Router) {
		c.Use(security.CORS{AllowedOrigin: cfg.Checkout.AllowedOrigin()}.Middleware)
		c.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		if d.Limiter != nil {
			c.Use(ratelimit.Handler{
				Limiter: d.Limiter,
				Config: ratelimit.Config{
					Key:    ratelimit.KeyByIP("checkout"),
					Window: cfg.RateLimit.Window,
					Max:    cfg.RateLimit.Max,
				},
				OnError: func(err error) {
					d.Logger.Warn().Err(err).Msg("rate limiter unavailable")
				},
			}.Middleware)
		}
		c.Handle("/", d.Checkout)
		c.Handle("/api/create-checkout", d.Checkout)
	})

	return r
}
