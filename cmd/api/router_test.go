package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-session/internal/checkout"
	"github.com/noah-isme/checkout-session/internal/config"
	"github.com/noah-isme/checkout-session/internal/health"
	"github.com/noah-isme/checkout-session/internal/obs"
	"github.com/noah-isme/checkout-session/internal/payment"
	"github.com/noah-isme/checkout-session/internal/ratelimit"
)

func testRouter(t *testing.T, env map[string]string) http.Handler {
	t.Helper()
	vars := map[string]string{
		"PAYMENT_PROVIDER":      "stub",
		"PAYMENT_STUB_BASE_URL": "https://pay.test",
		"STRIPE_SECRET_KEY":     "",
		"FRONTEND_URL":          "https://lavorabutik.com",
		"RATE_LIMIT_MAX":        "2",
		"BODY_LIMIT_BYTES":      "256",
	}
	for k, v := range env {
		vars[k] = v
	}
	cfg, err := config.LoadForTests(vars)
	require.NoError(t, err)

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewMemory(t.Name())
	}
	reg := prometheus.NewRegistry()
	provider := payment.Stub{BaseURL: cfg.Payment.StubBaseURL, NewID: func() string { return "fixed" }}
	return newRouter(routerDeps{
		Config:         cfg,
		Logger:         zerolog.Nop(),
		Checkout:       checkout.NewHandler(provider, checkout.NewOptions(cfg.Checkout), zerolog.Nop()),
		Health:         health.Handler{},
		Limiter:        limiter,
		HTTPMetrics:    obs.NewHTTPMetrics("router_test", nil, reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:4000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterCreatesSessionOnBothPaths(t *testing.T) {
	h := testRouter(t, map[string]string{"RATE_LIMIT_ENABLED": "false"})
	body := `{"product_id":"p1","product_title":"Widget","product_price":19.99}`

	for _, path := range []string{"/", "/api/create-checkout"} {
		rr := do(h, http.MethodPost, path, body)
		require.Equal(t, http.StatusOK, rr.Code, path)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Equal(t, "https://pay.test/cs_stub_fixed", resp["url"])
		require.Equal(t, "https://lavorabutik.com", rr.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		require.NotEmpty(t, rr.Header().Get("Content-Type"))
	}
}

func TestRouterPreflightAndMethods(t *testing.T) {
	h := testRouter(t, nil)

	rr := do(h, http.MethodOptions, "/api/create-checkout", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "POST, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))

	rr = do(h, http.MethodGet, "/api/create-checkout", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.JSONEq(t, `{"error":"Method Not Allowed"}`, rr.Body.String())
}

func TestRouterRateLimitKeepsCORS(t *testing.T) {
	h := testRouter(t, map[string]string{"RATE_LIMIT_ENABLED": "true"})
	body := `{"product_id":"p1","product_title":"Widget","product_price":1}`

	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/", body).Code)
	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/", body).Code)

	rr := do(h, http.MethodPost, "/", body)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.JSONEq(t, `{"error":"rate limit exceeded"}`, rr.Body.String())
	require.Equal(t, "https://lavorabutik.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterBodyLimit(t *testing.T) {
	h := testRouter(t, nil)
	rr := do(h, http.MethodPost, "/", `{"product_title":"`+strings.Repeat("x", 512)+`"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.JSONEq(t, `{"error":"request entity too large"}`, rr.Body.String())
}

func TestRouterOperationalRoutes(t *testing.T) {
	h := testRouter(t, nil)

	rr := do(h, http.MethodGet, "/health/live", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())

	require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/ready", "").Code)

	_ = do(h, http.MethodPost, "/api/create-checkout", `{}`)
	rr = do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `router_test_http_requests_total`)

	rr = do(h, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"error":"Not Found"}`, rr.Body.String())
}

func TestBuildProviderWrapsBreaker(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PAYMENT_PROVIDER":        "stub",
		"STRIPE_SECRET_KEY":       "",
		"PAYMENT_BREAKER_ENABLED": "true",
	})
	require.NoError(t, err)

	provider := buildProvider(cfg, zerolog.Nop())
	guarded, ok := provider.(payment.Guarded)
	require.True(t, ok)
	require.NotNil(t, guarded.Breaker)
	_, ok = guarded.Next.(payment.Instrumented)
	require.True(t, ok)
}
