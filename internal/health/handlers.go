package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/checkout-session/internal/common"
)

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the readiness flag. It is cleared when graceful shutdown begins.
func SetReady(v bool) {
	ready.Store(v)
}

// Probe checks a single dependency.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// RedisProbe pings client.
func RedisProbe(client redis.UniversalClient, timeout time.Duration) Probe {
	return Probe{
		Name:    "redis",
		Timeout: timeout,
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Probes []Probe
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	ctx := r.Context()
	status := map[string]string{"status": "ok"}
	healthy := true
	for _, p := range h.Probes {
		if err := p.run(ctx); err != nil {
			status[p.Name] = err.Error()
			healthy = false
			continue
		}
		status[p.Name] = "ok"
	}
	if !healthy {
		status["status"] = "degraded"
		common.JSON(w, http.StatusServiceUnavailable, status)
		return
	}
	common.JSON(w, http.StatusOK, status)
}

func (p Probe) run(ctx context.Context) error {
	if p.Check == nil {
		return nil
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Check(ctx)
}
