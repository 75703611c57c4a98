package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller address. chi's RealIP middleware is expected to have
// rewritten RemoteAddr from X-Forwarded-For or X-Real-IP already.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	host, _, err := net.SplitHostPort(addr)
	if err == nil {
		return host
	}
	return addr
}

// KeyByIP builds a Config.Key function scoping counters by client IP.
func KeyByIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		return scope + ":" + ClientIP(r)
	}
}
