// Package metrics exposes Prometheus instrumentation for the gateway's
// outbound request path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	// RequestsTotal counts outbound controller requests by surface path and
	// final outcome (success, http_error, transport_error, rate_limited).
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unifi_mcp",
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Outbound controller requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// RateLimitDenialsTotal counts admission denials by endpoint and window.
	RateLimitDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unifi_mcp",
		Subsystem: "gateway",
		Name:      "rate_limit_denials_total",
		Help:      "Rate limiter denials by endpoint and window.",
	}, []string{"endpoint", "window"})

	// AuthFallbacksTotal counts dual-mode fallbacks from the stateless key
	// to the legacy cookie session.
	AuthFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "unifi_mcp",
		Subsystem: "gateway",
		Name:      "auth_fallbacks_total",
		Help:      "Stateless-to-stateful authentication fallbacks.",
	})

	// SessionLoginsTotal counts legacy session logins by outcome.
	SessionLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unifi_mcp",
		Subsystem: "gateway",
		Name:      "session_logins_total",
		Help:      "Legacy session login attempts by outcome.",
	}, []string{"outcome"})
)

// Serve starts a /metrics listener on addr. It blocks; run it in its own
// goroutine. An empty addr disables the listener.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("metrics listener starting")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics listener failed")
	}
}
