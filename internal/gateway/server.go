package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired: liveness,
// Prometheus metrics, and cron scheduler status. Mutating cron verbs are
// deliberately not exposed over HTTP; they belong to the RPC transport
// and the CLI.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public, no auth required.
	r.Get("/healthz", g.handleHealth())
	r.Handle("/metrics", promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{}))

	// Status reflects live crontab state, so it is gated behind auth
	// whenever a bearer token is configured.
	r.Group(func(r chi.Router) {
		if isConfigured(g.cfg.Auth) {
			r.Use(authMiddleware(g.cfg.Auth, g.auditLogger, g.rateLimiter))
		}
		r.Get("/status", g.handleStatus())
	})

	return r
}
