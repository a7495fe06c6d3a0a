package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakkuSakura/openclaw/internal/rpc"
	"github.com/JakkuSakura/openclaw/internal/security"
)

// Gateway is the HTTP surface over the cron RPC facade: liveness,
// metrics, and scheduler status. It is constructed directly and driven
// by Start/Stop.
type Gateway struct {
	cfg         Config
	facade      *rpc.Facade
	metrics     *Metrics
	registry    *prometheus.Registry
	logger      *slog.Logger
	auditLogger *security.AuditLogger
	rateLimiter *security.RateLimiter

	startedAt time.Time
	server    *http.Server
}

// New constructs a Gateway. logger, auditLogger, and rateLimiter may be
// nil; auth and audit logging are simply skipped when so.
func New(cfg Config, facade *rpc.Facade, logger *slog.Logger, auditLogger *security.AuditLogger, rateLimiter *security.RateLimiter) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	return &Gateway{
		cfg:         withDefaults(cfg),
		facade:      facade,
		metrics:     NewMetrics(reg),
		registry:    reg,
		logger:      logger,
		auditLogger: auditLogger,
		rateLimiter: rateLimiter,
	}
}

// Metrics returns the gateway's metrics handle so other components (the
// dispatcher loop, the CLI) can record observations against the same
// registry that /metrics serves.
func (g *Gateway) Metrics() *Metrics { return g.metrics }

// Start binds the configured address and serves until ctx is cancelled or
// Stop is called. It returns once the server has fully shut down.
func (g *Gateway) Start(ctx context.Context) error {
	g.startedAt = time.Now()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.cfg.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", g.cfg.Bind, err)
	}

	g.server = &http.Server{
		Handler:      g.buildRouter(),
		ReadTimeout:  g.cfg.ReadTimeout,
		WriteTimeout: g.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("gateway listening", "addr", g.cfg.Bind)
		errCh <- g.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		return g.Stop(context.Background())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway: serve: %w", err)
		}
		return nil
	}
}

// Stop gracefully shuts the HTTP server down, bounded by the configured
// shutdown timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, g.cfg.ShutdownTimeout)
	defer cancel()
	g.logger.Info("gateway shutting down")
	if err := g.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway: shutdown: %w", err)
	}
	return nil
}
