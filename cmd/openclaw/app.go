package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JakkuSakura/openclaw/internal/config"
	"github.com/JakkuSakura/openclaw/internal/cron"
	"github.com/JakkuSakura/openclaw/internal/gateway"
	"github.com/JakkuSakura/openclaw/internal/history"
	"github.com/JakkuSakura/openclaw/internal/mcpserver"
	"github.com/JakkuSakura/openclaw/internal/rpc"
	"github.com/JakkuSakura/openclaw/internal/security"
	"github.com/JakkuSakura/openclaw/internal/telemetry"
	"github.com/JakkuSakura/openclaw/internal/webhook"
)

// app bundles every long-running collaborator the gateway process owns:
// the RPC facade over the crontab, the HTTP admin surface, and, when
// configured, the MCP stdio tool server. It is the thing both `openclaw
// start` and `openclaw service` drive.
type app struct {
	facade  *rpc.Facade
	gateway *gateway.Gateway
	mcp     *mcpserver.Server

	logger          *slog.Logger
	shutdownTracing telemetry.Shutdown
}

// newApp wires cfg into a running facade + gateway + (optional) MCP
// server, following the narrow-collaborator-interface shape
// internal/cron.Deps specifies: each external system (session runtime,
// isolated-turn runner, webhook target) is injected rather than imported
// directly, so a host without a real session manager still gets a
// functioning scheduler.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	tracer, shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("openclaw: setting up tracing: %w", err)
	}

	ssrfGuard := security.NewSSRFGuard(security.SSRFGuardConfig{})
	deliverer := webhook.New(webhook.Config{
		Token:  cfg.Cron.WebhookToken,
		Guard:  ssrfGuard,
		Logger: logger,
	})

	if cfg.Cron.RunCommand != "" {
		cron.RunCommand = cfg.Cron.RunCommand
	}

	store := cron.NewStore(cron.ExecCrontabIO{})

	// Isolated and Heartbeat are left unset: both are narrow boundaries
	// to an interactive agent runtime this binary does not itself host.
	// A host that embeds openclaw alongside a real session manager
	// supplies its own cron.Deps with those filled in; dispatchIsolated
	// already reports a clear error for isolated jobs when Isolated is
	// nil.
	deps := cron.Deps{
		Events:  cron.NewInMemoryEventSink(),
		Webhook: telemetry.TracedWebhookDeliverer{Inner: deliverer, Tracer: tracer},
	}

	facade := &rpc.Facade{
		Store: store,
		Config: cron.Config{
			DefaultAgentID: cfg.Cron.DefaultAgentID,
			MainKeyPrefix:  "main:",
		},
		Deps:    deps,
		History: history.NewReader(),
	}

	rateLimiter := security.NewRateLimiter(security.RateLimitConfig{
		ToolCallsPerMin: cfg.Security.RateLimit.ToolCallsPerMin,
	})

	gw := gateway.New(cfg.Gateway, facade, logger, nil, rateLimiter)

	// Every run is both traced and counted, whichever surface (CLI, MCP,
	// a cron(8) fire) triggered it.
	traced := telemetry.TracedDispatch(tracer)
	metrics := gw.Metrics()
	facade.Dispatch = func(ctx context.Context, c cron.Config, d cron.Deps, job cron.Job, mode cron.RunMode) cron.RunResult {
		result := traced(ctx, c, d, job, mode)
		if result.Ran && result.Outcome != nil {
			metrics.RecordRun(string(result.Outcome.Status))
			if result.Outcome.ErrorKind == "delivery-target" {
				metrics.RecordWebhookFailure()
			}
		}
		return result
	}

	a := &app{
		facade:          facade,
		gateway:         gw,
		logger:          logger,
		shutdownTracing: shutdownTracing,
	}
	if cfg.MCP.Enabled {
		a.mcp = mcpserver.New(facade, logger)
	}
	return a, nil
}

// Run starts the gateway and, when configured, the MCP stdio server, and
// blocks until ctx is cancelled or either one exits with an error.
func (a *app) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		errCh <- a.gateway.Start(ctx)
	}()

	if a.mcp != nil {
		go func() {
			errCh <- a.mcp.ServeStdio(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases resources that outlive a single Run call (the tracer
// provider's batching exporter, chiefly).
func (a *app) Close(ctx context.Context) {
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.logger.Warn("tracing shutdown failed", "error", err)
		}
	}
}
