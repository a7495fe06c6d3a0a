// Package telemetry installs an OpenTelemetry tracer provider for the
// cron dispatch and webhook delivery paths: a scheduled run and the
// network call it can make are the two legs of the system worth seeing
// in a trace backend.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/JakkuSakura/openclaw/internal/config"
	"github.com/JakkuSakura/openclaw/internal/cron"
)

// Shutdown flushes and releases the tracer provider's resources. Callers
// should invoke it once during graceful shutdown.
type Shutdown func(ctx context.Context) error

// noopShutdown is returned when tracing is disabled, so callers never
// need a nil check before deferring it.
func noopShutdown(context.Context) error { return nil }

// Setup installs a global TracerProvider per cfg and returns a Tracer
// scoped to the cron subsystem plus a Shutdown func. When cfg.Enabled is
// false, it installs nothing and returns a no-op tracer from the otel API
// package (which already behaves as a complete no-op implementation).
func Setup(ctx context.Context, cfg config.TracingConfig) (trace.Tracer, Shutdown, error) {
	if !cfg.Enabled {
		return otel.Tracer("openclaw/cron"), noopShutdown, nil
	}
	if cfg.OTLPEndpoint == "" {
		return nil, nil, errors.New("telemetry: tracing.enabled is true but tracing.otlp_endpoint is empty")
	}

	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: building OTLP exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName("openclaw"),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Tracer("openclaw/cron"), tp.Shutdown, nil
}

// TracedDispatch wraps cron.Dispatch, opening a "cron.dispatch" span
// around each call and annotating it with the job and outcome. It has
// the same signature as cron.Dispatch so it can be substituted wherever
// the dispatcher is invoked (the RPC facade's Run, and any future
// scheduler loop) without those callers importing this package's types.
func TracedDispatch(tracer trace.Tracer) func(ctx context.Context, cfg cron.Config, deps cron.Deps, job cron.Job, mode cron.RunMode) cron.RunResult {
	return func(ctx context.Context, cfg cron.Config, deps cron.Deps, job cron.Job, mode cron.RunMode) cron.RunResult {
		ctx, span := tracer.Start(ctx, "cron.dispatch", trace.WithAttributes(
			attribute.String("cron.job_id", job.ID),
			attribute.String("cron.job_name", job.Name),
			attribute.String("cron.session_target", string(job.SessionTarget)),
			attribute.String("cron.run_mode", string(mode)),
		))
		defer span.End()

		result := cron.Dispatch(ctx, cfg, deps, job, mode)

		span.SetAttributes(
			attribute.Bool("cron.ran", result.Ran),
			attribute.Bool("cron.ok", result.OK),
		)
		if !result.OK {
			span.SetAttributes(attribute.String("cron.error", result.Error))
		}
		if result.Outcome != nil {
			span.SetAttributes(attribute.String("cron.outcome_status", string(result.Outcome.Status)))
		}
		return result
	}
}

// TracedWebhookDeliverer wraps a cron.WebhookDeliverer, opening a
// "cron.webhook.deliver" span around each delivery attempt.
type TracedWebhookDeliverer struct {
	Inner  cron.WebhookDeliverer
	Tracer trace.Tracer
}

// Compile-time interface check.
var _ cron.WebhookDeliverer = TracedWebhookDeliverer{}

// Deliver implements cron.WebhookDeliverer.
func (t TracedWebhookDeliverer) Deliver(ctx context.Context, job cron.Job, outcome cron.RunOutcome) (bool, error) {
	target := ""
	if job.Delivery != nil {
		target = job.Delivery.To
	}
	ctx, span := t.Tracer.Start(ctx, "cron.webhook.deliver", trace.WithAttributes(
		attribute.String("cron.job_id", job.ID),
		attribute.String("cron.outcome_status", string(outcome.Status)),
		attribute.String("webhook.target", target),
	))
	defer span.End()

	delivered, err := t.Inner.Deliver(ctx, job, outcome)
	span.SetAttributes(attribute.Bool("webhook.delivered", delivered))
	if err != nil {
		span.RecordError(err)
	}
	return delivered, err
}
