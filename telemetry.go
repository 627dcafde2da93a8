package spacetraveling

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "spacetraveling"

// Version is reported to Sentry and in traces. Set at build time with
// -ldflags "-X github.com/eringen/spacetraveling.Version=...".
var Version = "dev"

// setupTracing installs a global tracer provider exporting over OTLP/HTTP.
// Content repository calls are traced through it. The returned func flushes
// and stops the exporter.
func setupTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("spacetraveling: otlp exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", Version),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// setupSentry initializes error reporting. The returned func flushes
// buffered events.
func setupSentry(dsn, env string) (func(), error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     serviceName + "@" + Version,
	})
	if err != nil {
		return nil, fmt.Errorf("spacetraveling: sentry: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// reportError sends a server error to Sentry with request context.
func reportError(err error, method, path, requestID string) {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("method", method)
		scope.SetTag("path", path)
		if requestID != "" {
			scope.SetTag("request_id", requestID)
		}
	})
	hub.CaptureException(err)
}
