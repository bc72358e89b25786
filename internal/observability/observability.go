// Package observability exports traces to an OpenTelemetry collector.
//
// Genkit instruments every model call with OTel spans but keeps them in its
// own TracerProvider. Setup registers an OTLP HTTP exporter on that provider
// so generation and edit traces reach whatever collector the operator runs
// (Jaeger, Grafana Tempo, a vendor agent listening on 4318).
//
// Tracing is opt-in. When the collector is unreachable the exporter is
// created anyway (the connection is lazy) and spans are dropped by the
// batch processor; a missing collector never breaks the studio.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultEndpoint is the conventional OTLP HTTP port on localhost.
const DefaultEndpoint = "localhost:4318"

// Config for trace export.
type Config struct {
	// Endpoint is the collector's OTLP HTTP host:port (default: localhost:4318).
	Endpoint string
	// Environment tags spans with deployment.environment (dev, staging, prod).
	Environment string
	// ServiceName is the service name shown in the trace UI.
	ServiceName string
}

// Setup registers an OTLP HTTP exporter with Genkit's TracerProvider.
// Must run before genkit.Init so the provider is ready when flows register.
//
// Returns a shutdown function that flushes pending spans. Setup never fails
// hard: if the exporter cannot be built, tracing is disabled and the
// returned shutdown is a no-op.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit's TracerProvider reads service identity from the standard OTEL
	// env vars. SAFETY: os.Setenv is not concurrent-safe, but Setup runs
	// exactly once during startup before any goroutines are spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		slog.Warn("creating otlp exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
