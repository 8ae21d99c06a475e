// Package observability wires OpenTelemetry tracing into the Genkit
// pipeline. Spans from routing, retrieval, and generation flow to any
// OTLP/HTTP collector.
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/alexandria-ai/alexandria/internal/log"
)

// Config for trace export.
type Config struct {
	// Endpoint is the OTLP/HTTP collector address, host:port.
	Endpoint string
	// Environment tags spans with the deployment environment.
	Environment string
	// ServiceName is the name spans are grouped under.
	ServiceName string
}

// DefaultEndpoint is the conventional local collector address.
const DefaultEndpoint = "localhost:4318"

// Setup registers an OTLP exporter with Genkit's tracer provider and
// returns a shutdown function that flushes pending spans. Exporter
// construction failures disable tracing instead of failing startup.
func Setup(ctx context.Context, cfg Config, logger log.Logger) (func(context.Context) error, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit's tracer provider reads these at span creation time.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("trace exporter unavailable, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)
	return tracing.TracerProvider().Shutdown, nil
}
