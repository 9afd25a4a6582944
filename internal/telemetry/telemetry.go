// Package telemetry wires optional OTLP trace export, gated by
// config.TelemetryConfig.Enabled. Grounded on the teacher's tracing.Collector
// start/stop lifecycle and its config-driven grpc/http protocol switch
// (cmd/gateway.go's traceCollector wiring), rebuilt against the standard
// go.opentelemetry.io SDK exporters instead of the teacher's build-tag-gated
// stub since no concrete exporter wiring survived in the retrieved source.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/zaytsevrv/jarvis-assistant/internal/config"
)

// Shutdown flushes and stops the tracer provider. A no-op Shutdown is
// returned when telemetry is disabled so callers never need a nil check.
type Shutdown func(ctx context.Context) error

// Setup installs a global TracerProvider per cfg.Telemetry, or a no-op
// provider if telemetry is disabled or misconfigured.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (Shutdown, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("telemetry enabled but endpoint is empty")
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry client: %w", err)
	}
	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("telemetry exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "jarvis-assistant"
	}
	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func newClient(cfg config.TelemetryConfig) (otlptrace.Client, error) {
	switch cfg.Protocol {
	case "", "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.NewClient(opts...), nil
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.NewClient(opts...), nil
	default:
		return nil, fmt.Errorf("unknown telemetry protocol %q", cfg.Protocol)
	}
}
