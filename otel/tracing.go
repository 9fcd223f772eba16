package otel

import (
	"context"
	"fmt"
	"strings"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultServiceName is the service.name resource attribute.
const DefaultServiceName = "petaltools"

// TracingConfig selects the OTLP/HTTP trace exporter.
type TracingConfig struct {
	// Endpoint is host:port or a full http(s) URL. Empty disables tracing.
	Endpoint    string
	Insecure    bool
	Headers     map[string]string
	ServiceName string
	Version     string
}

// ShutdownFunc flushes and stops the installed provider.
type ShutdownFunc func(context.Context) error

// SetupTracing installs a global tracer provider that batches spans to an
// OTLP/HTTP collector. With no endpoint it leaves the global provider
// untouched and returns a no-op shutdown.
func SetupTracing(ctx context.Context, cfg TracingConfig) (ShutdownFunc, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newHTTPExporter(ctx, endpoint, cfg)
	if err != nil {
		return nil, fmt.Errorf("otel: create trace exporter: %w", err)
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	attrs := []attribute.KeyValue{attribute.String("service.name", serviceName)}
	if cfg.Version != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.Version))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
	)
	otelapi.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

func newHTTPExporter(ctx context.Context, endpoint string, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	var opts []otlptracehttp.Option
	if strings.Contains(endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}
