package otel_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	petalotel "github.com/petal-labs/petaltools/otel"
	"github.com/petal-labs/petaltools/tool"
)

func newTestMeter() (*metric.ManualReader, *metric.MeterProvider) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return reader, mp
}

func newTestTracer() (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return exporter, tp
}

func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		t.Fatalf("%s metric not found", name)
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s type = %T, want Sum[int64]", name, m.Data)
	}
	var total int64
	for _, point := range sum.DataPoints {
		total += point.Value
	}
	return total
}

func TestToolObserverRecordsMetrics(t *testing.T) {
	reader, mp := newTestMeter()
	exporter, tp := newTestTracer()

	observer, err := petalotel.NewToolObserver(mp.Meter("test-tool-observer"), tp.Tracer("test-tool-observer"))
	if err != nil {
		t.Fatalf("NewToolObserver() error = %v", err)
	}

	observer.ObserveInvoke(tool.InvokeObservation{
		Operation:   "notion_get_page",
		Integration: "notion",
		DurationMS:  120,
		ErrorCode:   tool.ToolErrorCodeUpstreamFailure,
	})
	observer.ObserveRegistration(tool.RegistrationObservation{
		Integration: "obsidian",
		Loaded:      true,
		Operations:  10,
	})
	observer.ObserveAvailability(tool.AvailabilityObservation{
		Integration: "todoist",
		Available:   true,
		Changed:     true,
	})

	rm := collectMetrics(t, reader)
	for _, name := range []string{
		"petaltools.tool.invocations",
		"petaltools.integration.registrations",
		"petaltools.integration.availability_checks",
	} {
		if got := sumOf(t, rm, name); got != 1 {
			t.Fatalf("%s = %d, want 1", name, got)
		}
	}

	latency := findMetric(rm, "petaltools.tool.latency")
	if latency == nil {
		t.Fatal("petaltools.tool.latency metric not found")
	}
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("petaltools.tool.latency type = %T, want Histogram[float64]", latency.Data)
	}
	if got := hist.DataPoints[0].Sum; got != 0.12 {
		t.Fatalf("latency sum = %v, want 0.12", got)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Name != "tool.invoke" || spans[0].Status.Code != codes.Error {
		t.Fatalf("span[0] = %s %v", spans[0].Name, spans[0].Status)
	}
	if spans[1].Name != "integration.register" || spans[1].Status.Code != codes.Ok {
		t.Fatalf("span[1] = %s %v", spans[1].Name, spans[1].Status)
	}
}

func TestToolObserverReceivesOperationInvocations(t *testing.T) {
	reader, mp := newTestMeter()
	observer, err := petalotel.NewToolObserver(mp.Meter("test"), nil)
	if err != nil {
		t.Fatalf("NewToolObserver() error = %v", err)
	}
	tool.SetObserver(observer)
	t.Cleanup(func() { tool.SetObserver(nil) })

	reg := tool.NewRegistry()
	reg.Register(tool.Operation{
		Name:        "vault_ping",
		Integration: "vault",
		Handler: func(context.Context, tool.Args) (map[string]any, error) {
			return map[string]any{"pong": true}, nil
		},
	})
	reg.Invoke(context.Background(), "vault_ping", nil)
	reg.Invoke(context.Background(), "vault_ping", nil)

	if got := sumOf(t, collectMetrics(t, reader), "petaltools.tool.invocations"); got != 2 {
		t.Fatalf("invocations = %d, want 2", got)
	}
}

func TestNilToolObserverIsSafe(t *testing.T) {
	var observer *petalotel.ToolObserver
	observer.ObserveInvoke(tool.InvokeObservation{})
	observer.ObserveRegistration(tool.RegistrationObservation{})
	observer.ObserveAvailability(tool.AvailabilityObservation{})
}
