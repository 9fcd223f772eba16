// Package otel records gateway invocation, registration and availability
// signals with OpenTelemetry.
package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/petaltools/tool"
)

// ScopeName is the instrumentation scope for the meter and tracer.
const ScopeName = "github.com/petal-labs/petaltools"

// ToolObserver implements tool.Observer on top of a meter and tracer.
type ToolObserver struct {
	tracer trace.Tracer

	invocations   metric.Int64Counter
	registrations metric.Int64Counter
	availability  metric.Int64Counter
	latency       metric.Float64Histogram
}

// NewToolObserver creates a tool observer bound to the provided meter/tracer.
// tracer may be nil, in which case no spans are produced.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	invocations, err := meter.Int64Counter(
		"petaltools.tool.invocations",
		metric.WithDescription("Number of operation invocations"),
	)
	if err != nil {
		return nil, err
	}
	registrations, err := meter.Int64Counter(
		"petaltools.integration.registrations",
		metric.WithDescription("Number of integration registration attempts"),
	)
	if err != nil {
		return nil, err
	}
	availability, err := meter.Int64Counter(
		"petaltools.integration.availability_checks",
		metric.WithDescription("Number of background availability rechecks"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"petaltools.tool.latency",
		metric.WithDescription("Operation latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ToolObserver{
		tracer:        tracer,
		invocations:   invocations,
		registrations: registrations,
		availability:  availability,
		latency:       latency,
	}, nil
}

// ObserveInvoke records one invocation result.
func (o *ToolObserver) ObserveInvoke(observation tool.InvokeObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", observation.Operation),
		attribute.String("integration", observation.Integration),
		attribute.Bool("success", observation.Success),
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.invocations.Add(ctx, 1, options)
	o.latency.Record(ctx, (time.Duration(observation.DurationMS) * time.Millisecond).Seconds(), options)

	o.span("tool.invoke", attrs, observation.ErrorCode)
}

// ObserveRegistration records one integration's startup outcome.
func (o *ToolObserver) ObserveRegistration(observation tool.RegistrationObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("integration", observation.Integration),
		attribute.Bool("loaded", observation.Loaded),
		attribute.Int("operations", observation.Operations),
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}
	o.registrations.Add(context.Background(), 1, metric.WithAttributes(attrs...))

	o.span("integration.register", attrs, observation.ErrorCode)
}

// ObserveAvailability records one background recheck.
func (o *ToolObserver) ObserveAvailability(observation tool.AvailabilityObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("integration", observation.Integration),
		attribute.Bool("available", observation.Available),
		attribute.Bool("changed", observation.Changed),
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}
	o.availability.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

func (o *ToolObserver) span(name string, attrs []attribute.KeyValue, errorCode string) {
	if o.tracer == nil {
		return
	}
	_, span := o.tracer.Start(context.Background(), name, trace.WithAttributes(attrs...))
	if errorCode != "" {
		span.SetStatus(codes.Error, errorCode)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

var _ tool.Observer = (*ToolObserver)(nil)
