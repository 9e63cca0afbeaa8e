package messages

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// instrumentationName identifies this library in telemetry.
const instrumentationName = "github.com/rbaliyan/messages"

// otelInstrumentation carries tracer and meters for service operations.
// Metrics share one histogram and two counters keyed by an "operation"
// attribute.
type otelInstrumentation struct {
	tracer trace.Tracer

	duration metric.Float64Histogram
	calls    metric.Int64Counter
	errors   metric.Int64Counter

	metricsEnabled bool
	tracingEnabled bool
}

func newOTelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		metricsEnabled: opts.meterProvider != nil,
		tracingEnabled: opts.tracerProvider != nil,
	}

	tp := opts.tracerProvider
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	o.tracer = tp.Tracer(instrumentationName)

	mp := opts.meterProvider
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	var err error
	o.duration, err = meter.Float64Histogram("messages.operation.duration",
		metric.WithDescription("Duration of message operations"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	o.calls, err = meter.Int64Counter("messages.operation.calls",
		metric.WithDescription("Number of message operations"))
	if err != nil {
		return nil, err
	}
	o.errors, err = meter.Int64Counter("messages.operation.errors",
		metric.WithDescription("Number of failed message operations"))
	if err != nil {
		return nil, err
	}
	return o, nil
}

// startOp begins a span and returns an end function that records the
// outcome. Always call the end function exactly once.
func (o *otelInstrumentation) startOp(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "messages."+op)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		if !o.metricsEnabled {
			return
		}
		attrs := metric.WithAttributes(attribute.String("operation", op))
		o.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
		o.calls.Add(ctx, 1, attrs)
		if err != nil {
			o.errors.Add(ctx, 1, attrs)
		}
	}
}
