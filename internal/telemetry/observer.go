package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ToolObserver records one span and a set of measurements per tool call.
type ToolObserver struct {
	tracer trace.Tracer

	calls    metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	calls, err := meter.Int64Counter(
		"toolrelay.tool.calls",
		metric.WithDescription("Number of tool calls"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"toolrelay.tool.failures",
		metric.WithDescription("Number of failed tool calls by error kind"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"toolrelay.tool.latency",
		metric.WithDescription("Tool call latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ToolObserver{
		tracer:   tracer,
		calls:    calls,
		failures: failures,
		latency:  latency,
	}, nil
}

// Start opens a "tool.call" span. The returned function ends it and records
// the outcome; kind is empty on success.
func (o *ToolObserver) Start(ctx context.Context, tool string) (context.Context, func(success bool, kind string)) {
	if o == nil {
		return ctx, func(bool, string) {}
	}

	start := time.Now()
	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "tool.call",
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attribute.String("tool_name", tool)),
		)
	}

	return ctx, func(success bool, kind string) {
		attrs := []attribute.KeyValue{
			attribute.String("tool_name", tool),
			attribute.Bool("success", success),
		}
		if kind != "" {
			attrs = append(attrs, attribute.String("error_kind", kind))
		}

		bg := context.Background()
		options := metric.WithAttributes(attrs...)
		o.calls.Add(bg, 1, options)
		if !success {
			o.failures.Add(bg, 1, options)
		}
		o.latency.Record(bg, time.Since(start).Seconds(), options)

		if span == nil {
			return
		}
		span.SetAttributes(attrs...)
		if success {
			span.SetStatus(codes.Ok, "")
		} else {
			span.SetStatus(codes.Error, kind)
		}
		span.End()
	}
}
