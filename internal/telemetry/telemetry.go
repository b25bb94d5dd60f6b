// Package telemetry wires OpenTelemetry tracing and the tool-call instruments
// used by the dispatcher.
package telemetry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InstrumentationName scopes every tracer and meter this process creates.
const InstrumentationName = "github.com/toolrelay/toolrelay"

type Options struct {
	// Endpoint is an OTLP/HTTP collector URL. Empty leaves the global
	// no-op providers in place.
	Endpoint    string
	ServiceName string
}

// Setup installs a global tracer provider exporting over OTLP/HTTP. The
// returned function flushes and stops it; it is safe to call when nothing was
// installed.
func Setup(ctx context.Context, opts Options) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if opts.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(opts.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otelapi.SetTracerProvider(tp)

	log.Info().Str("endpoint", opts.Endpoint).Str("service", opts.ServiceName).Msg("OpenTelemetry tracing enabled")
	return tp.Shutdown, nil
}

// NewGlobalToolObserver builds a ToolObserver from the global providers.
func NewGlobalToolObserver() (*ToolObserver, error) {
	return NewToolObserver(
		otelapi.GetMeterProvider().Meter(InstrumentationName),
		otelapi.GetTracerProvider().Tracer(InstrumentationName),
	)
}
