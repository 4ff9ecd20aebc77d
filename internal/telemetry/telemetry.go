// Package telemetry wires the global OpenTelemetry trace provider that
// the chunk-load spans in internal/source and cmd/demo's traced HTTP
// handler report through. The package never reads the environment:
// callers fill Config explicitly (cmd/demo maps it from internal/app),
// and an empty Endpoint leaves tracing off with a no-op shutdown.
package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config describes where spans go and how many to keep. SampleRate is
// the head-sampling ratio applied to root spans; values outside (0, 1]
// fall back to defaultSampleRate.
type Config struct {
	Endpoint    string
	SampleRate  float64
	ServiceName string
}

const defaultSampleRate = 0.1

// ShutdownFunc flushes and stops the provider Setup installed.
type ShutdownFunc func(context.Context) error

var noopShutdown ShutdownFunc = func(context.Context) error { return nil }

// Setup installs the global trace provider and propagators. With an
// empty endpoint it installs nothing and the per-load tracer in
// internal/source produces no-op spans, so callers never need to guard
// their instrumentation.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return noopShutdown, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(trimScheme(cfg.Endpoint)),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return noopShutdown, err
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return noopShutdown, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.sampleRate()))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func (c Config) sampleRate() float64 {
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		return defaultSampleRate
	}
	return c.SampleRate
}

// trimScheme strips an http:// or https:// prefix; the otlptracehttp
// exporter wants a bare host:port.
func trimScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return strings.TrimPrefix(endpoint, "https://")
}
