package trace

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// CloseFunc flushes and stops a provider.
type CloseFunc func(ctx context.Context) error

// TraceProviderBuilder -.
type TraceProviderBuilder struct {
	name     string
	version  string
	exporter sdktrace.SpanExporter
	sampler  sdktrace.Sampler
}

// NewTraceProviderBuilder -.
func NewTraceProviderBuilder(name string) *TraceProviderBuilder {
	return &TraceProviderBuilder{name: name, sampler: sdktrace.AlwaysSample()}
}

// SetExporter -.
func (b *TraceProviderBuilder) SetExporter(exp sdktrace.SpanExporter) *TraceProviderBuilder {
	b.exporter = exp
	return b
}

// SetVersion -.
func (b *TraceProviderBuilder) SetVersion(version string) *TraceProviderBuilder {
	b.version = version
	return b
}

// SetSampler -.
func (b *TraceProviderBuilder) SetSampler(sampler sdktrace.Sampler) *TraceProviderBuilder {
	b.sampler = sampler
	return b
}

// Build -.
func (b *TraceProviderBuilder) Build() (*sdktrace.TracerProvider, CloseFunc, error) {
	if b.exporter == nil {
		return nil, nil, errors.New("trace exporter is required")
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(b.name),
		semconv.ServiceVersionKey.String(b.version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(b.sampler)),
		sdktrace.WithBatcher(b.exporter),
		sdktrace.WithResource(res),
	)

	return tp, tp.Shutdown, nil
}
