// Package tracing provides OpenTelemetry tracing for scene builds
package tracing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// ServiceName is the name of the service in traces
	ServiceName = "osmterrain"
	// TracerName is the name of the tracer
	TracerName = "github.com/NERVsystems/osmterrain"
)

// Tracer is the global tracer instance
var Tracer trace.Tracer = noop.NewTracerProvider().Tracer(TracerName)

// InitTracing installs an OTLP gRPC tracer provider when OTLP_ENDPOINT
// is set and a noop tracer otherwise. OTLP_INSECURE=true disables TLS;
// OTLP_SAMPLE_RATIO below 1 selects a parent-based ratio sampler.
func InitTracing(ctx context.Context, version string) (shutdown func(context.Context) error, err error) {
	endpoint := os.Getenv("OTLP_ENDPOINT")
	if endpoint == "" {
		Tracer = noop.NewTracerProvider().Tracer(TracerName)
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	res, err := newResource(version)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	Tracer = tp.Tracer(TracerName)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

const shutdownTimeout = 5 * time.Second

func newExporter(ctx context.Context, endpoint string) (*otlptrace.Exporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if insecure, _ := strconv.ParseBool(os.Getenv("OTLP_INSECURE")); insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

func newResource(version string) (*resource.Resource, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version),
		attribute.String("service.environment", environment()),
	))
	if err != nil {
		return nil, fmt.Errorf("creating trace resource: %w", err)
	}
	return res, nil
}

func environment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}

func sampler() sdktrace.Sampler {
	ratio, err := strconv.ParseFloat(os.Getenv("OTLP_SAMPLE_RATIO"), 64)
	if err != nil || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// StartSpan starts a span on the package tracer
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer.Start(ctx, name, opts...)
}

// recording returns the context's span when it records, nil otherwise
func recording(ctx context.Context) trace.Span {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		return span
	}
	return nil
}

// RecordError records err on the context's span
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	if span := recording(ctx); span != nil {
		span.RecordError(err, opts...)
	}
}

// SetStatus sets the status of the context's span
func SetStatus(ctx context.Context, code codes.Code, description string) {
	if span := recording(ctx); span != nil {
		span.SetStatus(code, description)
	}
}

// AddEvent adds a named event to the context's span
func AddEvent(ctx context.Context, name string, opts ...trace.EventOption) {
	if span := recording(ctx); span != nil {
		span.AddEvent(name, opts...)
	}
}

// SetAttributes sets attributes on the context's span
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	if span := recording(ctx); span != nil {
		span.SetAttributes(attrs...)
	}
}
