package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// SetupTelemetry configures OpenTelemetry tracing for the whole process
// hosting one or more Engine sessions.
func SetupTelemetry(config Config) (*tracesdk.TracerProvider, error) {
	res, err := NewResource(config.Package, config.ID)
	if err != nil {
		return nil, err
	}

	exp, expErr := func() (tracesdk.SpanExporter, error) {
		switch {
		case config.OTLP.Host != "":
			return NewOTLPExporter(config.OTLP)
		case config.JaegerURL != "":
			return jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerURL)))
		default:
			return nil, fmt.Errorf("neither OTLP nor Jaeger URL is set")
		}
	}()
	if expErr != nil {
		return nil, expErr
	}

	tp := NewTracerProvider(exp, res)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp, nil
}

// NewTracerProvider wires the batch span processor that feeds a given
// exporter, tagged with the service resource.
func NewTracerProvider(exp tracesdk.SpanExporter, res *resource.Resource) *tracesdk.TracerProvider {
	return tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
	)
}

// NewResource identifies this service instance to the trace backend.
func NewResource(pkg, identifier string) (*resource.Resource, error) {
	if pkg == "" || identifier == "" {
		return nil, fmt.Errorf("empty resource name or identifier")
	}

	return resource.New(
		context.Background(),
		resource.WithContainer(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(pkg),
			attribute.String("ID", identifier),
		),
	)
}

// NewOTLPExporter builds an OTLP/HTTP exporter. The host must not carry a
// scheme or trailing slash since otlptracehttp does not validate that and
// would otherwise fail silently once spans start flowing.
func NewOTLPExporter(config OTLP) (*otlptrace.Exporter, error) {
	switch {
	case config.Host == "":
		return nil, fmt.Errorf("OTLP host is not set")
	case strings.HasPrefix(config.Host, "http://"), strings.HasPrefix(config.Host, "https://"):
		return nil, fmt.Errorf("OTLP host must not contain the protocol")
	case strings.HasSuffix(config.Host, "/"):
		return nil, fmt.Errorf("OTLP host must not contain the path or trailing slashes")
	}

	options := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Host)}
	if !config.Secure {
		options = append(options, otlptracehttp.WithInsecure())
	}

	return otlptrace.New(context.Background(), otlptracehttp.NewClient(options...))
}
