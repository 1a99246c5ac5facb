package bapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/advdv/bserve"
	"github.com/aws-observability/aws-otel-go/exporters/xrayudp"
	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/detectors/aws/lambda"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

const tracingInitTimeout = 5 * time.Second

const tracerName = "github.com/advdv/bserve/bapp"

// NewTracerProvider creates and configures the OpenTelemetry TracerProvider.
// Supported exporters via BS_OTEL_EXPORTER: "stdout" (default), "xrayudp".
// Shutdown is handled automatically via fx.Lifecycle.
func NewTracerProvider(lc fx.Lifecycle, env Environment) (trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), tracingInitTimeout)
	defer cancel()

	exporterType := env.otelExporter()

	exporter, err := newExporter(ctx, exporterType)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, exporterType, env.serviceName())
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	}
	if exporterType == "xrayudp" {
		opts = append(opts, sdktrace.WithIDGenerator(xray.NewIDGenerator()))
	}

	tp := sdktrace.NewTracerProvider(opts...)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	return tp, nil
}

// NewPropagator creates a TextMapPropagator based on the exporter type.
// For xrayudp: uses the X-Ray propagator.
// For stdout/default: uses W3C TraceContext + Baggage composite propagator.
func NewPropagator(env Environment) propagation.TextMapPropagator {
	if env.otelExporter() == "xrayudp" {
		return xray.Propagator{}
	}
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// newExporter creates a span exporter based on the exporter type.
func newExporter(ctx context.Context, exporterType string) (sdktrace.SpanExporter, error) {
	switch exporterType {
	case "stdout", "":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "xrayudp":
		return xrayudp.NewSpanExporter(ctx)
	default:
		return nil, fmt.Errorf("unsupported BS_OTEL_EXPORTER: %q (supported: stdout, xrayudp)", exporterType)
	}
}

// newResource creates a resource with appropriate attributes for the exporter.
// The xrayudp exporter is used behind the Lambda web adapter, so the Lambda
// detector describes the resource when it recognizes the runtime.
func newResource(ctx context.Context, exporterType, serviceName string) (*resource.Resource, error) {
	base := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)

	if exporterType != "xrayudp" {
		return base, nil
	}

	lambdaRes, err := lambda.NewResourceDetector().Detect(ctx)
	if err != nil || lambdaRes == nil {
		// not running on lambda
		return base, nil //nolint:nilerr
	}

	return lambdaRes, nil
}

// headerCarrier adapts request headers to the propagation carrier.
type headerCarrier bserve.Header

func (c headerCarrier) Get(key string) string { return bserve.Header(c).Get(key) }
func (c headerCarrier) Set(key, val string)   { bserve.Header(c).Set(key, val) }
func (c headerCarrier) Keys() []string        { return lo.Keys(c) }

// tracing starts a server span for every request. Requests to excluded paths
// are not traced.
type tracing struct {
	tracer  trace.Tracer
	prop    propagation.TextMapPropagator
	exclude map[string]struct{}
}

// newTracing inits the observer. The TracerProvider and Propagator are
// explicitly injected to avoid global state.
func newTracing(tp trace.TracerProvider, prop propagation.TextMapPropagator, excludePaths ...string) *tracing {
	return &tracing{
		tracer:  tp.Tracer(tracerName),
		prop:    prop,
		exclude: lo.SliceToMap(excludePaths, func(p string) (string, struct{}) { return p, struct{}{} }),
	}
}

// ObserveRequest implements [bserve.Observer].
func (t *tracing) ObserveRequest(ctx context.Context, r *bserve.Request) (context.Context, func(*bserve.Response)) {
	if _, excluded := t.exclude[r.URLPath()]; excluded {
		return ctx, nil
	}

	ctx = t.prop.Extract(ctx, headerCarrier(r.Header))
	ctx, span := t.tracer.Start(ctx, string(r.Method)+" "+r.URLPath(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(string(r.Method)),
			semconv.URLPath(r.URLPath()),
			semconv.NetworkProtocolVersion(strings.TrimPrefix(r.Version.String(), "HTTP/")),
		),
	)

	return ctx, func(w *bserve.Response) {
		span.SetAttributes(semconv.HTTPResponseStatusCode(w.Status()))
		if w.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(w.Status()))
		}
		span.End()
	}
}
