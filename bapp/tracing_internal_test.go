package bapp

import (
	"context"
	"testing"

	"github.com/advdv/bserve"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

func TestNewExporter(t *testing.T) {
	ctx := context.Background()

	t.Run("stdout exporter", func(t *testing.T) {
		exp, err := newExporter(ctx, "stdout")
		if err != nil {
			t.Fatalf("newExporter(stdout) error: %v", err)
		}
		if exp == nil {
			t.Fatal("expected non-nil exporter")
		}
	})

	t.Run("empty defaults to stdout", func(t *testing.T) {
		exp, err := newExporter(ctx, "")
		if err != nil {
			t.Fatalf("newExporter('') error: %v", err)
		}
		if exp == nil {
			t.Fatal("expected non-nil exporter")
		}
	})

	t.Run("unsupported exporter returns error", func(t *testing.T) {
		_, err := newExporter(ctx, "invalid")
		if err == nil {
			t.Fatal("expected error for unsupported exporter")
		}
		if got := err.Error(); got != `unsupported BS_OTEL_EXPORTER: "invalid" (supported: stdout, xrayudp)` {
			t.Errorf("unexpected error message: %s", got)
		}
	})
}

func TestNewResource(t *testing.T) {
	ctx := context.Background()

	for _, exp := range []string{"stdout", "", "xrayudp"} {
		t.Run("exporter "+exp, func(t *testing.T) {
			t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

			res, err := newResource(ctx, exp, "my-service")
			if err != nil {
				t.Fatalf("newResource error: %v", err)
			}

			found := false
			for _, attr := range res.Attributes() {
				if string(attr.Key) == "service.name" && attr.Value.AsString() == "my-service" {
					found = true
					break
				}
			}
			if !found {
				t.Error("expected service.name attribute in resource")
			}
		})
	}
}

func TestNewTracerProvider_Stdout(t *testing.T) {
	env := BaseEnvironment{ServiceName: "test", OtelExporter: "stdout"}

	var tp trace.TracerProvider
	app := fx.New(
		fx.NopLogger,
		fx.Supply(fx.Annotate(env, fx.As(new(Environment)))),
		fx.Provide(NewTracerProvider),
		fx.Invoke(func(p trace.TracerProvider) { tp = p }),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("app.Start error: %v", err)
	}

	if _, ok := tp.(*sdktrace.TracerProvider); !ok {
		t.Error("expected SDK TracerProvider")
	}

	if err := app.Stop(ctx); err != nil {
		t.Fatalf("app.Stop error: %v", err)
	}
}

func TestNewTracerProvider_InvalidExporter(t *testing.T) {
	env := BaseEnvironment{ServiceName: "test", OtelExporter: "invalid"}

	app := fx.New(
		fx.NopLogger,
		fx.Supply(fx.Annotate(env, fx.As(new(Environment)))),
		fx.Provide(NewTracerProvider),
		fx.Invoke(func(trace.TracerProvider) {}),
	)

	if app.Err() == nil {
		t.Fatal("expected error for invalid exporter")
	}
}

func TestNewPropagator(t *testing.T) {
	t.Run("stdout uses composite propagator", func(t *testing.T) {
		prop := NewPropagator(BaseEnvironment{OtelExporter: "stdout"})
		fields := prop.Fields()
		if len(fields) < 2 {
			t.Errorf("expected traceparent and baggage fields, got %v", fields)
		}
	})

	t.Run("xrayudp uses the xray header", func(t *testing.T) {
		prop := NewPropagator(BaseEnvironment{OtelExporter: "xrayudp"})
		fields := prop.Fields()
		if len(fields) != 1 || fields[0] != "X-Amzn-Trace-Id" {
			t.Errorf("unexpected fields: %v", fields)
		}
	})
}

func TestTracingObserver(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	obs := newTracing(tp, propagation.TraceContext{}, "/health")

	serve := func(r *bserve.Request, status int) context.Context {
		ctx, done := obs.ObserveRequest(context.Background(), r)
		if done != nil {
			w := bserve.NewResponse()
			w.SetStatus(status)
			done(w)
		}
		return ctx
	}

	get := func(path ...string) *bserve.Request {
		return &bserve.Request{Method: bserve.MethodGet, Path: path, Version: bserve.HTTP11, Header: bserve.Header{}}
	}

	t.Run("records a server span", func(t *testing.T) {
		ctx := serve(get("items", "1"), 200)
		if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
			t.Error("expected the context to carry the span")
		}

		spans := rec.Ended()
		span := spans[len(spans)-1]
		if span.Name() != "GET /items/1" {
			t.Errorf("unexpected span name: %s", span.Name())
		}
		if span.SpanKind() != trace.SpanKindServer {
			t.Errorf("unexpected span kind: %s", span.SpanKind())
		}

		attrs := attribute.NewSet(span.Attributes()...)
		if v, _ := attrs.Value("http.request.method"); v.AsString() != "GET" {
			t.Errorf("unexpected method attribute: %v", v)
		}
		if v, _ := attrs.Value("url.path"); v.AsString() != "/items/1" {
			t.Errorf("unexpected path attribute: %v", v)
		}
		if v, _ := attrs.Value("network.protocol.version"); v.AsString() != "1.1" {
			t.Errorf("unexpected protocol attribute: %v", v)
		}
		if v, _ := attrs.Value("http.response.status_code"); v.AsInt64() != 200 {
			t.Errorf("unexpected status attribute: %v", v)
		}
		if span.Status().Code != codes.Unset {
			t.Errorf("unexpected status: %v", span.Status())
		}
	})

	t.Run("server errors mark the span", func(t *testing.T) {
		serve(get("boom"), 503)

		spans := rec.Ended()
		if got := spans[len(spans)-1].Status().Code; got != codes.Error {
			t.Errorf("expected error status, got %v", got)
		}
	})

	t.Run("continues the incoming trace", func(t *testing.T) {
		r := get("child")
		r.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
		serve(r, 200)

		spans := rec.Ended()
		span := spans[len(spans)-1]
		if got := span.Parent().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
			t.Errorf("unexpected parent trace id: %s", got)
		}
		if got := span.SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
			t.Errorf("span did not join the trace: %s", got)
		}
	})

	t.Run("excludes specified paths", func(t *testing.T) {
		before := len(rec.Ended())
		ctx := serve(get("health"), 200)

		if len(rec.Ended()) != before {
			t.Error("expected no span for an excluded path")
		}
		if trace.SpanFromContext(ctx).SpanContext().IsValid() {
			t.Error("expected no span in the context of an excluded path")
		}
	})
}

func TestHeaderCarrier(t *testing.T) {
	h := bserve.Header{}
	c := headerCarrier(h)
	c.Set("Traceparent", "x")

	if got := c.Get("traceparent"); got != "x" {
		t.Errorf("unexpected value: %q", got)
	}
	if keys := c.Keys(); len(keys) != 1 || keys[0] != "traceparent" {
		t.Errorf("unexpected keys: %v", keys)
	}
}
