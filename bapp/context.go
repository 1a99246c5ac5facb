package bapp

import (
	"context"
	"time"

	"github.com/advdv/bserve"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey is the key type for context values.
type ctxKey int

const (
	ctxKeyRequestDep ctxKey = iota
)

// requestDep holds request-scoped dependencies available via context.
// App-scoped dependencies (env, router, secrets) are accessed via Runtime instead.
type requestDep struct {
	logger *zap.Logger
}

// accessLog makes the logger available to handlers and logs every served request.
type accessLog struct {
	dep *requestDep
	now func() time.Time
}

func newAccessLog(logger *zap.Logger) *accessLog {
	return &accessLog{dep: &requestDep{logger: logger}, now: time.Now}
}

// ObserveRequest implements [bserve.Observer].
func (a *accessLog) ObserveRequest(ctx context.Context, r *bserve.Request) (context.Context, func(*bserve.Response)) {
	ctx = context.WithValue(ctx, ctxKeyRequestDep, a.dep)
	start := a.now()

	return ctx, func(w *bserve.Response) {
		Log(ctx).Info("request served",
			zap.String("method", string(r.Method)),
			zap.String("path", r.URLPath()),
			zap.Stringer("version", r.Version),
			zap.Int("status", w.Status()),
			zap.Int("bytes", len(w.Body())),
			zap.Duration("duration", a.now().Sub(start)))
	}
}

func requestDepFromContext(ctx context.Context) *requestDep {
	d, ok := ctx.Value(ctxKeyRequestDep).(*requestDep)
	if !ok {
		panic("bapp: requestDep not found in context; is the access log observer configured?")
	}
	return d
}

// Log returns a trace-correlated zap logger from the context.
func Log(ctx context.Context) *zap.Logger {
	d := requestDepFromContext(ctx)
	return d.logger.With(traceFields(ctx)...)
}

// Span returns the current trace span from the context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// traceFields extracts trace_id and span_id from the context for log correlation.
func traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	sc := span.SpanContext()
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
