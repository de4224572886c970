package middleware

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

// Tracing starts a server span per request, continuing any trace the client
// propagated. A nil provider uses the global one.
func Tracing(tp trace.TracerProvider) *filter.Filter {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer("github.com/searchktools/pulsation")

	return filter.New(func(_ filter.Props, ctx *http.Context, next filter.Next) error {
		req := ctx.Request
		parent := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier(req.Header))

		spanCtx, span := tracer.Start(parent, req.Method+" "+req.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("url.path", req.Path),
				attribute.String("network.protocol.version", req.Proto),
				attribute.Int("pulsation.fd", req.Fd),
			),
		)
		defer span.End()
		ctx.Set(ExtraTraceContext, spanCtx)

		err := next()

		status := ctx.Response.Status
		span.SetAttributes(attribute.String("http.response.status_code", strconv.Itoa(status)))
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case status >= 500:
			span.SetStatus(codes.Error, "")
		}
		return err
	}).Named("tracing")
}

// SpanContext returns the context carrying the request span, or
// context.Background when Tracing is not in the chain.
func SpanContext(ctx *http.Context) context.Context {
	if v, ok := ctx.Get(ExtraTraceContext); ok {
		if c, ok := v.(context.Context); ok {
			return c
		}
	}
	return context.Background()
}
