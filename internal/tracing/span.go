package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/memora/memora-load/internal/classify"
)

const (
	attrTask           = attribute.Key("memora.task")
	attrClass          = attribute.Key("memora.user_class")
	attrClassification = attribute.Key("memora.classification")
	attrFailureKind    = attribute.Key("memora.failure_kind")
)

// StartRequestSpan starts a client span named after the request label
// (e.g. "GET Deck"). task and class may be empty for setup requests.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, name, task, class string) (context.Context, trace.Span) {
	if name == "" {
		name = "request"
	}
	ctx, span := tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	if task != "" {
		span.SetAttributes(attrTask.String(task))
	}
	if class != "" {
		span.SetAttributes(attrClass.String(class))
	}
	return ctx, span
}

// HTTPAttributes describes the route a request was sent to.
func HTTPAttributes(method, route string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.HTTPRequestMethodKey.String(method)}
	if route != "" {
		attrs = append(attrs, semconv.HTTPRoute(route))
	}
	return attrs
}

// EndRequestSpan finishes a span with the classified outcome. Rate-limited
// responses are not errors.
func EndRequestSpan(span trace.Span, outcome classify.Outcome, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	span.SetAttributes(attrClassification.String(outcome.Class.String()))
	if outcome.Status > 0 {
		span.SetAttributes(semconv.HTTPResponseStatusCode(outcome.Status))
	}
	if !outcome.Failed() {
		span.SetStatus(codes.Ok, "")
		span.End()
		return
	}
	span.SetAttributes(attrFailureKind.String(string(outcome.Kind)))
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	} else {
		span.SetStatus(codes.Error, outcome.Class.String())
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
