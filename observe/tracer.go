package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// FragmentMeta identifies a fragment run for telemetry purposes.
type FragmentMeta struct {
	Namespace string // Backend namespace (required)
	Backend   string // Backend kind, e.g. "file", "object" (optional)
	Key       string // Derived content key (optional)
}

// SpanName returns the deterministic span name for this fragment.
// Format: fragment.run.<namespace>
func (m FragmentMeta) SpanName() string {
	return "fragment.run." + m.Namespace
}

func (m FragmentMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("fragment.namespace", m.Namespace),
	}
	if m.Backend != "" {
		attrs = append(attrs, attribute.String("fragment.backend", m.Backend))
	}
	if m.Key != "" {
		attrs = append(attrs, attribute.String("fragment.key", m.Key))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with fragment-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a fragment run.
	StartSpan(ctx context.Context, meta FragmentMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the run outcome and any error.
	EndSpan(span trace.Span, outcome string, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return newNoopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta FragmentMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(meta.attributes()...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, outcome string, err error) {
	if outcome != "" {
		span.SetAttributes(attribute.String("fragment.outcome", outcome))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta FragmentMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ string, _ error) {
	span.End()
}
