package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Run outcomes recorded by Metrics.RecordRun.
const (
	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
	OutcomeRefresh = "refresh"
	OutcomeError   = "error"
)

// Storage operations recorded by Metrics.RecordStorageError.
const (
	OpRead  = "read"
	OpWrite = "write"
	OpClear = "clear"
)

// Metrics records fragment run metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRun records one orchestrator run. duration is the producer
	// time and is zero for hits.
	RecordRun(ctx context.Context, meta FragmentMeta, outcome string, duration time.Duration, err error)

	// RecordStorageError counts a degraded backend operation.
	RecordStorageError(ctx context.Context, meta FragmentMeta, op string, err error)
}

type metricsImpl struct {
	runCount     metric.Int64Counter
	storageErrs  metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the fragment instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	runCount, err := meter.Int64Counter(
		"fragment.run.total",
		metric.WithDescription("Total number of fragment runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	storageErrs, err := meter.Int64Counter(
		"fragment.storage.errors",
		metric.WithDescription("Backend operations that failed and were degraded"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"fragment.produce.duration_ms",
		metric.WithDescription("Producer duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		runCount:     runCount,
		storageErrs:  storageErrs,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordRun(ctx context.Context, meta FragmentMeta, outcome string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("fragment.namespace", meta.Namespace),
		attribute.String("fragment.outcome", outcome),
	}
	if meta.Backend != "" {
		attrs = append(attrs, attribute.String("fragment.backend", meta.Backend))
	}
	opt := metric.WithAttributes(attrs...)

	m.runCount.Add(ctx, 1, opt)
	if outcome != OutcomeHit {
		m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
	}
}

func (m *metricsImpl) RecordStorageError(ctx context.Context, meta FragmentMeta, op string, _ error) {
	attrs := []attribute.KeyValue{
		attribute.String("fragment.namespace", meta.Namespace),
		attribute.String("fragment.op", op),
	}
	if meta.Backend != "" {
		attrs = append(attrs, attribute.String("fragment.backend", meta.Backend))
	}
	m.storageErrs.Add(ctx, 1, metric.WithAttributes(attrs...))
}

type noopMetrics struct{}

func (noopMetrics) RecordRun(context.Context, FragmentMeta, string, time.Duration, error) {}

func (noopMetrics) RecordStorageError(context.Context, FragmentMeta, string, error) {}

var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = noopMetrics{}
)
