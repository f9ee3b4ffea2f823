package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache engine measurements.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; never block the workspace critical section.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordWorkspace records one workspace request with its outcome.
	RecordWorkspace(ctx context.Context, meta CacheMeta, duration time.Duration, hit bool, err error)

	// RecordLockWait records how long a caller waited for the workspace lock.
	RecordLockWait(ctx context.Context, meta CacheMeta, wait time.Duration)

	// RecordEviction records one evicted cache entry.
	RecordEviction(ctx context.Context, identity string)

	// RecordJournalFailure counts a failed best-effort journal write.
	RecordJournalFailure(ctx context.Context, identity string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter           metric.Meter
	requestCount    metric.Int64Counter
	hitCount        metric.Int64Counter
	missCount       metric.Int64Counter
	errorCount      metric.Int64Counter
	durationHist    metric.Float64Histogram
	lockWaitHist    metric.Float64Histogram
	evictionCount   metric.Int64Counter
	journalFailures metric.Int64Counter
}

// NewMetrics creates a Metrics instance recording to the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	requestCount, err := meter.Int64Counter(
		"cache.requests.total",
		metric.WithDescription("Total number of workspace requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	hitCount, err := meter.Int64Counter(
		"cache.hits.total",
		metric.WithDescription("Workspace requests answered from history"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	missCount, err := meter.Int64Counter(
		"cache.misses.total",
		metric.WithDescription("Workspace requests that ran the production action"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"cache.errors.total",
		metric.WithDescription("Workspace requests that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"cache.request.duration_ms",
		metric.WithDescription("Workspace request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lockWaitHist, err := meter.Float64Histogram(
		"cache.lock.wait_ms",
		metric.WithDescription("Time spent waiting for the workspace lock in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	evictionCount, err := meter.Int64Counter(
		"cache.evictions.total",
		metric.WithDescription("Cache entries removed by retention sweeps"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	journalFailures, err := meter.Int64Counter(
		"cache.journal.failures.total",
		metric.WithDescription("Failed best-effort access journal writes"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:           meter,
		requestCount:    requestCount,
		hitCount:        hitCount,
		missCount:       missCount,
		errorCount:      errorCount,
		durationHist:    durationHist,
		lockWaitHist:    lockWaitHist,
		evictionCount:   evictionCount,
		journalFailures: journalFailures,
	}, nil
}

func (m *metricsImpl) attrs(meta CacheMeta) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("cache.identity", meta.Identity),
		attribute.String("cache.operation", meta.Operation),
	)
}

// RecordWorkspace records one workspace request.
func (m *metricsImpl) RecordWorkspace(ctx context.Context, meta CacheMeta, duration time.Duration, hit bool, err error) {
	opt := m.attrs(meta)

	m.requestCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	} else if hit {
		m.hitCount.Add(ctx, 1, opt)
	} else {
		m.missCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordLockWait records contention on the workspace lock.
func (m *metricsImpl) RecordLockWait(ctx context.Context, meta CacheMeta, wait time.Duration) {
	m.lockWaitHist.Record(ctx, float64(wait.Milliseconds()), m.attrs(meta))
}

// RecordEviction records one evicted entry.
func (m *metricsImpl) RecordEviction(ctx context.Context, identity string) {
	m.evictionCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.identity", identity)))
}

// RecordJournalFailure counts a failed journal write.
func (m *metricsImpl) RecordJournalFailure(ctx context.Context, identity string) {
	m.journalFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.identity", identity)))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return &noopMetrics{} }

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordWorkspace(ctx context.Context, meta CacheMeta, duration time.Duration, hit bool, err error) {
}
func (m *noopMetrics) RecordLockWait(ctx context.Context, meta CacheMeta, wait time.Duration) {}
func (m *noopMetrics) RecordEviction(ctx context.Context, identity string)                    {}
func (m *noopMetrics) RecordJournalFailure(ctx context.Context, identity string)              {}
