package bowgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    addCounter     prometheus.Counter
//	    queryHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordAdd(duration time.Duration, err error) {
//	    p.addCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordAdd is called after each add operation.
	// duration is the total time taken, err is nil if successful.
	RecordAdd(duration time.Duration, err error)

	// RecordBatchAdd is called after each batch add operation.
	// count is the number of items attempted, failed is the number that
	// failed, duration is the total time taken.
	RecordBatchAdd(count, failed int, duration time.Duration)

	// RecordQuery is called after each query operation.
	// limit is the requested result cap (0 for a full ranking), duration is
	// the time taken, err is nil if successful.
	RecordQuery(limit int, duration time.Duration, err error)

	// RecordRemove is called after each remove operation.
	RecordRemove(duration time.Duration, err error)

	// RecordSnapshot is called after each snapshot save or load.
	RecordSnapshot(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)         {}
func (NoopMetricsCollector) RecordBatchAdd(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)      {}
func (NoopMetricsCollector) RecordSnapshot(time.Duration, error)    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount        atomic.Int64
	AddErrors       atomic.Int64
	AddTotalNanos   atomic.Int64
	BatchAddCount   atomic.Int64
	BatchAddItems   atomic.Int64
	BatchAddFailed  atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryTotalNanos atomic.Int64
	RemoveCount     atomic.Int64
	RemoveErrors    atomic.Int64
	SnapshotCount   atomic.Int64
	SnapshotErrors  atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordBatchAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchAdd(count, failed int, duration time.Duration) {
	b.BatchAddCount.Add(1)
	b.BatchAddItems.Add(int64(count))
	b.BatchAddFailed.Add(int64(failed))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(limit int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(duration time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(duration time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:       b.AddCount.Load(),
		AddErrors:      b.AddErrors.Load(),
		AddAvgNanos:    b.getAvgAddNanos(),
		BatchAddCount:  b.BatchAddCount.Load(),
		BatchAddItems:  b.BatchAddItems.Load(),
		BatchAddFailed: b.BatchAddFailed.Load(),
		QueryCount:     b.QueryCount.Load(),
		QueryErrors:    b.QueryErrors.Load(),
		QueryAvgNanos:  b.getAvgQueryNanos(),
		RemoveCount:    b.RemoveCount.Load(),
		RemoveErrors:   b.RemoveErrors.Load(),
		SnapshotCount:  b.SnapshotCount.Load(),
		SnapshotErrors: b.SnapshotErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgAddNanos() int64 {
	count := b.AddCount.Load()
	if count == 0 {
		return 0
	}
	return b.AddTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount       int64
	AddErrors      int64
	AddAvgNanos    int64
	BatchAddCount  int64
	BatchAddItems  int64
	BatchAddFailed int64
	QueryCount     int64
	QueryErrors    int64
	QueryAvgNanos  int64
	RemoveCount    int64
	RemoveErrors   int64
	SnapshotCount  int64
	SnapshotErrors int64
}
