package ebitmap

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems;
// PrometheusCollector is a ready-made implementation.
type MetricsCollector interface {
	// RecordOperation is called after each operation completes.
	// duration spans all turns of the operation, err is nil if successful.
	RecordOperation(op string, duration time.Duration, err error)

	// RecordSuspend is called each time a bulk insert yields its turn.
	RecordSuspend(op string)

	// RecordLiveHandles is called with the number of live sets after each
	// operation.
	RecordLiveHandles(n int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOperation(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordSuspend(string)                         {}
func (NoopMetricsCollector) RecordLiveHandles(int)                        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OperationCount      atomic.Int64
	OperationErrors     atomic.Int64
	OperationTotalNanos atomic.Int64
	SuspendCount        atomic.Int64
	LiveHandles         atomic.Int64

	mu   sync.Mutex
	byOp map[string]int64
}

// RecordOperation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOperation(op string, duration time.Duration, err error) {
	b.OperationCount.Add(1)
	b.OperationTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.OperationErrors.Add(1)
	}

	b.mu.Lock()
	if b.byOp == nil {
		b.byOp = make(map[string]int64)
	}
	b.byOp[op]++
	b.mu.Unlock()
}

// RecordSuspend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSuspend(string) {
	b.SuspendCount.Add(1)
}

// RecordLiveHandles implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLiveHandles(n int) {
	b.LiveHandles.Store(int64(n))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	b.mu.Lock()
	byOp := make(map[string]int64, len(b.byOp))
	for k, v := range b.byOp {
		byOp[k] = v
	}
	b.mu.Unlock()

	return BasicMetricsStats{
		OperationCount:    b.OperationCount.Load(),
		OperationErrors:   b.OperationErrors.Load(),
		OperationAvgNanos: b.getAvgOperationNanos(),
		SuspendCount:      b.SuspendCount.Load(),
		LiveHandles:       b.LiveHandles.Load(),
		ByOp:              byOp,
	}
}

func (b *BasicMetricsCollector) getAvgOperationNanos() int64 {
	count := b.OperationCount.Load()
	if count == 0 {
		return 0
	}
	return b.OperationTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OperationCount    int64
	OperationErrors   int64
	OperationAvgNanos int64
	SuspendCount      int64
	LiveHandles       int64
	ByOp              map[string]int64
}
