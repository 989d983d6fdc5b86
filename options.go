package ebitmap

import (
	"log/slog"
	"time"

	"github.com/hupe1980/ebitmap/internal/builder"
	"github.com/hupe1980/ebitmap/internal/rbm"
	"github.com/hupe1980/ebitmap/internal/wallclock"
)

// Clock supplies wall time to the bulk-insert builder, the scheduler and
// operation latency metrics.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type options struct {
	metricsCollector     MetricsCollector
	logger               *Logger
	chunkSize            int
	maxSlice             time.Duration
	clock                Clock
	defaultCapacity      int
	memoryLimit          int64
	ioLimit              int64
	maxBackgroundWorkers int64
}

// Option configures a Runtime.
type Option func(*options)

// WithMetricsCollector configures metrics collection for operations.
// Pass nil to disable metrics collection.
//
// Example using the built-in collector:
//
//	metrics := &ebitmap.BasicMetricsCollector{}
//	rt := ebitmap.New(ebitmap.WithMetricsCollector(metrics))
//	// ... use rt ...
//	stats := metrics.GetStats()
//	fmt.Printf("Ops: %d, suspensions: %d\n", stats.OperationCount, stats.SuspendCount)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := ebitmap.NewJSONLogger(slog.LevelInfo)
//	rt := ebitmap.New(ebitmap.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithChunkSize sets how many values a bulk insert adds between timing
// checkpoints. Default: 1000.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithMaxSlice sets the wall time that counts as one full scheduler turn.
// Default: 160µs.
func WithMaxSlice(d time.Duration) Option {
	return func(o *options) {
		o.maxSlice = d
	}
}

// WithClock replaces the wall clock used to time bulk-insert chunks and
// operations.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithDefaultCapacity sets the capacity hint used by Create. Default: 8192.
func WithDefaultCapacity(n int) Option {
	return func(o *options) {
		o.defaultCapacity = n
	}
}

// WithMemoryLimit caps the summed in-memory size of live sets. Creating a
// set beyond the limit fails with ErrMemoryLimitExceeded. Default: unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithIOLimit throttles snapshot transfers to bytesPerSec. Default: unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithMaxBackgroundWorkers bounds concurrent snapshot uploads in SaveAll.
// Default: 1.
func WithMaxBackgroundWorkers(n int64) Option {
	return func(o *options) {
		o.maxBackgroundWorkers = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		chunkSize:        builder.DefaultChunkSize,
		maxSlice:         builder.DefaultMaxSlice,
		clock:            wallclock.Instance,
		defaultCapacity:  rbm.DefaultCapacity,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
