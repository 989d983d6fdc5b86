package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when reserving memory for a new set
// would exceed the configured limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes caps the summed footprint of live sets.
	// If 0, usage is tracked but never refused.
	MemoryLimitBytes int64

	// MaxBackgroundWorkers bounds concurrent snapshot uploads.
	// If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec throttles snapshot transfers.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller accounts for the memory held by live sets and meters snapshot IO.
type Controller struct {
	cfg Config

	memUsed atomic.Int64

	bgSem *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Reserve charges bytes for a new set. It fails with ErrMemoryLimitExceeded,
// charging nothing, if the limit would be exceeded. Non-blocking.
func (c *Controller) Reserve(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	limit := c.cfg.MemoryLimitBytes
	for {
		used := c.memUsed.Load()
		if limit > 0 && used+bytes > limit {
			return ErrMemoryLimitExceeded
		}
		if c.memUsed.CompareAndSwap(used, used+bytes) {
			return nil
		}
	}
}

// Adjust moves a set's charge from oldBytes to newBytes. Growth of an
// existing set is always accounted, even past the limit: the values are
// already committed and the limit only gates new sets.
func (c *Controller) Adjust(oldBytes, newBytes int64) {
	if c == nil || oldBytes == newBytes {
		return
	}
	c.memUsed.Add(newBytes - oldBytes)
}

// Release returns a set's charge.
func (c *Controller) Release(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the bytes currently charged.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireBackground reserves an upload slot, blocking until one frees up.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.bgSem.Acquire(ctx, 1)
}

// ReleaseBackground releases an upload slot.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// AcquireIO waits until the IO limit admits n bytes. Requests larger than the
// limiter's burst are admitted in burst-sized steps.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}

	burst := c.ioLimiter.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.ioLimiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
