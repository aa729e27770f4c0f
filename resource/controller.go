// Package resource bounds how many batches are reduced at once, how much
// batch memory is held, and how fast partial aggregates are written.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrentBatches is the maximum number of batches reduced at once.
	// If 0, defaults to 1.
	MaxConcurrentBatches int64

	// MemoryLimitBytes is the hard limit for the estimated size of in-flight batches.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// IOLimitBytesPerSec is the maximum throughput for persisting partials.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller hands out batch slots, memory and IO budget.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	batchSem *semaphore.Weighted

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentBatches <= 0 {
		cfg.MaxConcurrentBatches = 1
	}

	c := &Controller{
		cfg:      cfg,
		batchSem: semaphore.NewWeighted(cfg.MaxConcurrentBatches),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the effective limits.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireBatch reserves a batch slot, blocking until one is free.
func (c *Controller) AcquireBatch(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.batchSem.Acquire(ctx, 1)
}

// TryAcquireBatch reserves a batch slot without blocking.
func (c *Controller) TryAcquireBatch() bool {
	if c == nil {
		return true
	}
	return c.batchSem.TryAcquire(1)
}

// ReleaseBatch frees a batch slot.
func (c *Controller) ReleaseBatch() {
	if c == nil {
		return
	}
	c.batchSem.Release(1)
}

// AcquireMemory reserves memory for a batch. With a hard limit it blocks
// until enough is released or ctx is done. A request larger than the
// limit is clamped to the limit so a single oversized batch can still run
// alone instead of deadlocking.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, c.clamp(bytes)); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory reserves memory without blocking.
// Returns true if acquired, false if the limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(c.clamp(bytes)) {
			return false
		}
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases memory reserved with the same byte count.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(c.clamp(bytes))
	}
	c.memUsed.Add(-bytes)
}

func (c *Controller) clamp(bytes int64) int64 {
	return min(bytes, c.cfg.MemoryLimitBytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireIO waits until the IO limit allows bytes more bytes. Requests
// above the burst size are split.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
