package resource

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Reserve(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.Reserve(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.Reserve(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Would exceed the limit: nothing is charged.
	assert.ErrorIs(t, c.Reserve(20), ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.Release(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.Reserve(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_AdjustIgnoresLimit(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})
	require.NoError(t, c.Reserve(80))

	c.Adjust(80, 150)
	assert.Equal(t, int64(150), c.MemoryUsage())
	assert.ErrorIs(t, c.Reserve(1), ErrMemoryLimitExceeded)

	c.Adjust(150, 10)
	assert.Equal(t, int64(10), c.MemoryUsage())
}

func TestController_Unlimited(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.Reserve(1<<40))
	assert.Equal(t, int64(1<<40), c.MemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())
}

func TestController_NilChecks(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.Reserve(10))
	c.Adjust(1, 2)
	c.Release(10)
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.NoError(t, c.AcquireBackground(context.Background()))
	c.ReleaseBackground()
	assert.NoError(t, c.AcquireIO(context.Background(), 1<<20))
}

func TestController_Background(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 2})

	require.NoError(t, c.AcquireBackground(t.Context()))
	require.NoError(t, c.AcquireBackground(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireBackground(ctx))

	c.ReleaseBackground()
	require.NoError(t, c.AcquireBackground(t.Context()))
}

func TestController_AcquireIOLargerThanBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// Twice the burst: admitted in two steps instead of failing outright.
	require.NoError(t, c.AcquireIO(t.Context(), 1<<20+1))
}

func TestController_AcquireIOCancelled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 10})
	require.NoError(t, c.AcquireIO(t.Context(), 10))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.Error(t, c.AcquireIO(ctx, 10))
}

func TestRateLimitedReader(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	src := bytes.Repeat([]byte("x"), 4096)

	r := NewRateLimitedReader(t.Context(), bytes.NewReader(src), c)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}
