package ebitmap

import (
	"runtime"
	"testing"
	"time"

	"github.com/hupe1980/ebitmap/internal/builder"
	"github.com/hupe1980/ebitmap/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmap_DestroyedWhenUnreachable(t *testing.T) {
	rt := New()

	func() {
		b, err := rt.CreateOf(t.Context(), testutil.Sequential(0, 1000))
		require.NoError(t, err)
		n, err := rt.Cardinality(t.Context(), b)
		require.NoError(t, err)
		require.Equal(t, uint64(1000), n)
	}()
	require.Equal(t, 1, rt.Stats().LiveHandles)

	assert.Eventually(t, func() bool {
		runtime.GC()
		return rt.Stats().LiveHandles == 0
	}, 5*time.Second, 10*time.Millisecond)

	st := rt.Stats()
	assert.Equal(t, uint64(1), st.Allocated)
	assert.Equal(t, uint64(1), st.Destroyed)
	assert.Zero(t, st.MemoryBytes)
}

func TestBitmap_Close(t *testing.T) {
	ctx := t.Context()
	rt := New()

	b, err := rt.CreateOf(ctx, []uint32{1, 2, 3})
	require.NoError(t, err)
	require.Positive(t, rt.Stats().MemoryBytes)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Zero(t, rt.Stats().LiveHandles)
	assert.Zero(t, rt.Stats().MemoryBytes)

	_, err = rt.Cardinality(ctx, b)
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.ErrorIs(t, err, ErrBadArgument)

	_, err = rt.Add(ctx, b, 4)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

type hookClock struct {
	*testutil.FakeClock
	calls int
	at    int
	hook  func()
}

func (c *hookClock) Now() time.Time {
	c.calls++
	if c.calls == c.at && c.hook != nil {
		c.hook()
	}
	return c.FakeClock.Now()
}

func TestBitmap_CloseWaitsForInFlightCall(t *testing.T) {
	clock := &hookClock{FakeClock: testutil.NewFakeClock(builder.DefaultMaxSlice)}
	rt := New(WithClock(clock))

	b, err := rt.Create(t.Context())
	require.NoError(t, err)

	// Close from another goroutine once the builder has inserted its first
	// chunk. It must not free the set before AddAll returns.
	closed := make(chan error, 1)
	clock.calls, clock.at = 0, 4
	clock.hook = func() {
		go func() { closed <- b.Close() }()
		time.Sleep(20 * time.Millisecond)
	}

	require.NoError(t, rt.AddAll(t.Context(), b, testutil.Sequential(0, 10_000)))
	require.NoError(t, <-closed)

	assert.Zero(t, rt.Stats().LiveHandles)
	_, err = rt.Cardinality(t.Context(), b)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestBitmap_NilClose(t *testing.T) {
	var b *Bitmap
	assert.NoError(t, b.Close())
	assert.Equal(t, "#Ref<nil>", b.String())
}

func TestBitmap_StringIsOpaqueAndStable(t *testing.T) {
	rt := New()
	a, err := rt.Create(t.Context())
	require.NoError(t, err)
	b, err := rt.Create(t.Context())
	require.NoError(t, err)

	assert.Equal(t, a.String(), a.String())
	assert.NotEqual(t, a.String(), b.String())
}

func TestBitmap_ResultsAreIndependent(t *testing.T) {
	ctx := t.Context()
	rt := New()

	a, err := rt.CreateOf(ctx, []uint32{1})
	require.NoError(t, err)
	b, err := rt.CreateOf(ctx, []uint32{2})
	require.NoError(t, err)

	u, err := rt.Union(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = rt.Add(ctx, b, 3)
	require.NoError(t, err)

	n, err := rt.Cardinality(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestRuntime_MemoryLimit(t *testing.T) {
	ctx := t.Context()
	rt := New(WithMemoryLimit(1))

	_, err := rt.Create(ctx)
	require.ErrorIs(t, err, ErrMemoryLimitExceeded)

	_, err = rt.CreateOf(ctx, []uint32{1, 2, 3})
	require.ErrorIs(t, err, ErrMemoryLimitExceeded)

	st := rt.Stats()
	assert.Zero(t, st.LiveHandles)
	assert.Zero(t, st.MemoryBytes)
	assert.Equal(t, int64(1), st.MemoryLimit)
}

func TestRuntime_MemoryAccounting(t *testing.T) {
	ctx := t.Context()
	rt := New()

	b, err := rt.Create(ctx)
	require.NoError(t, err)
	empty := rt.Stats().MemoryBytes

	require.NoError(t, rt.AddAll(ctx, b, testutil.Sequential(0, 100_000)))
	assert.Greater(t, rt.Stats().MemoryBytes, empty)
}
