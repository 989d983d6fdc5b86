package builder

import (
	"runtime"
	"testing"
	"time"

	"github.com/hupe1980/ebitmap/internal/handle"
	"github.com/hupe1980/ebitmap/internal/rbm"
	"github.com/hupe1980/ebitmap/internal/sched"
	"github.com/hupe1980/ebitmap/internal/term"
	"github.com/hupe1980/ebitmap/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFunc(b *Builder, cur term.Cursor) sched.Func {
	return func(env *sched.Env, _ []any) (any, error) {
		return b.Start(env, cur)
	}
}

func resolve(t *testing.T, tbl *handle.Table, res any) (*handle.Ref, *rbm.Set) {
	t.Helper()
	ref, ok := res.(*handle.Ref)
	require.True(t, ok, "result is %T", res)
	set, err := tbl.Resolve(ref)
	require.NoError(t, err)
	return ref, set
}

func TestCost(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"zero clamps to one", 0, 1},
		{"tiny clamps to one", time.Nanosecond, 1},
		{"half slice", 80 * time.Microsecond, 50},
		{"full slice", 160 * time.Microsecond, 100},
		{"overrun clamps to hundred", time.Second, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cost(tt.elapsed, DefaultMaxSlice))
		})
	}

	assert.Equal(t, sched.TurnCapacity, Cost(time.Millisecond, 0))
}

func TestNew_Defaults(t *testing.T) {
	b := New(handle.NewTable(handle.Config{}), Config{})

	cfg := b.Config()
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, DefaultMaxSlice, cfg.MaxSlice)
	assert.NotNil(t, cfg.Clock)
	assert.NotNil(t, cfg.Logger)
}

func TestBuilder_SuspendsEveryChunk(t *testing.T) {
	tbl := handle.NewTable(handle.Config{})
	b := New(tbl, Config{Clock: testutil.NewFakeClock(DefaultMaxSlice)})
	s := sched.New(sched.Config{})

	task := s.Submit("create_of", startFunc(b, term.Values(testutil.Sequential(0, 10_000)...)))
	res, err := s.Run(t.Context(), task)
	require.NoError(t, err)

	assert.Equal(t, 10, task.Turns())
	assert.Equal(t, uint64(9), s.Stats().Suspends)

	ref, set := resolve(t, tbl, res)
	assert.Equal(t, uint64(10_000), set.Cardinality())
	for _, v := range []uint32{0, 999, 1000, 9999} {
		assert.True(t, set.Contains(v), "missing %d", v)
	}
	assert.False(t, set.Contains(10_000))
	runtime.KeepAlive(ref)
}

func TestBuilder_HalfCostChunks(t *testing.T) {
	tbl := handle.NewTable(handle.Config{})
	b := New(tbl, Config{Clock: testutil.NewFakeClock(DefaultMaxSlice / 2)})
	s := sched.New(sched.Config{})

	task := s.Submit("create_of", startFunc(b, term.Values(testutil.Sequential(0, 10_000)...)))
	res, err := s.Run(t.Context(), task)
	require.NoError(t, err)

	// Two chunks fill a turn.
	assert.Equal(t, 5, task.Turns())
	assert.Equal(t, uint64(4), s.Stats().Suspends)

	ref, set := resolve(t, tbl, res)
	assert.Equal(t, uint64(10_000), set.Cardinality())
	runtime.KeepAlive(ref)
}

func TestBuilder_ExactMultipleDoesNotSuspendAtEnd(t *testing.T) {
	tbl := handle.NewTable(handle.Config{})
	b := New(tbl, Config{ChunkSize: 10, Clock: testutil.NewFakeClock(time.Hour)})
	s := sched.New(sched.Config{})

	task := s.Submit("create_of", startFunc(b, term.Values(testutil.Sequential(0, 10)...)))
	_, err := s.Run(t.Context(), task)
	require.NoError(t, err)

	assert.Equal(t, 1, task.Turns())
	assert.Zero(t, s.Stats().Suspends)
}

func TestBuilder_EmptySequence(t *testing.T) {
	tbl := handle.NewTable(handle.Config{})
	b := New(tbl, Config{})
	s := sched.New(sched.Config{})

	res, err := s.Call(t.Context(), "create_of", startFunc(b, term.Values()))
	require.NoError(t, err)

	ref, set := resolve(t, tbl, res)
	assert.True(t, set.IsEmpty())
	runtime.KeepAlive(ref)
}

func TestBuilder_MatchesUnboundedBuild(t *testing.T) {
	vals := testutil.NewRNG(42).Uint32s(25_000, 1<<22)

	sliced := handle.NewTable(handle.Config{})
	b := New(sliced, Config{ChunkSize: 256, Clock: testutil.NewFakeClock(DefaultMaxSlice)})
	s := sched.New(sched.Config{})

	task := s.Submit("create_of", startFunc(b, term.Values(vals...)))
	res, err := s.Run(t.Context(), task)
	require.NoError(t, err)
	assert.Greater(t, task.Turns(), 1)

	ref, got := resolve(t, sliced, res)
	want := rbm.Of(vals...)

	assert.True(t, rbm.Equals(want, got))
	assert.Equal(t, uint64(len(testutil.Distinct(vals))), got.Cardinality())
	runtime.KeepAlive(ref)
}

func TestBuilder_InterleavesWithOtherTasks(t *testing.T) {
	tbl := handle.NewTable(handle.Config{})
	b := New(tbl, Config{Clock: testutil.NewFakeClock(DefaultMaxSlice)})
	s := sched.New(sched.Config{})

	long := s.Submit("create_of", startFunc(b, term.Values(testutil.Sequential(0, 5000)...)))
	short := s.Submit("noop", func(*sched.Env, []any) (any, error) { return "ok", nil })

	// The long task suspends after its first chunk, so the short one finishes
	// on the second turn.
	require.True(t, s.Step())
	require.True(t, s.Step())
	assert.True(t, short.Done())
	assert.False(t, long.Done())

	require.NoError(t, s.RunAll(t.Context()))
	assert.True(t, long.Done())
}

func TestBuilder_PartialFailureAndRetry(t *testing.T) {
	tbl := handle.NewTable(handle.Config{})
	b := New(tbl, Config{})
	s := sched.New(sched.Config{})

	ref, err := tbl.Allocate(rbm.NewWithCapacity(0))
	require.NoError(t, err)

	bad, ok := term.NewCursor([]any{1, 2, "three", 4})
	require.True(t, ok)

	_, err = s.Call(t.Context(), ContinueName, func(env *sched.Env, _ []any) (any, error) {
		return b.Run(env, bad, ref)
	})

	var perr *PartialError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Position)
	assert.Same(t, ref, perr.Ref)

	var eerr *term.ElementError
	require.ErrorAs(t, err, &eerr)

	set, err := tbl.Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), set.Cardinality())
	assert.True(t, set.Contains(1))
	assert.True(t, set.Contains(2))

	// Re-inserting the whole corrected list converges to the full set.
	res, err := s.Call(t.Context(), ContinueName, func(env *sched.Env, _ []any) (any, error) {
		return b.Run(env, term.Values(1, 2, 3, 4), ref)
	})
	require.NoError(t, err)
	assert.Same(t, ref, res)
	assert.True(t, rbm.Equals(rbm.Of(1, 2, 3, 4), set))

	runtime.KeepAlive(ref)
}

// closingCursor closes ref just before yielding the element at closeAt.
type closingCursor struct {
	term.Cursor
	ref     *handle.Ref
	closeAt int
}

func (c *closingCursor) Next() (uint32, bool, error) {
	if c.Pos() == c.closeAt {
		_ = c.ref.Close()
	}
	return c.Cursor.Next()
}

func TestBuilder_PartialFailureReportsRechargeError(t *testing.T) {
	tbl := handle.NewTable(handle.Config{})
	b := New(tbl, Config{})
	s := sched.New(sched.Config{})

	ref, err := tbl.Allocate(rbm.NewWithCapacity(0))
	require.NoError(t, err)

	inner, ok := term.NewCursor([]any{1, "two"})
	require.True(t, ok)
	cur := &closingCursor{Cursor: inner, ref: ref, closeAt: 1}

	_, err = s.Call(t.Context(), ContinueName, func(env *sched.Env, _ []any) (any, error) {
		return b.Run(env, cur, ref)
	})

	var perr *PartialError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Position)

	var eerr *term.ElementError
	assert.ErrorAs(t, err, &eerr)
	assert.ErrorIs(t, err, handle.ErrInvalidHandle)
}

func TestBuilder_RunOnDestroyedHandle(t *testing.T) {
	tbl := handle.NewTable(handle.Config{})
	b := New(tbl, Config{})
	s := sched.New(sched.Config{})

	ref, err := tbl.Allocate(rbm.Of(1))
	require.NoError(t, err)
	require.NoError(t, ref.Close())

	_, err = s.Call(t.Context(), ContinueName, func(env *sched.Env, _ []any) (any, error) {
		return b.Run(env, term.Values(2), ref)
	})
	assert.ErrorIs(t, err, handle.ErrInvalidHandle)
}
