package sched

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countdown yields once per step until n reaches zero.
func countdown(trace *[]string, label string) Func {
	var fn Func
	fn = func(env *Env, args []any) (any, error) {
		n := args[0].(int)
		*trace = append(*trace, label)
		if n == 0 {
			return label, nil
		}
		if env.ConsumeTimeslice(TurnCapacity) {
			return env.Yield("countdown", fn, n-1)
		}
		return nil, errors.New("unreachable")
	}
	return fn
}

func TestEnv_ConsumeTimeslice(t *testing.T) {
	env := &Env{task: &Task{}}

	assert.False(t, env.ConsumeTimeslice(40))
	assert.False(t, env.ConsumeTimeslice(0)) // clamped to 1
	assert.Equal(t, 41, env.Consumed())
	assert.True(t, env.ConsumeTimeslice(59))

	fresh := &Env{task: &Task{}}
	assert.True(t, fresh.ConsumeTimeslice(250), "cost over capacity always exhausts")
	assert.Equal(t, TurnCapacity, fresh.Consumed())
}

func TestScheduler_CallRunsContinuations(t *testing.T) {
	var trace []string
	var suspended []string
	s := New(Config{OnSuspend: func(name string) { suspended = append(suspended, name) }})

	res, err := s.Call(t.Context(), "countdown", countdown(&trace, "a"), 3)
	require.NoError(t, err)
	assert.Equal(t, "a", res)
	assert.Len(t, trace, 4)
	assert.Equal(t, []string{"countdown", "countdown", "countdown"}, suspended)

	st := s.Stats()
	assert.Equal(t, uint64(4), st.Turns)
	assert.Equal(t, uint64(3), st.Suspends)
	assert.Equal(t, uint64(1), st.Completed)
	assert.Equal(t, 0, st.Queued)
}

func TestScheduler_InterleavesTasks(t *testing.T) {
	var trace []string
	s := New(Config{})

	a := s.Submit("a", countdown(&trace, "a"), 2)
	b := s.Submit("b", countdown(&trace, "b"), 2)

	require.NoError(t, s.RunAll(t.Context()))
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, trace)

	ra, err := a.Result()
	require.NoError(t, err)
	assert.Equal(t, "a", ra)
	assert.Equal(t, 3, b.Turns())
	assert.True(t, b.Done())
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	var trace []string
	s := New(Config{})
	task := s.Submit("a", countdown(&trace, "a"), 5)

	require.True(t, s.Step())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := s.Run(ctx, task)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, task.Done())

	_, err = task.Result()
	assert.ErrorIs(t, err, ErrNotDone)

	assert.True(t, s.Drop(task))
	assert.False(t, s.Drop(task))
	assert.Equal(t, 0, s.Stats().Queued)
}

func TestScheduler_ErrorCompletesTask(t *testing.T) {
	boom := errors.New("boom")
	s := New(Config{})

	_, err := s.Call(t.Context(), "fail", func(*Env, []any) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Step())
}
