package sched

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hupe1980/ebitmap/internal/wallclock"
)

// TurnCapacity is the number of cost units one turn grants a task.
const TurnCapacity = 100

// ErrNotDone is returned by Task.Result while the task is still queued.
var ErrNotDone = errors.New("sched: task not done")

// Func is one invocation of a native operation. It returns a result, an
// error, or a *Continuation obtained from Env.Yield.
type Func func(env *Env, args []any) (any, error)

// Continuation names the function and arguments to invoke on the task's
// next turn.
type Continuation struct {
	Name string
	Fn   Func
	Args []any
}

// Env is the per-turn view a Func has of the scheduler.
type Env struct {
	task     *Task
	consumed int
}

// ConsumeTimeslice reports percent of the turn as used and returns true once
// the turn's capacity is exhausted. percent is clamped to [1, 100], so a
// report of 100 or more always exhausts the turn.
func (e *Env) ConsumeTimeslice(percent int) bool {
	percent = min(max(percent, 1), TurnCapacity)
	e.consumed += percent
	return e.consumed >= TurnCapacity
}

// Consumed returns the units used so far in this turn.
func (e *Env) Consumed() int {
	return e.consumed
}

// Turn returns the 1-based number of the turn being executed for this task.
func (e *Env) Turn() int {
	return e.task.turns
}

// Yield packages a continuation. The Func must return it as its result;
// the scheduler then re-invokes fn with args on a later turn.
func (e *Env) Yield(name string, fn Func, args ...any) (any, error) {
	return &Continuation{Name: name, Fn: fn, Args: args}, nil
}

// Task is one submitted operation, possibly spanning many turns.
type Task struct {
	id    uint64
	name  string
	fn    Func
	args  []any
	start time.Time

	turns  int
	done   bool
	result any
	err    error
}

// ID returns the submission sequence number.
func (t *Task) ID() uint64 { return t.id }

// Name returns the name of the function the task will run next.
func (t *Task) Name() string { return t.name }

// Turns returns how many turns the task has been given.
func (t *Task) Turns() int { return t.turns }

// Done reports whether the task has finished.
func (t *Task) Done() bool { return t.done }

// Result returns the task's outcome, or ErrNotDone while it is still queued.
func (t *Task) Result() (any, error) {
	if !t.done {
		return nil, ErrNotDone
	}
	return t.result, t.err
}

// Stats counts scheduler activity.
type Stats struct {
	Turns     uint64
	Suspends  uint64
	Completed uint64
	Queued    int
}

// Config configures a Scheduler.
type Config struct {
	Clock  wallclock.WallClock
	Logger *slog.Logger

	// OnSuspend is called each time a task yields a continuation.
	OnSuspend func(name string)
}

// Scheduler is a single-threaded cooperative run queue. Each turn invokes one
// task with a fresh TurnCapacity; a task that yields goes to the back of the
// queue, so long-running tasks interleave with everything else.
//
// A Scheduler is not safe for concurrent use.
type Scheduler struct {
	clock     wallclock.WallClock
	logger    *slog.Logger
	onSuspend func(string)

	queue  []*Task
	nextID uint64
	stats  Stats
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = wallclock.Instance
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		onSuspend: cfg.OnSuspend,
	}
}

// Submit queues fn for execution and returns its task.
func (s *Scheduler) Submit(name string, fn Func, args ...any) *Task {
	s.nextID++
	t := &Task{
		id:    s.nextID,
		name:  name,
		fn:    fn,
		args:  args,
		start: s.clock.Now(),
	}
	s.queue = append(s.queue, t)
	return t
}

// Step runs one turn of the task at the head of the queue.
// It returns false if the queue was empty.
func (s *Scheduler) Step() bool {
	if len(s.queue) == 0 {
		return false
	}
	t := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]

	t.turns++
	s.stats.Turns++
	env := &Env{task: t}
	res, err := t.fn(env, t.args)

	if c, ok := res.(*Continuation); ok && err == nil {
		t.name, t.fn, t.args = c.Name, c.Fn, c.Args
		s.stats.Suspends++
		if s.onSuspend != nil {
			s.onSuspend(c.Name)
		}
		s.logger.Debug("task suspended", "task", t.id, "fn", c.Name, "turn", t.turns, "consumed", env.consumed)
		s.queue = append(s.queue, t)
		return true
	}

	t.done, t.result, t.err = true, res, err
	t.args = nil
	s.stats.Completed++
	s.logger.Debug("task completed", "task", t.id, "fn", t.name, "turns", t.turns,
		"elapsed", s.clock.Since(t.start), "error", err)
	return true
}

// Run drives the queue until t completes. Other queued tasks get their turns
// in order along the way. If ctx is cancelled between turns, Run returns the
// context's error and t stays queued.
func (s *Scheduler) Run(ctx context.Context, t *Task) (any, error) {
	for !t.done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.Step() {
			return nil, ErrNotDone
		}
	}
	return t.result, t.err
}

// RunAll drives the queue until it is empty or ctx is cancelled.
func (s *Scheduler) RunAll(ctx context.Context) error {
	for len(s.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Step()
	}
	return nil
}

// Call submits fn and runs it to completion.
func (s *Scheduler) Call(ctx context.Context, name string, fn Func, args ...any) (any, error) {
	return s.Run(ctx, s.Submit(name, fn, args...))
}

// Drop removes t from the queue without running it further. Whatever t
// already committed stays committed.
func (s *Scheduler) Drop(t *Task) bool {
	for i, q := range s.queue {
		if q == t {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			t.args = nil
			return true
		}
	}
	return false
}

// Stats returns scheduler counters.
func (s *Scheduler) Stats() Stats {
	st := s.stats
	st.Queued = len(s.queue)
	return st
}
