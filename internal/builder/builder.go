package builder

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/hupe1980/ebitmap/internal/handle"
	"github.com/hupe1980/ebitmap/internal/rbm"
	"github.com/hupe1980/ebitmap/internal/sched"
	"github.com/hupe1980/ebitmap/internal/term"
	"github.com/hupe1980/ebitmap/internal/wallclock"
)

const (
	// DefaultChunkSize is the number of insertions between timing checkpoints.
	DefaultChunkSize = 1000

	// DefaultMaxSlice is the wall time that counts as one full turn.
	DefaultMaxSlice = 160 * time.Microsecond

	// ContinueName is the function name continuations are scheduled under.
	ContinueName = "add_all"
)

// PartialError reports a bulk insert that stopped at a malformed element.
// Every value before Position was inserted into the set behind Ref and stays
// there.
type PartialError struct {
	Ref      *handle.Ref
	Position int
	Err      error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("bulk insert stopped at element %d after inserting its predecessors: %v", e.Position, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Config tunes a Builder.
type Config struct {
	// ChunkSize defaults to DefaultChunkSize.
	ChunkSize int

	// MaxSlice defaults to DefaultMaxSlice.
	MaxSlice time.Duration

	// Capacity is the hint for sets created by Start.
	Capacity int

	Clock  wallclock.WallClock
	Logger *slog.Logger
}

// Builder inserts arbitrarily long sequences into a set without holding the
// scheduler for more than one turn at a time.
type Builder struct {
	table *handle.Table
	cfg   Config
}

// New creates a Builder that allocates and resolves through table.
func New(table *handle.Table, cfg Config) *Builder {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxSlice <= 0 {
		cfg.MaxSlice = DefaultMaxSlice
	}
	if cfg.Clock == nil {
		cfg.Clock = wallclock.Instance
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{table: table, cfg: cfg}
}

// Config returns the effective configuration.
func (b *Builder) Config() Config {
	return b.cfg
}

// Cost converts the wall time of one chunk into scheduler units: 100 units
// for a full maxSlice, clamped to [1, 100].
func Cost(elapsed, maxSlice time.Duration) int {
	if maxSlice <= 0 {
		return sched.TurnCapacity
	}
	c := int64(sched.TurnCapacity) * int64(elapsed) / int64(maxSlice)
	return int(min(max(c, 1), sched.TurnCapacity))
}

// Start allocates an empty set and begins inserting cur into it within the
// same turn.
func (b *Builder) Start(env *sched.Env, cur term.Cursor) (any, error) {
	ref, err := b.table.Allocate(rbm.NewWithCapacity(b.cfg.Capacity))
	if err != nil {
		return nil, err
	}
	return b.Run(env, cur, ref)
}

// Run inserts values from cur into the set behind ref. Every ChunkSize
// insertions it charges the elapsed time to the turn; if the turn is
// exhausted and values remain it yields a continuation over the same cursor
// and ref. It returns ref once cur is drained.
func (b *Builder) Run(env *sched.Env, cur term.Cursor, ref *handle.Ref) (any, error) {
	defer runtime.KeepAlive(ref)

	set, err := b.table.Resolve(ref)
	if err != nil {
		return nil, err
	}

	chunk := b.cfg.ChunkSize
	latest := b.cfg.Clock.Now()
	count := 0
	for {
		v, ok, err := cur.Next()
		if err != nil {
			if rerr := b.table.Recharge(ref); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return nil, &PartialError{Ref: ref, Position: cur.Pos() - 1, Err: err}
		}
		if !ok {
			break
		}

		set.Add(v)
		count++
		if count%chunk != 0 {
			continue
		}

		now := b.cfg.Clock.Now()
		if env.ConsumeTimeslice(Cost(now.Sub(latest), b.cfg.MaxSlice)) && cur.Len() > 0 {
			if err := b.table.Recharge(ref); err != nil {
				return nil, err
			}
			return env.Yield(ContinueName, b.resume, cur, ref)
		}
		latest = now
	}

	if err := b.table.Recharge(ref); err != nil {
		return nil, err
	}
	b.cfg.Logger.Debug("bulk insert completed",
		"token", ref.Token(),
		"values", cur.Pos(),
		"turns", env.Turn(),
		"cardinality", set.Cardinality(),
	)
	return ref, nil
}

// resume is the continuation entry point; its arguments were packaged by Run.
func (b *Builder) resume(env *sched.Env, args []any) (any, error) {
	return b.Run(env, args[0].(term.Cursor), args[1].(*handle.Ref))
}
