package dispatch

import (
	"fmt"
	"math"
	"runtime"
	"slices"

	"github.com/hupe1980/ebitmap/internal/builder"
	"github.com/hupe1980/ebitmap/internal/handle"
	"github.com/hupe1980/ebitmap/internal/rbm"
	"github.com/hupe1980/ebitmap/internal/sched"
	"github.com/hupe1980/ebitmap/internal/term"
)

// Operation names.
const (
	OpCreate       = "create"
	OpAdd          = "add"
	OpContains     = "contains"
	OpCardinality  = "cardinality"
	OpUnion        = "union"
	OpIntersection = "intersection"
	OpEquals       = "equals"
	OpIsSubset     = "is_subset"
	OpSerialize    = "serialize"
	OpDeserialize  = "deserialize"
	OpStatistics   = "statistics"
	OpCreateOf     = "create_of"
	OpAddAll       = "add_all"
)

// serializeSet encodes a set for the serialize operation. Tests replace it.
var serializeSet = (*rbm.Set).Serialize

type opKey struct {
	name  string
	arity int
}

// Dispatcher resolves operation names to implementations.
type Dispatcher struct {
	table           *handle.Table
	builder         *builder.Builder
	defaultCapacity int
	ops             map[opKey]sched.Func
}

// Config configures a Dispatcher.
type Config struct {
	// DefaultCapacity is the hint used by create without arguments.
	DefaultCapacity int
}

// New creates a Dispatcher over table. Bulk inserts go through b.
func New(table *handle.Table, b *builder.Builder, cfg Config) *Dispatcher {
	if cfg.DefaultCapacity <= 0 {
		cfg.DefaultCapacity = rbm.DefaultCapacity
	}
	d := &Dispatcher{
		table:           table,
		builder:         b,
		defaultCapacity: cfg.DefaultCapacity,
	}
	d.ops = map[opKey]sched.Func{
		{OpCreate, 0}:       d.create,
		{OpCreate, 1}:       d.createWithCapacity,
		{OpAdd, 2}:          d.add,
		{OpContains, 2}:     d.contains,
		{OpCardinality, 1}:  d.cardinality,
		{OpUnion, 2}:        d.union,
		{OpIntersection, 2}: d.intersection,
		{OpEquals, 2}:       d.equals,
		{OpIsSubset, 2}:     d.isSubset,
		{OpSerialize, 1}:    d.serialize,
		{OpDeserialize, 1}:  d.deserialize,
		{OpStatistics, 1}:   d.statistics,
		{OpCreateOf, 1}:     d.createOf,
		{OpAddAll, 2}:       d.addAll,
	}
	return d
}

// Lookup returns the implementation of name for arity arguments.
func (d *Dispatcher) Lookup(name string, arity int) (sched.Func, error) {
	fn, ok := d.ops[opKey{name, arity}]
	if ok {
		return keepArgsAlive(fn), nil
	}
	for k := range d.ops {
		if k.name == name {
			return nil, &ArgumentError{Op: name, Position: -1, Reason: fmt.Sprintf("wrong number of arguments (%d)", arity)}
		}
	}
	return nil, &ArgumentError{Op: name, Position: -1, Reason: "unknown operation"}
}

// Ops returns the supported operation names in sorted order.
func (d *Dispatcher) Ops() []string {
	var names []string
	for k := range d.ops {
		if !slices.Contains(names, k.name) {
			names = append(names, k.name)
		}
	}
	slices.Sort(names)
	return names
}

// keepArgsAlive holds handle arguments reachable until the operation returns,
// so the collector cannot destroy a set while it is being read.
func keepArgsAlive(fn sched.Func) sched.Func {
	return func(env *sched.Env, args []any) (any, error) {
		defer runtime.KeepAlive(args)
		return fn(env, args)
	}
}

func (d *Dispatcher) handleArg(op string, args []any, i int) (*handle.Ref, *rbm.Set, error) {
	ref, ok := args[i].(*handle.Ref)
	if !ok || ref == nil {
		return nil, nil, &ArgumentError{Op: op, Position: i, Reason: "expected a handle, got " + term.Describe(args[i])}
	}
	set, err := d.table.Resolve(ref)
	if err != nil {
		return nil, nil, &ArgumentError{Op: op, Position: i, Reason: "handle does not resolve", Err: err}
	}
	return ref, set, nil
}

func (d *Dispatcher) pairArgs(op string, args []any) (*rbm.Set, *rbm.Set, error) {
	_, a, err := d.handleArg(op, args, 0)
	if err != nil {
		return nil, nil, err
	}
	_, b, err := d.handleArg(op, args, 1)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func uint32Arg(op string, args []any, i int) (uint32, error) {
	v, ok := term.Uint32(args[i])
	if !ok {
		return 0, &ArgumentError{Op: op, Position: i, Reason: "expected an integer in [0, 4294967295], got " + term.Describe(args[i])}
	}
	return v, nil
}

func (d *Dispatcher) create(*sched.Env, []any) (any, error) {
	return d.table.Allocate(rbm.NewWithCapacity(d.defaultCapacity))
}

func (d *Dispatcher) createWithCapacity(_ *sched.Env, args []any) (any, error) {
	c, ok := term.Uint64(args[0])
	if !ok || c > math.MaxUint32 {
		return nil, &ArgumentError{Op: OpCreate, Position: 0, Reason: "expected a non-negative capacity, got " + term.Describe(args[0])}
	}
	if c == 0 {
		c = uint64(d.defaultCapacity)
	}
	return d.table.Allocate(rbm.NewWithCapacity(int(c)))
}

func (d *Dispatcher) add(_ *sched.Env, args []any) (any, error) {
	ref, set, err := d.handleArg(OpAdd, args, 0)
	if err != nil {
		return nil, err
	}
	v, err := uint32Arg(OpAdd, args, 1)
	if err != nil {
		return nil, err
	}
	set.Add(v)
	if err := d.table.Recharge(ref); err != nil {
		return nil, err
	}
	return ref, nil
}

func (d *Dispatcher) contains(_ *sched.Env, args []any) (any, error) {
	_, set, err := d.handleArg(OpContains, args, 0)
	if err != nil {
		return nil, err
	}
	v, err := uint32Arg(OpContains, args, 1)
	if err != nil {
		return nil, err
	}
	return set.Contains(v), nil
}

func (d *Dispatcher) cardinality(_ *sched.Env, args []any) (any, error) {
	_, set, err := d.handleArg(OpCardinality, args, 0)
	if err != nil {
		return nil, err
	}
	return set.Cardinality(), nil
}

func (d *Dispatcher) union(_ *sched.Env, args []any) (any, error) {
	a, b, err := d.pairArgs(OpUnion, args)
	if err != nil {
		return nil, err
	}
	return d.table.Allocate(rbm.Or(a, b))
}

func (d *Dispatcher) intersection(_ *sched.Env, args []any) (any, error) {
	a, b, err := d.pairArgs(OpIntersection, args)
	if err != nil {
		return nil, err
	}
	return d.table.Allocate(rbm.And(a, b))
}

func (d *Dispatcher) equals(_ *sched.Env, args []any) (any, error) {
	a, b, err := d.pairArgs(OpEquals, args)
	if err != nil {
		return nil, err
	}
	return rbm.Equals(a, b), nil
}

func (d *Dispatcher) isSubset(_ *sched.Env, args []any) (any, error) {
	a, b, err := d.pairArgs(OpIsSubset, args)
	if err != nil {
		return nil, err
	}
	return rbm.IsSubset(a, b), nil
}

func (d *Dispatcher) serialize(_ *sched.Env, args []any) (any, error) {
	_, set, err := d.handleArg(OpSerialize, args, 0)
	if err != nil {
		return nil, err
	}
	data, err := serializeSet(set)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

func (d *Dispatcher) deserialize(_ *sched.Env, args []any) (any, error) {
	data, ok := term.Binary(args[0])
	if !ok {
		return nil, &ArgumentError{Op: OpDeserialize, Position: 0, Reason: "expected a binary, got " + term.Describe(args[0])}
	}
	set, err := rbm.Deserialize(data)
	if err != nil {
		return nil, &ArgumentError{Op: OpDeserialize, Position: 0, Reason: "undecodable bitmap", Err: err}
	}
	return d.table.Allocate(set)
}

func (d *Dispatcher) statistics(_ *sched.Env, args []any) (any, error) {
	_, set, err := d.handleArg(OpStatistics, args, 0)
	if err != nil {
		return nil, err
	}
	return set.Statistics(), nil
}

func (d *Dispatcher) createOf(env *sched.Env, args []any) (any, error) {
	cur, ok := term.NewCursor(args[0])
	if !ok {
		return nil, &ArgumentError{Op: OpCreateOf, Position: 0, Reason: "expected a sequence, got " + term.Describe(args[0])}
	}
	return d.builder.Start(env, cur)
}

func (d *Dispatcher) addAll(env *sched.Env, args []any) (any, error) {
	cur, ok := term.NewCursor(args[0])
	if !ok {
		return nil, &ArgumentError{Op: OpAddAll, Position: 0, Reason: "expected a sequence, got " + term.Describe(args[0])}
	}
	ref, _, err := d.handleArg(OpAddAll, args, 1)
	if err != nil {
		return nil, err
	}
	return d.builder.Run(env, cur, ref)
}
