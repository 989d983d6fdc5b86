package ebitmap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/ebitmap/blobstore"
	"github.com/hupe1980/ebitmap/internal/builder"
	"github.com/hupe1980/ebitmap/internal/dispatch"
	"github.com/hupe1980/ebitmap/internal/handle"
	"github.com/hupe1980/ebitmap/internal/rbm"
	"github.com/hupe1980/ebitmap/internal/resource"
	"github.com/hupe1980/ebitmap/internal/sched"
	"github.com/hupe1980/ebitmap/snapshot"
)

// Statistics is the container-layout summary of a set.
type Statistics = rbm.Statistics

// Bitmap is a handle to a mutable set of uint32 values owned by a Runtime.
//
// The set is destroyed when the Bitmap becomes unreachable, or earlier by
// Close. A Bitmap must not be used after Close; operations on it then fail
// with ErrInvalidHandle.
type Bitmap struct {
	ref *handle.Ref
	rt  *Runtime
}

// Close destroys the set now. Closing twice is a no-op. Close waits for any
// in-flight operation of the owning Runtime to finish.
func (b *Bitmap) Close() error {
	if b == nil || b.ref == nil {
		return nil
	}
	if b.rt != nil {
		b.rt.mu.Lock()
		defer b.rt.mu.Unlock()
	}
	return b.ref.Close()
}

// String returns the opaque token of the handle.
func (b *Bitmap) String() string {
	if b == nil || b.ref == nil {
		return "#Ref<nil>"
	}
	return b.ref.Token().String()
}

// Request is one operation of a CallAll batch.
type Request struct {
	Op   string
	Args []any
}

// Result is the outcome of one Request.
type Result struct {
	Value any
	Err   error
}

// Stats is a snapshot of a Runtime's bookkeeping.
type Stats struct {
	LiveHandles int
	Allocated   uint64
	Destroyed   uint64
	Turns       uint64
	Suspends    uint64
	Completed   uint64
	MemoryBytes int64
	// MemoryLimit is the configured limit in bytes, 0 if unlimited.
	MemoryLimit int64
}

// Runtime owns a handle table and the cooperative scheduler that runs
// operations on it. Calls are serialised: each call drives the scheduler
// until its operation completes, so at most one operation touches a set at a
// time.
type Runtime struct {
	mu     sync.Mutex
	closed bool

	opts     options
	logger   *Logger
	metrics  MetricsCollector
	rc       *resource.Controller
	table    *handle.Table
	sched    *sched.Scheduler
	dispatch *dispatch.Dispatcher
}

// New creates a Runtime.
//
//	rt := ebitmap.New(ebitmap.WithLogLevel(slog.LevelDebug))
//	defer rt.Close()
//	b, _ := rt.CreateOf(ctx, []uint32{1, 2, 3})
func New(optFns ...Option) *Runtime {
	o := applyOptions(optFns)

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:     o.memoryLimit,
		MaxBackgroundWorkers: o.maxBackgroundWorkers,
		IOLimitBytesPerSec:   o.ioLimit,
	})
	table := handle.NewTable(handle.Config{
		Resources: rc,
		Logger:    o.logger.Logger,
	})
	b := builder.New(table, builder.Config{
		ChunkSize: o.chunkSize,
		MaxSlice:  o.maxSlice,
		Capacity:  o.defaultCapacity,
		Clock:     o.clock,
		Logger:    o.logger.Logger,
	})

	r := &Runtime{
		opts:    o,
		logger:  o.logger,
		metrics: o.metricsCollector,
		rc:      rc,
		table:   table,
	}
	r.sched = sched.New(sched.Config{
		Clock:     o.clock,
		Logger:    o.logger.Logger,
		OnSuspend: r.metrics.RecordSuspend,
	})
	r.dispatch = dispatch.New(table, b, dispatch.Config{DefaultCapacity: o.defaultCapacity})
	return r
}

// Ops lists the operation names Call accepts.
func (r *Runtime) Ops() []string {
	return r.dispatch.Ops()
}

type pending struct {
	op    string
	task  *sched.Task
	known []*Bitmap
	start time.Time
	err   error
}

func (r *Runtime) submit(op string, args []any) *pending {
	p := &pending{op: op, start: r.opts.clock.Now()}

	conv := make([]any, len(args))
	for i, a := range args {
		b, ok := a.(*Bitmap)
		if !ok {
			conv[i] = a
			continue
		}
		if b == nil {
			conv[i] = (*handle.Ref)(nil)
			continue
		}
		conv[i] = b.ref
		p.known = append(p.known, b)
	}

	fn, err := r.dispatch.Lookup(op, len(conv))
	if err != nil {
		p.err = err
		return p
	}
	p.task = r.sched.Submit(op, fn, conv...)
	return p
}

func (r *Runtime) finish(ctx context.Context, p *pending, res any, err error) (any, error) {
	wrap := func(ref *handle.Ref) *Bitmap {
		for _, b := range p.known {
			if b.ref == ref {
				return b
			}
		}
		return &Bitmap{ref: ref, rt: r}
	}
	if ref, ok := res.(*handle.Ref); ok {
		res = wrap(ref)
	}
	err = translateError(err, wrap)

	turns := 0
	if p.task != nil {
		turns = p.task.Turns()
	}
	elapsed := r.opts.clock.Since(p.start)
	r.metrics.RecordOperation(p.op, elapsed, err)
	r.metrics.RecordLiveHandles(r.table.Live())
	r.logger.LogOperation(ctx, p.op, turns, elapsed, err)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// Call runs the named operation with untyped arguments. Handles are passed
// and returned as *Bitmap; integers may be any Go integer kind; sequences may
// be []uint32, []uint64, []int, []int64 or []any.
//
// Call blocks until the operation completes, however many scheduler turns it
// takes. If ctx is cancelled between turns, the operation is abandoned: values
// already inserted stay in their set.
func (r *Runtime) Call(ctx context.Context, op string, args ...any) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	p := r.submit(op, args)
	if p.err != nil {
		return r.finish(ctx, p, nil, p.err)
	}

	res, err := r.sched.Run(ctx, p.task)
	if !p.task.Done() {
		r.sched.Drop(p.task)
	}
	return r.finish(ctx, p, res, err)
}

// CallAll submits every request and drives them together, so long bulk
// inserts interleave turn by turn. Results are in request order.
func (r *Runtime) CallAll(ctx context.Context, reqs ...Request) []Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]Result, len(reqs))
	if r.closed {
		for i := range results {
			results[i].Err = ErrClosed
		}
		return results
	}

	ps := make([]*pending, len(reqs))
	for i, req := range reqs {
		ps[i] = r.submit(req.Op, req.Args)
	}

	runErr := r.sched.RunAll(ctx)

	failed := 0
	for i, p := range ps {
		var (
			res any
			err = p.err
		)
		if p.task != nil {
			if p.task.Done() {
				res, err = p.task.Result()
			} else {
				r.sched.Drop(p.task)
				err = runErr
			}
		}
		results[i].Value, results[i].Err = r.finish(ctx, p, res, err)
		if results[i].Err != nil {
			failed++
		}
	}
	r.logger.LogBatch(ctx, len(reqs), failed)
	return results
}

func callAs[T any](ctx context.Context, r *Runtime, op string, args ...any) (T, error) {
	var zero T
	res, err := r.Call(ctx, op, args...)
	if err != nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("ebitmap: %s returned %T", op, res)
	}
	return v, nil
}

// Create returns a new empty set with the default capacity hint.
func (r *Runtime) Create(ctx context.Context) (*Bitmap, error) {
	return callAs[*Bitmap](ctx, r, dispatch.OpCreate)
}

// CreateWithCapacity returns a new empty set. capacity is a sizing hint only.
func (r *Runtime) CreateWithCapacity(ctx context.Context, capacity int) (*Bitmap, error) {
	return callAs[*Bitmap](ctx, r, dispatch.OpCreate, capacity)
}

// CreateOf returns a new set holding values. Long inputs are inserted over
// several scheduler turns.
func (r *Runtime) CreateOf(ctx context.Context, values []uint32) (*Bitmap, error) {
	return callAs[*Bitmap](ctx, r, dispatch.OpCreateOf, values)
}

// AddAll inserts values into b.
func (r *Runtime) AddAll(ctx context.Context, b *Bitmap, values []uint32) error {
	_, err := callAs[*Bitmap](ctx, r, dispatch.OpAddAll, values, b)
	return err
}

// Add inserts v into b and returns b for chaining.
func (r *Runtime) Add(ctx context.Context, b *Bitmap, v uint32) (*Bitmap, error) {
	return callAs[*Bitmap](ctx, r, dispatch.OpAdd, b, v)
}

// Contains reports whether v is in b.
func (r *Runtime) Contains(ctx context.Context, b *Bitmap, v uint32) (bool, error) {
	return callAs[bool](ctx, r, dispatch.OpContains, b, v)
}

// Cardinality returns the number of values in b.
func (r *Runtime) Cardinality(ctx context.Context, b *Bitmap) (uint64, error) {
	return callAs[uint64](ctx, r, dispatch.OpCardinality, b)
}

// Union returns a new set holding a ∪ b.
func (r *Runtime) Union(ctx context.Context, a, b *Bitmap) (*Bitmap, error) {
	return callAs[*Bitmap](ctx, r, dispatch.OpUnion, a, b)
}

// Intersection returns a new set holding a ∩ b.
func (r *Runtime) Intersection(ctx context.Context, a, b *Bitmap) (*Bitmap, error) {
	return callAs[*Bitmap](ctx, r, dispatch.OpIntersection, a, b)
}

// Equals reports whether a and b hold the same values.
func (r *Runtime) Equals(ctx context.Context, a, b *Bitmap) (bool, error) {
	return callAs[bool](ctx, r, dispatch.OpEquals, a, b)
}

// IsSubset reports whether every value of a is in b.
func (r *Runtime) IsSubset(ctx context.Context, a, b *Bitmap) (bool, error) {
	return callAs[bool](ctx, r, dispatch.OpIsSubset, a, b)
}

// Serialize encodes b in the portable roaring format.
func (r *Runtime) Serialize(ctx context.Context, b *Bitmap) ([]byte, error) {
	return callAs[[]byte](ctx, r, dispatch.OpSerialize, b)
}

// Deserialize decodes bytes produced by Serialize into a new set.
func (r *Runtime) Deserialize(ctx context.Context, data []byte) (*Bitmap, error) {
	return callAs[*Bitmap](ctx, r, dispatch.OpDeserialize, data)
}

// Statistics returns the container-layout summary of b.
func (r *Runtime) Statistics(ctx context.Context, b *Bitmap) (Statistics, error) {
	return callAs[Statistics](ctx, r, dispatch.OpStatistics, b)
}

// SnapshotStore returns a snapshot store over blobs that shares this
// Runtime's IO limit, upload slots and logger.
func (r *Runtime) SnapshotStore(blobs blobstore.Store, optFns ...snapshot.Option) *snapshot.Store {
	base := []snapshot.Option{
		snapshot.WithResources(r.rc),
		snapshot.WithLogger(r.logger.Logger),
	}
	return snapshot.NewStore(blobs, append(base, optFns...)...)
}

func (r *Runtime) snapshotItem(ctx context.Context, b *Bitmap) (snapshot.Item, error) {
	data, err := r.Serialize(ctx, b)
	if err != nil {
		return snapshot.Item{}, err
	}
	stats, err := r.Statistics(ctx, b)
	if err != nil {
		return snapshot.Item{}, err
	}
	return snapshot.Item{Data: data, Statistics: stats}, nil
}

// Save serializes b and stores it under name.
func (r *Runtime) Save(ctx context.Context, store *snapshot.Store, name string, b *Bitmap) (snapshot.Manifest, error) {
	it, err := r.snapshotItem(ctx, b)
	if err != nil {
		return snapshot.Manifest{}, err
	}
	m, err := store.Save(ctx, name, it.Data, it.Statistics)
	r.logger.LogSnapshot(ctx, name, m.StoredBytes, err)
	return m, err
}

// SaveAll serializes every bitmap and uploads them concurrently.
func (r *Runtime) SaveAll(ctx context.Context, store *snapshot.Store, bitmaps map[string]*Bitmap) error {
	items := make(map[string]snapshot.Item, len(bitmaps))
	for name, b := range bitmaps {
		it, err := r.snapshotItem(ctx, b)
		if err != nil {
			return fmt.Errorf("ebitmap: snapshot %s: %w", name, err)
		}
		items[name] = it
	}
	return store.SaveAll(ctx, items)
}

// Load reads the snapshot name and returns it as a new set.
func (r *Runtime) Load(ctx context.Context, store *snapshot.Store, name string) (*Bitmap, error) {
	data, _, err := store.Load(ctx, name)
	if err != nil {
		r.logger.LogLoad(ctx, name, err)
		return nil, err
	}
	b, err := r.Deserialize(ctx, data)
	r.logger.LogLoad(ctx, name, err)
	return b, err
}

// Stats returns handle, scheduler and memory counters.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	hs := r.table.Stats()
	ss := r.sched.Stats()
	return Stats{
		LiveHandles: hs.Live,
		Allocated:   hs.Allocated,
		Destroyed:   hs.Destroyed,
		Turns:       ss.Turns,
		Suspends:    ss.Suspends,
		Completed:   ss.Completed,
		MemoryBytes: r.rc.MemoryUsage(),
		MemoryLimit: r.rc.MemoryLimit(),
	}
}

// Close rejects further calls. Existing sets are still destroyed when their
// Bitmaps become unreachable or are closed.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
