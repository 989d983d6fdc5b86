package handle

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/ebitmap/internal/rbm"
	"github.com/hupe1980/ebitmap/internal/resource"
)

// ErrInvalidHandle is returned when a token does not resolve to a live set.
var ErrInvalidHandle = errors.New("invalid handle")

// Kind tags the resource type a token refers to.
type Kind uint8

const (
	// KindInvalid is the zero Kind; no live slot carries it.
	KindInvalid Kind = iota
	// KindBitmap marks a token that refers to a bitmap set.
	KindBitmap
)

// poisoned replaces a slot's set on destruction, so a destroyed slot is
// distinguishable from both a live one and a never-used one.
var poisoned = new(rbm.Set)

var tableIDs atomic.Uint64

// Token identifies one slot of one table. The zero Token never resolves.
type Token struct {
	table uint64
	slot  uint32
	gen   uint32
	kind  Kind
}

// String formats the token for logs.
func (t Token) String() string {
	return fmt.Sprintf("#Ref<%d.%d.%d>", t.table, t.slot, t.gen)
}

// Ref is the host-visible handle. When the last reference to a Ref is
// dropped, the garbage collector triggers the destructor for its slot.
type Ref struct {
	token   Token
	table   *Table
	cleanup runtime.Cleanup
}

// Token returns the token the Ref carries.
func (r *Ref) Token() Token {
	return r.token
}

// Close destroys the set now instead of waiting for the collector.
// Closing twice is a no-op.
func (r *Ref) Close() error {
	r.cleanup.Stop()
	r.table.Destroy(r.token)
	runtime.KeepAlive(r)
	return nil
}

type slot struct {
	set     *rbm.Set
	gen     uint32
	kind    Kind
	charged int64
}

// Config configures a Table.
type Config struct {
	// Resources receives memory charges for live sets. Optional.
	Resources *resource.Controller

	// Logger receives debug records for allocation and destruction, and a
	// warning when a destructor fires on an already destroyed slot.
	Logger *slog.Logger
}

// Table maps tokens to sets. It is the sole owner of every set it holds.
//
// A Table is safe for concurrent use: destructors arrive on a runtime
// goroutine while operations run on the scheduler goroutine.
type Table struct {
	id     uint64
	rc     *resource.Controller
	logger *slog.Logger

	mu    sync.Mutex
	slots []slot
	free  []uint32
	live  int

	allocated atomic.Uint64
	destroyed atomic.Uint64
}

// NewTable creates an empty table with a process-unique id.
func NewTable(cfg Config) *Table {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Table{
		id:     tableIDs.Add(1),
		rc:     cfg.Resources,
		logger: logger,
	}
}

// Allocate takes ownership of set and returns a new Ref for it.
// If the memory charge is refused the set is freed and no Ref is created.
func (t *Table) Allocate(set *rbm.Set) (*Ref, error) {
	if set == nil || set == poisoned || set.Freed() {
		return nil, fmt.Errorf("%w: nil set", ErrInvalidHandle)
	}

	size := int64(set.SizeInBytes())
	if err := t.rc.Reserve(size); err != nil {
		set.Free()
		return nil, err
	}

	t.mu.Lock()
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot{})
	}
	s := &t.slots[idx]
	s.gen++
	s.set = set
	s.kind = KindBitmap
	s.charged = size
	t.live++
	tok := Token{table: t.id, slot: idx, gen: s.gen, kind: KindBitmap}
	t.mu.Unlock()

	t.allocated.Add(1)

	ref := &Ref{token: tok, table: t}
	ref.cleanup = runtime.AddCleanup(ref, func(tok Token) { t.Destroy(tok) }, tok)

	t.logger.Debug("allocated handle", "token", tok, "bytes", size)
	return ref, nil
}

// Resolve returns the set behind ref for the duration of one operation.
// Callers must keep ref reachable until they are done with the set.
func (t *Table) Resolve(ref *Ref) (*rbm.Set, error) {
	if ref == nil {
		return nil, fmt.Errorf("%w: nil reference", ErrInvalidHandle)
	}
	return t.ResolveToken(ref.token)
}

// ResolveToken resolves a bare token.
func (t *Table) ResolveToken(tok Token) (*rbm.Set, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.lookupLocked(tok)
	if err != nil {
		return nil, err
	}
	return s.set, nil
}

func (t *Table) lookupLocked(tok Token) (*slot, error) {
	if tok.table != t.id {
		return nil, fmt.Errorf("%w: %s not issued by this table", ErrInvalidHandle, tok)
	}
	if tok.kind != KindBitmap {
		return nil, fmt.Errorf("%w: %s has wrong kind %d", ErrInvalidHandle, tok, tok.kind)
	}
	if int(tok.slot) >= len(t.slots) {
		return nil, fmt.Errorf("%w: %s out of range", ErrInvalidHandle, tok)
	}
	s := &t.slots[tok.slot]
	if s.gen != tok.gen || s.kind != tok.kind {
		return nil, fmt.Errorf("%w: %s is stale", ErrInvalidHandle, tok)
	}
	if s.set == poisoned {
		return nil, fmt.Errorf("%w: %s already destroyed", ErrInvalidHandle, tok)
	}
	return s, nil
}

// Destroy frees the set behind tok and poisons the slot. It reports whether
// anything was destroyed; a token that no longer resolves is logged and
// ignored, since collector-driven and explicit release are not coupled.
func (t *Table) Destroy(tok Token) bool {
	t.mu.Lock()
	s, err := t.lookupLocked(tok)
	if err != nil {
		t.mu.Unlock()
		t.logger.Warn("destroy on released handle ignored", "token", tok, "error", err)
		return false
	}

	set := s.set
	charged := s.charged
	s.set = poisoned
	s.charged = 0
	t.free = append(t.free, tok.slot)
	t.live--
	t.mu.Unlock()

	set.Free()
	t.rc.Release(charged)
	t.destroyed.Add(1)

	t.logger.Debug("destroyed handle", "token", tok, "bytes", charged)
	return true
}

// Recharge re-measures the set behind ref and moves its memory charge.
func (t *Table) Recharge(ref *Ref) error {
	if ref == nil {
		return fmt.Errorf("%w: nil reference", ErrInvalidHandle)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.lookupLocked(ref.token)
	if err != nil {
		return err
	}
	size := int64(s.set.SizeInBytes())
	t.rc.Adjust(s.charged, size)
	s.charged = size
	return nil
}

// Stats is a snapshot of a table's bookkeeping.
type Stats struct {
	Live      int
	Allocated uint64
	Destroyed uint64
}

// Stats returns the current counts.
func (t *Table) Stats() Stats {
	t.mu.Lock()
	live := t.live
	t.mu.Unlock()
	return Stats{
		Live:      live,
		Allocated: t.allocated.Load(),
		Destroyed: t.destroyed.Load(),
	}
}

// Live returns the number of sets currently held.
func (t *Table) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}
