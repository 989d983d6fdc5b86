package testutil

import (
	"math/rand"
	"sync"
	"time"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint32s returns n values drawn uniformly from [0, limit).
// Duplicates are expected when n approaches limit.
func (r *RNG) Uint32s(n int, limit uint32) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(r.rand.Int63n(int64(limit)))
	}
	return out
}

// Clustered returns n values grouped into runs of runLen consecutive
// integers starting at random offsets, which exercises run and bitset
// containers rather than only array containers.
func (r *RNG) Clustered(n, runLen int) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint32, 0, n)
	for len(out) < n {
		start := r.rand.Uint32()
		for i := 0; i < runLen && len(out) < n; i++ {
			out = append(out, start+uint32(i))
		}
	}
	return out
}

// Sequential returns [start, start+n).
func Sequential(start uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = start + uint32(i)
	}
	return out
}

// Distinct returns the distinct values of vs.
func Distinct(vs []uint32) map[uint32]struct{} {
	out := make(map[uint32]struct{}, len(vs))
	for _, v := range vs {
		out[v] = struct{}{}
	}
	return out
}

// FakeClock is a manually driven clock. Every call to Now returns the
// current instant and then advances it by Step, so code that samples the
// clock once per unit of work observes Step of elapsed time per unit.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewFakeClock returns a FakeClock starting at a fixed instant.
func NewFakeClock(step time.Duration) *FakeClock {
	return &FakeClock{
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Step: step,
	}
}

// Now returns the current fake instant and advances by Step.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.Step)
	return now
}

// Since returns the fake time elapsed since t without advancing.
func (c *FakeClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(t)
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
