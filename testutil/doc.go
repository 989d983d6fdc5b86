// Package testutil provides testing utilities for ebitmap.
//
// This package is intended for use in tests and benchmarks only.
//
// # Value Generation
//
//	rng := testutil.NewRNG(seed)
//	vals := rng.Uint32s(10_000, 1<<20)  // uniform, with duplicates
//	runs := rng.Clustered(10_000, 256)  // consecutive runs
//	seq := testutil.Sequential(0, 10_000)
//
// # Controlled Time
//
// FakeClock advances by a fixed step on every Now, which makes the cost the
// bulk-insert builder charges per chunk deterministic:
//
//	clock := testutil.NewFakeClock(160 * time.Microsecond) // one full turn per chunk
package testutil
