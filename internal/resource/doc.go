// Package resource governs what live sets and snapshot transfers may consume.
//
//   - Memory: every live set's footprint is charged here. Reserve gates new
//     sets against MemoryLimitBytes (non-blocking, fail-fast); Adjust follows
//     growth of existing sets; Release returns the charge on destruction.
//   - Background slots: bound concurrent snapshot uploads.
//   - IO: a token bucket throttles snapshot transfers and input readers.
//
// All methods are safe for concurrent use, and all methods on a nil
// *Controller are no-ops, so limiting stays optional without nil checks.
package resource
