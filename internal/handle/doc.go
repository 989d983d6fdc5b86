// Package handle binds bitmap sets to opaque, host-visible references.
//
// A Table is an indirection table: callers only ever hold a *Ref carrying a
// Token (table id, slot, generation, kind), never the set itself. Resolve
// turns a Ref back into its set for the duration of one operation and rejects
// tokens from another table, tokens of the wrong kind, stale tokens whose
// slot has been reused, and tokens whose slot was destroyed.
//
// # Lifecycle
//
// Allocate is the only way a set enters the table and Destroy the only way
// it leaves. Destroy runs at most once per slot: it frees the set, replaces
// it with a poison sentinel and returns the slot to the free list. The next
// allocation of that slot bumps the generation.
//
// Destroy is triggered by the garbage collector through runtime.AddCleanup
// when a Ref becomes unreachable, or earlier through Ref.Close. The two paths
// are not coupled, so a Destroy on a token that no longer resolves is a
// logged no-op rather than an error.
//
//	tbl := handle.NewTable(handle.Config{})
//	ref, _ := tbl.Allocate(rbm.NewWithCapacity(0))
//	set, _ := tbl.Resolve(ref)
//	set.Add(42)
//	runtime.KeepAlive(ref) // ref must outlive every use of set
package handle
