// Package dispatch maps named operations onto the bitmap engine.
//
// Every operation validates its arity and argument kinds and resolves its
// handle arguments before touching any set, so a rejected call performs no
// work and allocates nothing. Operations are sched.Func values; the bulk
// insert operations hand off to the incremental builder and may span several
// scheduler turns.
package dispatch
