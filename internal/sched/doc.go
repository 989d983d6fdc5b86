// Package sched is the host side of cooperative preemption: it owns the run
// queue, grants each turn a fixed capacity, and re-invokes continuations.
//
// A native operation is a Func. It may report elapsed work through
// Env.ConsumeTimeslice and, once the turn is exhausted, return the value of
// Env.Yield to be resumed later with new arguments:
//
//	func loop(env *sched.Env, args []any) (any, error) {
//		cur := args[0].(term.Cursor)
//		for ... {
//			if env.ConsumeTimeslice(cost) {
//				return env.Yield("loop", loop, cur)
//			}
//		}
//		return result, nil
//	}
//
// Continuations are explicit values, not suspended stacks: all state a
// resumed Func needs travels in its arguments.
package sched
