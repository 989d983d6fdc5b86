// Package builder implements resumable bulk insertion.
//
// A bulk insert is a state machine driven by repeated scheduler turns:
//
//	Start    allocate an empty set (only when no destination is given)
//	Running  insert from the cursor; every ChunkSize values, charge
//	         100 x elapsed / MaxSlice units to the turn; if the turn is
//	         exhausted and values remain, yield (cursor, ref)
//	Done     cursor drained; the result is the destination ref
//
// Progress lives in the set, never in the continuation: a resumed Run picks
// up at the cursor's next unconsumed value. A malformed element stops the
// insert with a *PartialError; nothing inserted before it is rolled back.
package builder
