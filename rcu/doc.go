// Package rcu implements a read-mostly value cell.
//
// Readers observe the current value without blocking and without taking a
// lock. A writer swaps in a new value atomically and retires the old one;
// the old value is destroyed only after no reader can still be looking at
// it. Protection is announced through hazard slots from package memory:
//
//	slot := memory.Default().NewSlot() // one per reading goroutine
//	g := cell.Read(slot)
//	use(g.Get())
//	g.Release()
//
// Concurrent writers are last-write-wins. Callers that need more ordering
// than that serialize their writes themselves.
//
// BlockingCell is the simpler alternative: it keeps a reader count instead
// of hazard slots and makes every write wait for in-flight reads.
package rcu
