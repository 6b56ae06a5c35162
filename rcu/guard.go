package rcu

import (
	"github.com/cockroachdb/errors"

	"rcud/infra/memory"
)

// Guard is a protected view of one value. Release it when done; until
// then the value cannot be reclaimed. A guard must not outlive its cell.
type Guard[T any] struct {
	b    *box[T]
	slot *memory.Slot
}

// Get returns a pointer to the protected value. The pointer is valid
// until Release and must not be written through.
func (g *Guard[T]) Get() *T {
	if g.b == nil {
		panic(errors.AssertionFailedf("rcu: use of released guard"))
	}
	return &g.b.value
}

// Value returns a copy of the protected value.
func (g *Guard[T]) Value() T { return *g.Get() }

func (g *Guard[T]) value() T { return g.b.value }

// Version returns the version the value was written with.
func (g *Guard[T]) Version() uint64 {
	if g.b == nil {
		panic(errors.AssertionFailedf("rcu: use of released guard"))
	}
	return g.b.version
}

// Release clears the hazard publication. It is safe to call more than once.
func (g *Guard[T]) Release() {
	if g.slot == nil {
		return
	}
	g.slot.Clear()
	g.slot = nil
	g.b = nil
}
