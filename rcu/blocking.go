package rcu

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"rcud/infra/futex"
)

const (
	writerWaiting = 1
	readerUnit    = 2
)

// BlockingCell is the writer-blocking alternative to Cell.
//
// It keeps one shared word: the number of active readers times two, plus
// one while a writer is waiting. A waiting writer stops new readers from
// entering, so a steady stream of readers cannot starve it; in exchange
// every Write blocks until in-flight reads finish. The old value is
// released immediately and no retired list is kept.
//
// A goroutine holding a read guard must not call Write.
type BlockingCell[T any] struct {
	state   atomic.Uint32
	drained atomic.Uint32 // bumped when the last reader leaves a waiting writer
	ptr     atomic.Pointer[T]
	mu      sync.Mutex // serializes writers
	release func(T)
}

// NewBlocking stores value in a new BlockingCell. release, if non-nil, is
// called once for every value the cell stops owning.
func NewBlocking[T any](value T, release func(T)) *BlockingCell[T] {
	c := &BlockingCell[T]{release: release}
	v := value
	c.ptr.Store(&v)
	return c
}

// Read waits while a writer is pending, then returns a guard on the
// current value.
func (c *BlockingCell[T]) Read() *BlockingGuard[T] {
	s := c.state.Load()
	for {
		if s&writerWaiting == 0 {
			if s >= ^uint32(0)-readerUnit {
				panic(errors.AssertionFailedf("rcu: too many readers"))
			}
			if c.state.CompareAndSwap(s, s+readerUnit) {
				p := c.ptr.Load()
				if p == nil {
					c.leave()
					panic(errors.AssertionFailedf("rcu: current value is nil"))
				}
				return &BlockingGuard[T]{cell: c, p: p}
			}
			s = c.state.Load()
			continue
		}
		futex.Wait(&c.state, s)
		s = c.state.Load()
	}
}

// Readers returns the number of guards currently alive.
func (c *BlockingCell[T]) Readers() int {
	return int(c.state.Load() / readerUnit)
}

// Write waits for every in-flight read to finish, swaps in value and
// releases the previous value before returning.
func (c *BlockingCell[T]) Write(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Only writers set the bit, and writers are serialized.
	c.state.Add(writerWaiting)
	for {
		d := c.drained.Load()
		if c.state.Load() == writerWaiting {
			break
		}
		futex.Wait(&c.drained, d)
	}

	v := value
	old := c.ptr.Swap(&v)

	c.state.Add(^uint32(writerWaiting - 1))
	futex.WakeAll(&c.state)

	if old != nil && c.release != nil {
		c.release(*old)
	}
}

// Close releases the current value. No guard may be alive.
func (c *BlockingCell[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old := c.ptr.Swap(nil); old != nil && c.release != nil {
		c.release(*old)
	}
}

func (c *BlockingCell[T]) leave() {
	if c.state.Add(^uint32(readerUnit-1)) == writerWaiting {
		c.drained.Add(1)
		futex.WakeOne(&c.drained)
	}
}

// BlockingGuard keeps its BlockingCell's writers out until released.
type BlockingGuard[T any] struct {
	cell *BlockingCell[T]
	p    *T
}

// Get returns the value. The pointer is valid until Release.
func (g *BlockingGuard[T]) Get() *T {
	if g.p == nil {
		panic(errors.AssertionFailedf("rcu: use of released guard"))
	}
	return g.p
}

// Value returns a copy of the value.
func (g *BlockingGuard[T]) Value() T { return *g.Get() }

// Release lets a waiting writer proceed once no other readers remain.
// It is safe to call more than once.
func (g *BlockingGuard[T]) Release() {
	if g.p == nil {
		return
	}
	g.p = nil
	g.cell.leave()
}
