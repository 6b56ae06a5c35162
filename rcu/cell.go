package rcu

import (
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"

	"rcud/infra/memory"
	"rcud/infra/sequence"
)

type box[T any] struct {
	value   T
	version uint64
}

// Config tunes a Cell. The zero value is usable.
type Config[T any] struct {
	// Domain holds the hazard registry and retired list. Default: memory.Default().
	Domain *memory.Domain
	// Release is called exactly once for every value the cell owned:
	// when a retired value is reclaimed, and for the current value on Close.
	Release func(T)
}

// Cell holds one current value of type T.
type Cell[T any] struct {
	ptr     atomic.Pointer[box[T]]
	domain  *memory.Domain
	pool    *memory.Pool[box[T]]
	release func(T)
	seq     *sequence.Sequencer
	rc      *reclaimer[T]
	closed  atomic.Bool
}

// New takes ownership of value and stores it in a cell bound to the
// process-wide domain.
func New[T any](value T) *Cell[T] {
	return NewWithConfig(value, Config[T]{})
}

// NewWithConfig is New with explicit configuration.
func NewWithConfig[T any](value T, cfg Config[T]) *Cell[T] {
	if cfg.Domain == nil {
		cfg.Domain = memory.Default()
	}
	c := &Cell[T]{
		domain:  cfg.Domain,
		pool:    memory.NewPool(func() *box[T] { return new(box[T]) }),
		release: cfg.Release,
		seq:     sequence.New(0),
	}
	c.rc = &reclaimer[T]{cell: c}
	c.ptr.Store(c.alloc(value))
	return c
}

// Domain returns the domain the cell retires into.
func (c *Cell[T]) Domain() *memory.Domain { return c.domain }

// Version returns the version of the most recent write, 1 for a fresh cell.
func (c *Cell[T]) Version() uint64 { return c.seq.Current() }

// Read returns a guard on the current value, protected through slot.
//
// The slot must belong to the cell's domain and must not be protecting
// another guard. Read never blocks; it retries only while writers keep
// replacing the value between its publish and its re-check.
func (c *Cell[T]) Read(slot *memory.Slot) *Guard[T] {
	if slot == nil {
		panic(errors.AssertionFailedf("rcu: read with nil slot"))
	}
	if slot.Domain() != c.domain {
		panic(errors.AssertionFailedf("rcu: slot %d belongs to another domain", slot.ID()))
	}
	if slot.Protected() != nil {
		panic(errors.AssertionFailedf("rcu: slot %d already protects a live guard", slot.ID()))
	}

	for {
		b := c.ptr.Load()
		if b == nil {
			slot.Clear()
			panic(errors.AssertionFailedf("rcu: current value is nil"))
		}
		slot.Publish(unsafe.Pointer(b))
		if c.ptr.Load() == b {
			return &Guard[T]{b: b, slot: slot}
		}
	}
}

// Load reads the current value through slot and returns a copy of it.
func (c *Cell[T]) Load(slot *memory.Slot) T {
	g := c.Read(slot)
	defer g.Release()
	return g.value()
}

// View calls fn with the current value while it is protected.
// fn must not keep the pointer after it returns.
func (c *Cell[T]) View(slot *memory.Slot, fn func(*T)) {
	g := c.Read(slot)
	defer g.Release()
	fn(g.Get())
}

// Write installs value and retires the value it replaces. It never waits
// for readers. The returned version orders writes on this cell.
func (c *Cell[T]) Write(value T) uint64 {
	if c.closed.Load() {
		panic(errors.AssertionFailedf("rcu: write to closed cell"))
	}
	b := c.alloc(value)
	old := c.ptr.Swap(b)
	if old == nil {
		panic(errors.AssertionFailedf("rcu: current value is nil"))
	}
	c.domain.Retire(unsafe.Pointer(old), c.rc)
	return b.version
}

// Close destroys every value the cell retired, then the current value.
// The caller guarantees that no guard is alive. Close is idempotent; any
// Read or Write afterwards panics.
func (c *Cell[T]) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.domain.Drain(c.rc)
	if b := c.ptr.Swap(nil); b != nil {
		c.destroy(b)
	}
}

func (c *Cell[T]) alloc(value T) *box[T] {
	b := c.pool.Get()
	b.value = value
	b.version = c.seq.Next()
	return b
}

func (c *Cell[T]) destroy(b *box[T]) {
	if c.release != nil {
		c.release(b.value)
	}
	*b = box[T]{}
	c.pool.Put(b)
}

// reclaimer keeps Reclaim off the Cell's public method set.
type reclaimer[T any] struct {
	cell *Cell[T]
}

func (r *reclaimer[T]) Reclaim(addr unsafe.Pointer) {
	r.cell.destroy((*box[T])(addr))
}
