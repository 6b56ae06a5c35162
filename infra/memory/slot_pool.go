package memory

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// SlotPool recycles registered slots between short-lived goroutines,
// such as request handlers, that cannot keep a slot for their lifetime.
//
// At most max idle slots are kept; surplus slots are deregistered on Put,
// which keeps the registry from growing with every goroutine ever spawned.
type SlotPool struct {
	domain *Domain
	max    int

	mu   sync.Mutex
	free []*Slot
}

// NewSlotPool keeps up to max idle slots from d.
func NewSlotPool(d *Domain, max int) *SlotPool {
	if max <= 0 {
		max = 64
	}
	return &SlotPool{domain: d, max: max}
}

// Get returns an idle slot or a fresh one.
func (p *SlotPool) Get() *Slot {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return s
	}
	p.mu.Unlock()
	return p.domain.NewSlot()
}

// Put returns s to the pool. s must not be protecting anything.
func (p *SlotPool) Put(s *Slot) {
	if s.Protected() != nil {
		panic(errors.AssertionFailedf("memory: slot %d returned to pool while protecting an address", s.ID()))
	}
	if s.Domain() != p.domain {
		panic(errors.AssertionFailedf("memory: slot %d belongs to another domain", s.ID()))
	}

	p.mu.Lock()
	if len(p.free) < p.max {
		p.free = append(p.free, s)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	s.Deregister()
}

// Idle returns the number of pooled slots.
func (p *SlotPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Close deregisters every idle slot.
func (p *SlotPool) Close() {
	p.mu.Lock()
	free := p.free
	p.free = nil
	p.mu.Unlock()

	for _, s := range free {
		s.Deregister()
	}
}
