package memory

import (
	"sync"
	"unsafe"
)

// Registry is the set of every slot that scans must consult.
// It changes only when a slot is first used or explicitly deregistered.
type Registry struct {
	mu      sync.Mutex
	slots   map[uint64]*Slot
	metrics *Metrics
}

func newRegistry(m *Metrics) *Registry {
	return &Registry{
		slots:   make(map[uint64]*Slot),
		metrics: m,
	}
}

// Register adds s. It is idempotent and reports whether s was added.
// A deregistered slot is never added back.
func (r *Registry) Register(s *Slot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slotState(s.state.Load()) != slotUnregistered {
		return false
	}
	r.slots[s.id] = s
	s.state.Store(uint32(slotRegistered))
	r.metrics.setRegistered(len(r.slots))
	return true
}

// Deregister removes s and reports whether it was registered.
func (r *Registry) Deregister(s *Slot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := slotState(s.state.Swap(uint32(slotDeregistered)))
	if prev != slotRegistered {
		return false
	}
	delete(r.slots, s.id)
	r.metrics.setRegistered(len(r.slots))
	return true
}

// Len returns the number of registered slots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Snapshot returns every address currently published by a registered slot.
// This is the point that defines "currently protected" for a scan.
func (r *Registry) Snapshot() map[unsafe.Pointer]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[unsafe.Pointer]struct{}, len(r.slots))
	for _, s := range r.slots {
		if p := s.Protected(); p != nil {
			out[p] = struct{}{}
		}
	}
	return out
}
