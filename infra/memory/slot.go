package memory

import (
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
)

type slotState uint32

const (
	slotUnregistered slotState = iota
	slotRegistered
	slotDeregistered
)

func (s slotState) String() string {
	switch s {
	case slotUnregistered:
		return "UNREGISTERED"
	case slotRegistered:
		return "REGISTERED"
	case slotDeregistered:
		return "DEREGISTERED"
	default:
		return "UNKNOWN"
	}
}

// Slot is a single hazard pointer.
//
// A slot is owned by one goroutine at a time: only the owner publishes and
// clears it. Any goroutine may read it while scanning. The registration
// state is tracked separately from the published address, so "never used"
// is never confused with a real address.
type Slot struct {
	hazard unsafe.Pointer // nil => nothing protected
	state  atomic.Uint32
	id     uint64
	domain *Domain
}

// ID returns the slot's identity inside its registry.
func (s *Slot) ID() uint64 { return s.id }

// Domain returns the domain the slot reports to.
func (s *Slot) Domain() *Domain { return s.domain }

// Registered reports whether the slot is currently visible to scans.
func (s *Slot) Registered() bool {
	return slotState(s.state.Load()) == slotRegistered
}

// Publish announces that the owner may dereference addr.
// The slot joins its registry on first publish.
func (s *Slot) Publish(addr unsafe.Pointer) {
	switch st := slotState(s.state.Load()); st {
	case slotRegistered:
	case slotUnregistered:
		s.domain.registry.Register(s)
	default:
		panic(errors.AssertionFailedf("memory: publish on slot %d in state %s", s.id, st))
	}
	atomic.StorePointer(&s.hazard, addr)
}

// Clear withdraws the published address.
func (s *Slot) Clear() {
	atomic.StorePointer(&s.hazard, nil)
}

// Protected returns the currently published address, or nil.
func (s *Slot) Protected() unsafe.Pointer {
	return atomic.LoadPointer(&s.hazard)
}

// Deregister removes the slot from its registry for good.
// The slot must not be protecting anything.
func (s *Slot) Deregister() {
	if s.Protected() != nil {
		panic(errors.AssertionFailedf("memory: deregister of slot %d while protecting an address", s.id))
	}
	s.domain.registry.Deregister(s)
}
