package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing numbers: value versions,
// slot identities, document versions.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer whose first Next returns start+1.
// On fresh start → start = 0
// On restore → start = last persisted version
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next number.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued number.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset sets the sequencer to a specific value.
// This is ONLY used after restoring persisted state.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
