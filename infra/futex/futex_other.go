//go:build !linux

package futex

import (
	"sync"
	"sync/atomic"
)

// Off Linux the kernel queue is emulated with one condition variable per
// word. Entries are never removed; the set of words is expected to be small.
var (
	parkMu sync.Mutex
	parked = map[*atomic.Uint32]*sync.Cond{}
)

func condFor(word *atomic.Uint32) *sync.Cond {
	c, ok := parked[word]
	if !ok {
		c = sync.NewCond(&parkMu)
		parked[word] = c
	}
	return c
}

// Wait blocks until word is woken, provided it still equals expected.
func Wait(word *atomic.Uint32, expected uint32) {
	parkMu.Lock()
	defer parkMu.Unlock()
	if word.Load() != expected {
		return
	}
	condFor(word).Wait()
}

// WakeOne wakes at most one waiter on word.
func WakeOne(word *atomic.Uint32) {
	parkMu.Lock()
	defer parkMu.Unlock()
	if c, ok := parked[word]; ok {
		c.Signal()
	}
}

// WakeAll wakes every waiter on word.
func WakeAll(word *atomic.Uint32) {
	parkMu.Lock()
	defer parkMu.Unlock()
	if c, ok := parked[word]; ok {
		c.Broadcast()
	}
}
