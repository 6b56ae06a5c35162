package memory

import (
	"fmt"
	"sync"
	"unsafe"
)

// Reclaimer owns retired addresses and knows how to destroy them.
type Reclaimer interface {
	Reclaim(addr unsafe.Pointer)
}

type retired struct {
	addr  unsafe.Pointer
	owner Reclaimer
}

// RetireList holds superseded addresses until a scan proves them unreachable.
// Entries keep their retirement order.
//
// Entries a scan has taken but not yet reclaimed are counted per owner in
// inflight, so that a drain can wait for them.
type RetireList struct {
	mu       sync.Mutex
	items    []retired
	inflight map[Reclaimer]int
	idle     *sync.Cond
}

// Len returns the number of addresses awaiting reclamation.
func (l *RetireList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// push appends and returns the new length.
func (l *RetireList) push(addr unsafe.Pointer, owner Reclaimer) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, retired{addr: addr, owner: owner})
	return len(l.items)
}

// unprotected removes every entry whose address is absent from the hazard
// snapshot. The snapshot is taken while the list is locked so that it is
// newer than every entry it is compared against.
func (l *RetireList) unprotected(snapshot func() map[unsafe.Pointer]struct{}) ([]retired, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.items) == 0 {
		return nil, 0
	}
	hazards := snapshot()
	out, remaining := l.extractLocked(func(it retired) bool {
		_, protected := hazards[it.addr]
		return !protected
	})
	if len(out) > 0 && l.inflight == nil {
		l.inflight = make(map[Reclaimer]int)
	}
	for _, it := range out {
		l.inflight[it.owner]++
	}
	return out, remaining
}

// done marks one entry taken by unprotected as reclaimed.
func (l *RetireList) done(owner Reclaimer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inflight[owner]--; l.inflight[owner] <= 0 {
		delete(l.inflight, owner)
		if l.idle != nil {
			l.idle.Broadcast()
		}
	}
}

// wait blocks until no scan is reclaiming an entry of owner.
func (l *RetireList) wait(owner Reclaimer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.idle == nil {
		l.idle = sync.NewCond(&l.mu)
	}
	for l.inflight[owner] > 0 {
		l.idle.Wait()
	}
}

// ownedBy removes every entry retired by owner, protected or not.
func (l *RetireList) ownedBy(owner Reclaimer) ([]retired, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.extractLocked(func(it retired) bool { return it.owner == owner })
}

func (l *RetireList) extractLocked(take func(retired) bool) (out []retired, remaining int) {
	keep := l.items[:0]
	for _, it := range l.items {
		if take(it) {
			out = append(out, it)
		} else {
			keep = append(keep, it)
		}
	}
	// drop references held by the stale tail
	clear(l.items[len(keep):])
	l.items = keep
	return out, len(keep)
}

func (l *RetireList) String() string {
	return fmt.Sprintf("RetireList{len=%d}", l.Len())
}
