//go:build linux

package futex

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	futexWait        = 0
	futexWake        = 1
	futexPrivateFlag = 128
)

// Wait blocks until word is woken, provided it still equals expected.
// It returns immediately if the value already differs.
func Wait(word *atomic.Uint32, expected uint32) {
	for {
		_, _, errno := unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(word)),
			futexWait|futexPrivateFlag,
			uintptr(expected),
			0, 0, 0,
		)
		// EAGAIN: value already changed. EINTR: let the caller re-check.
		if errno != unix.EINTR || word.Load() != expected {
			return
		}
	}
}

// WakeOne wakes at most one waiter on word.
func WakeOne(word *atomic.Uint32) {
	wake(word, 1)
}

// WakeAll wakes every waiter on word.
func WakeAll(word *atomic.Uint32) {
	wake(word, int32(^uint32(0)>>1))
}

func wake(word *atomic.Uint32, n int32) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(word)),
		futexWake|futexPrivateFlag,
		uintptr(n),
		0, 0, 0,
	)
}
