// Package futex provides a wait/wake primitive keyed on the address of a
// 32-bit atomic word, in the spirit of the Linux futex(2) call.
//
// Wait blocks while the word still holds the expected value and may return
// spuriously; callers re-check their condition in a loop. WakeOne and
// WakeAll wake goroutines blocked on the same word.
package futex
