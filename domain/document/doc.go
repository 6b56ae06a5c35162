// Package document defines the key/value snapshot served by rcud and its
// storage encoding. Documents are immutable once published: the server
// replaces the whole document on every write, which is what lets readers
// use it without locks.
package document
