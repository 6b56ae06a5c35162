// Package store persists published documents and the change outbox in
// Pebble.
//
// Keys:
//
//	doc/<version:020d>     marshalled document
//	outbox/<version:020d>  [state:1][retries:4][lastAttempt:8][event...]
//
// A document and its outbox record are written in one batch, so an event
// exists for every durable version and nothing else.
package store
