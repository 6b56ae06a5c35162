// Package broadcaster relays change events from the store's outbox to a
// message broker.
package broadcaster
