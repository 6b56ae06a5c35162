// Package memory provides the low-level primitives for safe reclamation
// of values that are replaced while concurrent readers may still hold them.
//
// A reader announces the address it is about to dereference in a Slot.
// Writers hand superseded addresses to Domain.Retire; once the retired list
// reaches the scan threshold, Domain.Scan snapshots every registered slot and
// reclaims the retired addresses nobody has published. Slots and the retired
// list are the only shared bookkeeping; the read path touches nothing but
// the reader's own slot.
//
// A process-wide Domain is created lazily by Default. It is never torn down.
package memory
