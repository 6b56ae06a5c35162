package store

import (
	"encoding/binary"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type OutboxState uint8

const (
	StateNew OutboxState = iota
	StateSent
	StateAcked
	StateFailed
)

func (s OutboxState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

type OutboxRecord struct {
	State       OutboxState
	Retries     uint32
	LastAttempt int64
	Event       []byte
}

const recordHeader = 1 + 4 + 8

// binary encoding: [state:1][retries:4][lastAttempt:8][event...]
func encodeRecord(r OutboxRecord) []byte {
	buf := make([]byte, recordHeader+len(r.Event))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[recordHeader:], r.Event)
	return buf
}

func decodeRecord(b []byte) (OutboxRecord, error) {
	if len(b) < recordHeader {
		return OutboxRecord{}, errors.New("store: invalid outbox record length")
	}
	return OutboxRecord{
		State:       OutboxState(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Event:       append([]byte(nil), b[recordHeader:]...),
	}, nil
}

// -------------------- API --------------------

// Outbox returns the record for a version.
func (s *Store) Outbox(version uint64) (OutboxRecord, error) {
	val, err := s.get(outboxKey(version))
	if err != nil {
		return OutboxRecord{}, err
	}
	return decodeRecord(val)
}

// UpdateState records a delivery attempt outcome, keeping the event.
func (s *Store) UpdateState(version uint64, state OutboxState, retries uint32) error {
	rec, err := s.Outbox(version)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return s.db.Set(outboxKey(version), encodeRecord(rec), pebble.Sync)
}

// DeleteOutbox removes a delivered record.
func (s *Store) DeleteOutbox(version uint64) error {
	return s.db.Delete(outboxKey(version), pebble.Sync)
}

// ScanByState iterates records in the given state in version order.
func (s *Store) ScanByState(
	state OutboxState,
	fn func(version uint64, rec OutboxRecord) error,
) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(outboxPrefix),
		UpperBound: prefixEnd(outboxPrefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		if rec.State != state {
			continue
		}

		version, err := parseKey(iter.Key(), outboxPrefix)
		if err != nil {
			return err
		}

		if err := fn(version, rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// PurgeAcked deletes acknowledged records older than version and returns
// how many it removed.
func (s *Store) PurgeAcked(before uint64) (int, error) {
	var keys [][]byte
	err := s.ScanByState(StateAcked, func(version uint64, _ OutboxRecord) error {
		if version < before {
			keys = append(keys, outboxKey(version))
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return 0, err
	}

	b := s.db.NewBatch()
	defer b.Close()
	for _, k := range keys {
		if err := b.Delete(k, nil); err != nil {
			return 0, err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, errors.Wrap(err, "store: purge acked")
	}
	return len(keys), nil
}
