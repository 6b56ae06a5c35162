package store

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned when no document or outbox record exists.
var ErrNotFound = errors.New("store: not found")

const (
	docPrefix    = "doc/"
	outboxPrefix = "outbox/"
)

type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "store: open %s", dir)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append durably records a document version together with its change
// event, which starts in StateNew.
func (s *Store) Append(version uint64, doc, event []byte) error {
	b := s.db.NewBatch()
	defer b.Close()

	if err := b.Set(docKey(version), doc, nil); err != nil {
		return errors.Wrap(err, "store: append document")
	}
	rec := OutboxRecord{State: StateNew, Event: event}
	if err := b.Set(outboxKey(version), encodeRecord(rec), nil); err != nil {
		return errors.Wrap(err, "store: append outbox")
	}
	return errors.Wrapf(b.Commit(pebble.Sync), "store: commit version %d", version)
}

// Document returns the stored bytes of one version.
func (s *Store) Document(version uint64) ([]byte, error) {
	return s.get(docKey(version))
}

// Latest returns the highest stored version and its document.
func (s *Store) Latest() (uint64, []byte, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(docPrefix),
		UpperBound: prefixEnd(docPrefix),
	})
	if err != nil {
		return 0, nil, err
	}
	defer iter.Close()

	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return 0, nil, err
		}
		return 0, nil, ErrNotFound
	}
	version, err := parseKey(iter.Key(), docPrefix)
	if err != nil {
		return 0, nil, err
	}
	return version, bytes.Clone(iter.Value()), nil
}

// TruncateBefore deletes every document older than version.
// Outbox records are removed by the broadcaster once delivered.
func (s *Store) TruncateBefore(version uint64) error {
	if version == 0 {
		return nil
	}
	return errors.Wrap(
		s.db.DeleteRange(docKey(0), docKey(version), pebble.Sync),
		"store: truncate",
	)
}

// Versions returns every stored document version in ascending order.
func (s *Store) Versions() ([]uint64, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(docPrefix),
		UpperBound: prefixEnd(docPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []uint64
	for iter.First(); iter.Valid(); iter.Next() {
		v, err := parseKey(iter.Key(), docPrefix)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, iter.Error()
}

func (s *Store) get(key []byte) ([]byte, error) {
	val, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return bytes.Clone(val), nil
}

// -------------------- Helpers --------------------

func docKey(version uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", docPrefix, version))
}

func outboxKey(version uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", outboxPrefix, version))
}

func prefixEnd(prefix string) []byte {
	return []byte(prefix + "~")
}

func parseKey(b []byte, prefix string) (uint64, error) {
	var v uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(prefix))), "%d", &v)
	return v, errors.Wrapf(err, "store: parse key %q", b)
}
