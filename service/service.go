package service

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"rcud/domain/document"
	"rcud/infra/logging"
	"rcud/infra/memory"
	"rcud/infra/sequence"
	"rcud/infra/store"
	"rcud/rcu"
)

// ErrKeyNotFound is returned by Get for keys absent from the current document.
var ErrKeyNotFound = errors.New("service: key not found")

// Options configures a Service. The zero value is usable.
type Options struct {
	Domain       *memory.Domain // Default: memory.Default()
	MaxIdleSlots int            // Default: 64
	Logger       *slog.Logger   // Default: logging.For("service")
	Now          func() time.Time
}

/*
Service is the ONLY write entry point into the document.

Publish is serialized by a mutex and made durable before it becomes
visible. Reads never take that mutex: they borrow a hazard slot from the
pool and read the cell lock-free.
*/
type Service struct {
	cell  *rcu.Cell[document.Document]
	slots *memory.SlotPool
	store *store.Store
	seq   *sequence.Sequencer

	mu  sync.Mutex
	log *slog.Logger
	now func() time.Time
}

// Event is the change record written to the outbox for every publish.
type Event struct {
	V       int       `json:"v"`
	Type    string    `json:"type"`
	Version uint64    `json:"version"`
	Schema  string    `json:"schema"`
	Keys    int       `json:"keys"`
	Updated time.Time `json:"updated"`
}

// Stats describes the served document and the reclamation domain.
type Stats struct {
	Version   uint64
	Schema    string
	Keys      int
	IdleSlots int
	Memory    memory.Stats
}

// New restores the latest document from st and starts serving it.
func New(st *store.Store, opts Options) (*Service, error) {
	if opts.Domain == nil {
		opts.Domain = memory.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.For("service")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	doc, err := restore(st)
	if err != nil {
		return nil, err
	}

	s := &Service{
		store: st,
		seq:   sequence.New(doc.Version),
		slots: memory.NewSlotPool(opts.Domain, opts.MaxIdleSlots),
		log:   opts.Logger,
		now:   opts.Now,
	}
	s.cell = rcu.NewWithConfig(doc, rcu.Config[document.Document]{
		Domain: opts.Domain,
		Release: func(d document.Document) {
			s.log.Debug("document reclaimed", "version", d.Version)
		},
	})

	s.log.Info("document restored",
		"version", doc.Version,
		"schema", doc.Schema,
		"keys", len(doc.Entries),
	)
	return s, nil
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Publish replaces the served document with one built from schema and
// entries, and returns it. The schema may not go backwards.
func (s *Service) Publish(schema string, entries map[string]string) (document.Document, error) {
	next, err := document.New(schema, entries)
	if err != nil {
		return document.Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var cur document.Document
	s.view(func(d *document.Document) { cur = *d })
	if err := document.CheckUpgrade(cur, next); err != nil {
		return document.Document{}, err
	}

	next.Version = s.seq.Current() + 1
	next.Updated = s.now().UTC()

	// 1️⃣ Durable first
	if err := s.persist(next); err != nil {
		return document.Document{}, err
	}
	s.seq.Next()

	// 2️⃣ Then visible
	s.cell.Write(next)

	s.log.Info("document published",
		"version", next.Version,
		"schema", next.Schema,
		"keys", len(next.Entries),
	)
	return next, nil
}

func (s *Service) persist(d document.Document) error {
	data, err := document.Marshal(d)
	if err != nil {
		return err
	}
	event, err := json.Marshal(Event{
		V:       1,
		Type:    "document.published",
		Version: d.Version,
		Schema:  d.Schema,
		Keys:    len(d.Entries),
		Updated: d.Updated,
	})
	if err != nil {
		return errors.Wrap(err, "service: encode event")
	}
	return s.store.Append(d.Version, data, event)
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// Get returns the value stored under key and the version it was read from.
func (s *Service) Get(key string) (string, uint64, error) {
	var (
		val     string
		ok      bool
		version uint64
	)
	s.view(func(d *document.Document) {
		val, ok = d.Get(key)
		version = d.Version
	})
	if !ok {
		return "", version, errors.Wrapf(ErrKeyNotFound, "%q", document.NormalizeKey(key))
	}
	return val, version, nil
}

// Snapshot returns a private copy of the current document.
func (s *Service) Snapshot() document.Document {
	var out document.Document
	s.view(func(d *document.Document) { out = d.Clone() })
	return out
}

// Version returns the version of the current document.
func (s *Service) Version() uint64 {
	return s.seq.Current()
}

func (s *Service) Stats() Stats {
	var st Stats
	s.view(func(d *document.Document) {
		st.Version = d.Version
		st.Schema = d.Schema
		st.Keys = len(d.Entries)
	})
	st.IdleSlots = s.slots.Idle()
	st.Memory = s.cell.Domain().Stats()
	return st
}

// view runs fn on the current document under a pooled hazard slot.
// A slot is returned to the pool only after a clean read; on a panic it
// is dropped so the pool never sees it.
func (s *Service) view(fn func(*document.Document)) {
	slot := s.slots.Get()
	s.cell.View(slot, fn)
	s.slots.Put(slot)
}

// Close releases every document the service still holds.
// No request may be in flight.
func (s *Service) Close() {
	s.cell.Close()
	s.slots.Close()
}
