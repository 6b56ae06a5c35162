package document

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/mod/semver"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrInvalidSchema   = errors.New("document: schema is not a semantic version")
	ErrEmptyKey        = errors.New("document: empty key")
	ErrDuplicateKey    = errors.New("document: keys collide after normalization")
	ErrSchemaDowngrade = errors.New("document: schema downgrade")
)

// InitialSchema is the schema of the empty document a fresh server starts with.
const InitialSchema = "v0.0.0"

// Document is one immutable snapshot of the served key/value set.
// Once published it is never modified; replace it with a new one.
type Document struct {
	Version uint64
	Schema  string
	Entries map[string]string
	Updated time.Time
}

// Empty returns the document served before anything is published.
func Empty() Document {
	return Document{Schema: InitialSchema, Entries: map[string]string{}}
}

// New validates schema and normalizes entries into a new document.
// Version and Updated are stamped by the publisher.
func New(schema string, entries map[string]string) (Document, error) {
	schema = strings.TrimSpace(schema)
	if !strings.HasPrefix(schema, "v") {
		schema = "v" + schema
	}
	if !semver.IsValid(schema) {
		return Document{}, errors.Wrapf(ErrInvalidSchema, "%q", schema)
	}

	out := make(map[string]string, len(entries))
	for k, v := range entries {
		nk := NormalizeKey(k)
		if nk == "" {
			return Document{}, ErrEmptyKey
		}
		if _, dup := out[nk]; dup {
			return Document{}, errors.Wrapf(ErrDuplicateKey, "%q", nk)
		}
		out[nk] = v
	}
	return Document{Schema: semver.Canonical(schema), Entries: out}, nil
}

// NormalizeKey trims surrounding space and applies Unicode NFC, so that
// keys typed with different composition forms address the same entry.
func NormalizeKey(k string) string {
	return norm.NFC.String(strings.TrimSpace(k))
}

// Get looks up a key after normalizing it.
func (d Document) Get(key string) (string, bool) {
	v, ok := d.Entries[NormalizeKey(key)]
	return v, ok
}

// Keys returns the keys in sorted order.
func (d Document) Keys() []string {
	return slices.Sorted(maps.Keys(d.Entries))
}

// Clone returns a deep copy that callers may modify.
func (d Document) Clone() Document {
	d.Entries = maps.Clone(d.Entries)
	if d.Entries == nil {
		d.Entries = map[string]string{}
	}
	return d
}

// CheckUpgrade rejects next when its schema is older than cur's.
func CheckUpgrade(cur, next Document) error {
	if semver.Compare(next.Schema, cur.Schema) < 0 {
		return errors.Wrapf(ErrSchemaDowngrade, "%s -> %s", cur.Schema, next.Schema)
	}
	return nil
}
