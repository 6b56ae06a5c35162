package service

import (
	"github.com/cockroachdb/errors"

	"rcud/domain/document"
	"rcud/infra/store"
)

/*
restore loads the most recent durable document.

IMPORTANT:
- This MUST run before accepting traffic
- The outbox is NOT replayed here; the broadcaster drains it
*/
func restore(st *store.Store) (document.Document, error) {
	version, data, err := st.Latest()
	if errors.Is(err, store.ErrNotFound) {
		return document.Empty(), nil
	}
	if err != nil {
		return document.Document{}, errors.Wrap(err, "service: restore")
	}

	doc, err := document.Unmarshal(data)
	if err != nil {
		return document.Document{}, errors.Wrapf(err, "service: restore version %d", version)
	}
	if doc.Version != version {
		return document.Document{}, errors.Newf(
			"service: stored version %d holds document version %d", version, doc.Version)
	}
	return doc, nil
}
