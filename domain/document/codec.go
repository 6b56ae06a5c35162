package document

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct encodes d as a protobuf Struct:
//
//	{"version": "12", "schema": "v1.2.0", "updated": RFC3339Nano, "entries": {...}}
//
// The version travels as a string because Struct numbers are doubles.
func ToStruct(d Document) (*structpb.Struct, error) {
	entries := make(map[string]any, len(d.Entries))
	for k, v := range d.Entries {
		entries[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"version": strconv.FormatUint(d.Version, 10),
		"schema":  d.Schema,
		"updated": d.Updated.UTC().Format(time.RFC3339Nano),
		"entries": entries,
	})
}

// FromStruct decodes a Struct produced by ToStruct. Missing version and
// updated fields are left zero, which is what publish requests send.
func FromStruct(s *structpb.Struct) (Document, error) {
	fields := s.GetFields()
	d := Document{Entries: map[string]string{}}

	if v, ok := fields["version"]; ok && v.GetStringValue() != "" {
		n, err := strconv.ParseUint(v.GetStringValue(), 10, 64)
		if err != nil {
			return Document{}, errors.Wrap(err, "document: version")
		}
		d.Version = n
	}
	d.Schema = fields["schema"].GetStringValue()
	if u := fields["updated"].GetStringValue(); u != "" {
		ts, err := time.Parse(time.RFC3339Nano, u)
		if err != nil {
			return Document{}, errors.Wrap(err, "document: updated")
		}
		d.Updated = ts
	}
	for k, v := range fields["entries"].GetStructValue().GetFields() {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return Document{}, errors.Newf("document: entry %q is not a string", k)
		}
		d.Entries[k] = sv.StringValue
	}
	return d, nil
}

// Marshal encodes d for storage.
func Marshal(d Document) ([]byte, error) {
	s, err := ToStruct(d)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// Unmarshal decodes bytes written by Marshal.
func Unmarshal(data []byte) (Document, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return Document{}, errors.Wrap(err, "document: unmarshal")
	}
	return FromStruct(&s)
}
