package document

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestNewNormalizes(t *testing.T) {
	d, err := New("1.2", map[string]string{
		"  feature.alpha ": "on",
		"cafe\u0301":       "decomposed",
	})
	require.NoError(t, err)

	assert.Equal(t, "v1.2.0", d.Schema)
	assert.Equal(t, []string{"caf\u00e9", "feature.alpha"}, d.Keys())

	v, ok := d.Get("caf\u00e9")
	require.True(t, ok, "composed and decomposed keys must match")
	assert.Equal(t, "decomposed", v)
}

func TestNewRejects(t *testing.T) {
	_, err := New("latest", nil)
	assert.True(t, errors.Is(err, ErrInvalidSchema))

	_, err = New("v1.0.0", map[string]string{"  ": "x"})
	assert.True(t, errors.Is(err, ErrEmptyKey))
}

func TestNewRejectsCollidingKeys(t *testing.T) {
	cases := []map[string]string{
		{"a": "first", " a ": "second"},
		{"caf\u00e9": "composed", "cafe\u0301": "decomposed"},
	}
	for _, entries := range cases {
		// map order varies between runs; every attempt must fail
		for i := 0; i < 20; i++ {
			_, err := New("v1.0.0", entries)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDuplicateKey))
		}
	}
}

func TestCheckUpgrade(t *testing.T) {
	cur, err := New("v1.4.0", nil)
	require.NoError(t, err)

	same, _ := New("v1.4.0", nil)
	newer, _ := New("v2.0.0", nil)
	older, _ := New("v1.3.9", nil)

	assert.NoError(t, CheckUpgrade(cur, same))
	assert.NoError(t, CheckUpgrade(cur, newer))
	assert.True(t, errors.Is(CheckUpgrade(cur, older), ErrSchemaDowngrade))
	assert.NoError(t, CheckUpgrade(Empty(), cur))
}

func TestCloneIsIndependent(t *testing.T) {
	d, _ := New("v1.0.0", map[string]string{"a": "1"})
	c := d.Clone()
	c.Entries["a"] = "2"
	assert.Equal(t, "1", d.Entries["a"])
}

func TestCodecRoundTrip(t *testing.T) {
	d, err := New("v3.1.4", map[string]string{"region": "eu", "limit": "10"})
	require.NoError(t, err)
	d.Version = 1 << 60
	d.Updated = time.Date(2026, 10, 18, 12, 0, 0, 5, time.UTC)

	data, err := Marshal(d)
	require.NoError(t, err)
	got, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, d.Version, got.Version)
	assert.Equal(t, d.Schema, got.Schema)
	assert.Equal(t, d.Entries, got.Entries)
	assert.True(t, d.Updated.Equal(got.Updated))
}

func TestFromStructRejectsNonStringEntries(t *testing.T) {
	s, err := ToStruct(Empty())
	require.NoError(t, err)
	s.Fields["entries"].GetStructValue().Fields["n"] = structpb.NewNumberValue(1)
	_, err = FromStruct(s)
	assert.Error(t, err)
}
