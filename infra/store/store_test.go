package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLatestEmpty(t *testing.T) {
	s := openTemp(t)

	_, _, err := s.Latest()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendAndLatest(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Append(1, []byte("one"), []byte("e1")))
	require.NoError(t, s.Append(2, []byte("two"), []byte("e2")))
	require.NoError(t, s.Append(10, []byte("ten"), []byte("e10")))

	v, doc, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), v)
	assert.Equal(t, []byte("ten"), doc)

	got, err := s.Document(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	_, err = s.Document(3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendWritesOutbox(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Append(7, []byte("doc"), []byte("event")))

	rec, err := s.Outbox(7)
	require.NoError(t, err)
	assert.Equal(t, StateNew, rec.State)
	assert.Equal(t, uint32(0), rec.Retries)
	assert.Equal(t, []byte("event"), rec.Event)
}

func TestTruncateBefore(t *testing.T) {
	s := openTemp(t)
	for v := uint64(1); v <= 5; v++ {
		require.NoError(t, s.Append(v, []byte{byte(v)}, nil))
	}

	require.NoError(t, s.TruncateBefore(4))

	versions, err := s.Versions()
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 5}, versions)

	// outbox is untouched
	_, err = s.Outbox(1)
	assert.NoError(t, err)
}

func TestScanByStateAndUpdate(t *testing.T) {
	s := openTemp(t)
	for v := uint64(1); v <= 3; v++ {
		require.NoError(t, s.Append(v, nil, []byte{byte(v)}))
	}
	require.NoError(t, s.UpdateState(2, StateAcked, 1))

	var pending []uint64
	require.NoError(t, s.ScanByState(StateNew, func(v uint64, rec OutboxRecord) error {
		pending = append(pending, v)
		assert.Equal(t, []byte{byte(v)}, rec.Event)
		return nil
	}))
	assert.Equal(t, []uint64{1, 3}, pending)

	rec, err := s.Outbox(2)
	require.NoError(t, err)
	assert.Equal(t, StateAcked, rec.State)
	assert.Equal(t, uint32(1), rec.Retries)
	assert.NotZero(t, rec.LastAttempt)
	assert.Equal(t, []byte{2}, rec.Event)

	require.NoError(t, s.DeleteOutbox(2))
	_, err = s.Outbox(2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMissing(t *testing.T) {
	s := openTemp(t)
	assert.ErrorIs(t, s.UpdateState(9, StateSent, 0), ErrNotFound)
}

func TestDecodeShortRecord(t *testing.T) {
	_, err := decodeRecord([]byte{1, 2})
	assert.Error(t, err)
}

func TestOutboxStateString(t *testing.T) {
	assert.Equal(t, "NEW", StateNew.String())
	assert.Equal(t, "FAILED", StateFailed.String())
	assert.Equal(t, "UNKNOWN", OutboxState(42).String())
}

func TestPurgeAcked(t *testing.T) {
	s := openTemp(t)
	for v := uint64(1); v <= 4; v++ {
		require.NoError(t, s.Append(v, nil, nil))
	}
	require.NoError(t, s.UpdateState(1, StateAcked, 0))
	require.NoError(t, s.UpdateState(2, StateFailed, 5))
	require.NoError(t, s.UpdateState(4, StateAcked, 0))

	n, err := s.PurgeAcked(4)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Outbox(1)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, v := range []uint64{2, 3, 4} {
		_, err = s.Outbox(v)
		assert.NoError(t, err, "version %d", v)
	}
}
