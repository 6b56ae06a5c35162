package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rcud/domain/document"
	"rcud/infra/memory"
	"rcud/infra/store"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t testing.TB, dir string) *store.Store {
	t.Helper()
	st, err := store.Open(dir)
	require.NoError(t, err)
	return st
}

func newService(t testing.TB, st *store.Store) *Service {
	t.Helper()
	svc, err := New(st, Options{
		Domain: memory.NewDomain(memory.Config{Name: "test"}),
		Now:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc
}

func setup(t *testing.T) *Service {
	st := openStore(t, t.TempDir())
	svc := newService(t, st)
	t.Cleanup(func() {
		svc.Close()
		_ = st.Close()
	})
	return svc
}

func TestFreshServiceServesEmptyDocument(t *testing.T) {
	svc := setup(t)

	snap := svc.Snapshot()
	assert.Equal(t, uint64(0), snap.Version)
	assert.Equal(t, document.InitialSchema, snap.Schema)
	assert.Empty(t, snap.Entries)

	_, _, err := svc.Get("anything")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestPublishThenGet(t *testing.T) {
	svc := setup(t)

	d, err := svc.Publish("1.0.0", map[string]string{" region ": "eu"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), d.Version)
	assert.Equal(t, "v1.0.0", d.Schema)
	assert.True(t, fixedNow.Equal(d.Updated))

	v, version, err := svc.Get("region")
	require.NoError(t, err)
	assert.Equal(t, "eu", v)
	assert.Equal(t, uint64(1), version)

	d, err = svc.Publish("1.1.0", map[string]string{"region": "us"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), d.Version)

	v, version, err = svc.Get("region")
	require.NoError(t, err)
	assert.Equal(t, "us", v)
	assert.Equal(t, uint64(2), version)
	assert.Equal(t, uint64(2), svc.Version())
}

func TestPublishRejectsDowngrade(t *testing.T) {
	svc := setup(t)

	_, err := svc.Publish("v2.0.0", map[string]string{"a": "1"})
	require.NoError(t, err)

	_, err = svc.Publish("v1.9.0", map[string]string{"a": "2"})
	assert.ErrorIs(t, err, document.ErrSchemaDowngrade)

	v, version, err := svc.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	assert.Equal(t, uint64(1), version)
}

func TestPublishRejectsInvalidInput(t *testing.T) {
	svc := setup(t)

	_, err := svc.Publish("latest", nil)
	assert.ErrorIs(t, err, document.ErrInvalidSchema)

	_, err = svc.Publish("1.0.0", map[string]string{"  ": "x"})
	assert.ErrorIs(t, err, document.ErrEmptyKey)

	assert.Equal(t, uint64(0), svc.Version())
}

func TestSnapshotIsPrivateCopy(t *testing.T) {
	svc := setup(t)
	_, err := svc.Publish("1.0.0", map[string]string{"a": "1"})
	require.NoError(t, err)

	snap := svc.Snapshot()
	snap.Entries["a"] = "mutated"

	v, _, err := svc.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestPublishWritesOutboxEvent(t *testing.T) {
	dir := t.TempDir()
	st := openStore(t, dir)
	defer st.Close()
	svc := newService(t, st)
	defer svc.Close()

	_, err := svc.Publish("1.0.0", map[string]string{"a": "1", "b": "2"})
	require.NoError(t, err)

	rec, err := st.Outbox(1)
	require.NoError(t, err)
	assert.Equal(t, store.StateNew, rec.State)

	var ev Event
	require.NoError(t, json.Unmarshal(rec.Event, &ev))
	assert.Equal(t, 1, ev.V)
	assert.Equal(t, "document.published", ev.Type)
	assert.Equal(t, uint64(1), ev.Version)
	assert.Equal(t, "v1.0.0", ev.Schema)
	assert.Equal(t, 2, ev.Keys)
}

func TestRestoreAfterRestart(t *testing.T) {
	dir := t.TempDir()

	st := openStore(t, dir)
	svc := newService(t, st)
	for i := 1; i <= 3; i++ {
		_, err := svc.Publish(fmt.Sprintf("1.%d.0", i), map[string]string{"n": fmt.Sprint(i)})
		require.NoError(t, err)
	}
	svc.Close()
	require.NoError(t, st.Close())

	st = openStore(t, dir)
	defer st.Close()
	svc = newService(t, st)
	defer svc.Close()

	snap := svc.Snapshot()
	assert.Equal(t, uint64(3), snap.Version)
	assert.Equal(t, "v1.3.0", snap.Schema)
	assert.Equal(t, map[string]string{"n": "3"}, snap.Entries)
	assert.True(t, fixedNow.Equal(snap.Updated))

	// versions resume after the restored one
	d, err := svc.Publish("1.3.0", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), d.Version)
}

func TestRestoreRejectsMismatchedVersion(t *testing.T) {
	st := openStore(t, t.TempDir())
	defer st.Close()

	data, err := document.Marshal(document.Document{Version: 9, Schema: "v1.0.0"})
	require.NoError(t, err)
	require.NoError(t, st.Append(2, data, nil))

	_, err = New(st, Options{Domain: memory.NewDomain(memory.Config{})})
	assert.Error(t, err)
}

func TestCompact(t *testing.T) {
	dir := t.TempDir()
	st := openStore(t, dir)
	defer st.Close()
	svc := newService(t, st)
	defer svc.Close()

	for i := 0; i < 5; i++ {
		_, err := svc.Publish("1.0.0", map[string]string{"i": fmt.Sprint(i)})
		require.NoError(t, err)
	}

	require.NoError(t, svc.Compact(2))

	versions, err := st.Versions()
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 5}, versions)
}

func TestReclaimFreesRetiredDocuments(t *testing.T) {
	svc := setup(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Publish("1.0.0", map[string]string{"i": fmt.Sprint(i)})
		require.NoError(t, err)
	}
	require.Equal(t, 3, svc.Stats().Memory.Retired)

	assert.Equal(t, 3, svc.Reclaim())

	st := svc.Stats()
	assert.Equal(t, 0, st.Memory.Retired)
	assert.Equal(t, uint64(3), st.Version)
	assert.Equal(t, 1, st.Keys)
	assert.Equal(t, 1, st.IdleSlots)
}

func TestConcurrentReadersDuringPublish(t *testing.T) {
	svc := setup(t)
	_, err := svc.Publish("1.0.0", map[string]string{"k": "0"})
	require.NoError(t, err)

	const (
		readers = 8
		writes  = 200
	)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, readers)

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for {
				select {
				case <-stop:
					return
				default:
				}
				v, version, err := svc.Get("k")
				if err != nil {
					errs <- err
					return
				}
				if v != fmt.Sprint(version-1) {
					errs <- errors.Newf("value %q at version %d", v, version)
					return
				}
				if version < last {
					errs <- errors.Newf("version went back from %d to %d", last, version)
					return
				}
				last = version
			}
		}()
	}

	for i := 1; i <= writes; i++ {
		_, err := svc.Publish("1.0.0", map[string]string{"k": fmt.Sprint(i)})
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestReadAfterClosePanicsWithAssertion(t *testing.T) {
	svc := setup(t)
	_, err := svc.Publish("1.0.0", map[string]string{"k": "v"})
	require.NoError(t, err)

	svc.Close()
	require.Zero(t, svc.slots.Idle())

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		_, _, _ = svc.Get("k")
	}()

	err, ok := recovered.(error)
	require.True(t, ok, "expected an error panic, got %v", recovered)
	assert.True(t, errors.IsAssertionFailure(err))
	assert.Contains(t, err.Error(), "current value is nil")
	assert.Zero(t, svc.slots.Idle(), "slot from a failed read must not return to the pool")
}

func BenchmarkGet(b *testing.B) {
	st := openStore(b, b.TempDir())
	defer st.Close()
	svc := newService(b, st)
	defer svc.Close()

	_, err := svc.Publish("1.0.0", map[string]string{"k": "v"})
	require.NoError(b, err)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, _, err := svc.Get("k"); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func TestCompactPurgesAckedEvents(t *testing.T) {
	st := openStore(t, t.TempDir())
	defer st.Close()
	svc := newService(t, st)
	defer svc.Close()

	for i := 0; i < 3; i++ {
		_, err := svc.Publish("1.0.0", nil)
		require.NoError(t, err)
	}
	require.NoError(t, st.UpdateState(1, store.StateAcked, 0))

	require.NoError(t, svc.Compact(1))

	_, err := st.Outbox(1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Outbox(2)
	assert.NoError(t, err, "unacked events survive compaction")
}
