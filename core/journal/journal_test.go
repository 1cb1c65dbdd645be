package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/events"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/factory"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
	"github.com/marcoioli/proyecto-programacion3-grupo12/internal/eventbus"
)

func sampleRecords(base time.Time) []Record {
	return []Record{
		{ID: "1", Timestamp: base, Type: TypeTransition, VehicleID: "amb-1", From: "Available", To: "OnHomeVisit", Cause: "home_visit", Seq: 1},
		{ID: "2", Timestamp: base.Add(time.Second), Type: TypeRequest, VehicleID: "amb-1", Cause: "home_visit", Granted: true, WaitMS: 12},
		{ID: "3", Timestamp: base.Add(2 * time.Second), Type: TypeTransition, VehicleID: "amb-1", From: "OnHomeVisit", To: "ReturningEmpty", Cause: "return", Seq: 2},
		{ID: "4", Timestamp: base.Add(3 * time.Second), Type: TypeTransition, VehicleID: "amb-2", From: "Available", To: "InMaintenance", Cause: "maintenance", Seq: 1},
		{ID: "5", Timestamp: base.Add(4 * time.Second), Type: TypeRun, RunID: "r1", Phase: "stopped"},
	}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	plain, err := NewJSONLStore(filepath.Join(dir, "plain.jsonl"))
	require.NoError(t, err)
	rot, err := NewRotatingJSONLStore(filepath.Join(dir, "rot", "journal.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	sq, err := NewSQLiteStore(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	stores := map[string]Store{"jsonl": plain, "rotating": rot, "sqlite": sq}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoresQuery(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, r := range sampleRecords(base) {
				require.NoError(t, store.Append(ctx, r))
			}

			all, err := store.Query(ctx, Query{})
			require.NoError(t, err)
			require.Len(t, all, 5)
			assert.Equal(t, "1", all[0].ID)
			assert.True(t, all[0].Timestamp.Equal(base))

			tr, err := store.Query(ctx, Query{Type: TypeTransition, VehicleID: "amb-1"})
			require.NoError(t, err)
			require.Len(t, tr, 2)
			assert.Equal(t, "ReturningEmpty", tr[1].To)

			window, err := store.Query(ctx, Query{Start: base.Add(time.Second), End: base.Add(3 * time.Second)})
			require.NoError(t, err)
			assert.Len(t, window, 3)

			st, err := store.Query(ctx, Query{State: "InMaintenance"})
			require.NoError(t, err)
			require.Len(t, st, 1)
			assert.Equal(t, "amb-2", st[0].VehicleID)

			last, err := store.Query(ctx, Query{Limit: 2})
			require.NoError(t, err)
			require.Len(t, last, 2)
			assert.Equal(t, "4", last[0].ID)
			assert.Equal(t, "5", last[1].ID)
		})
	}
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 5, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	pad := strings.Repeat("x", 4096)
	const n = 600
	for i := 0; i < n; i++ {
		rec := Record{ID: fmt.Sprint(i), Timestamp: time.Now(), Type: TypeRequest, Error: pad}
		require.NoError(t, store.Append(context.Background(), rec))
	}
	files, _ := filepath.Glob(filepath.Join(dir, "journal-*.jsonl"))
	require.NotEmpty(t, files, "expected rotated files")

	out, err := store.Query(context.Background(), Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, fmt.Sprint(n-1), out[0].ID)
}

func TestJSONLStoreSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.jsonl")
	store, err := NewJSONLStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), Record{ID: "ok", Type: TypeRun, Timestamp: time.Now()}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, _ = f.WriteString("{not json\n")
	require.NoError(t, f.Close())

	out, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].ID)
}

func TestConfigAndOpen(t *testing.T) {
	var c Config
	c.SetDefaults()
	require.NoError(t, c.Validate())
	assert.Equal(t, "jsonl", c.Backend)
	assert.Equal(t, "journal.jsonl", c.Path)

	bad := Config{Backend: "csv", Path: "x"}
	require.Error(t, bad.Validate())

	dir := t.TempDir()
	s, err := Open(Config{Backend: "sqlite", Path: filepath.Join(dir, "j.db")})
	require.NoError(t, err)
	_, ok := s.(*SQLiteStore)
	assert.True(t, ok)
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: filepath.Join(dir, "r.jsonl"), MaxSizeMB: 1})
	require.NoError(t, err)
	_, ok = s.(*RotatingJSONLStore)
	assert.True(t, ok)
	require.NoError(t, s.Close())

	_, err = Open(Config{Backend: "csv"})
	require.Error(t, err)
}

func TestFromEvent(t *testing.T) {
	now := time.Now()
	rec, ok := FromEvent(events.StateChangeEvent{VehicleID: "amb", From: model.StateAvailable, To: model.StateTransporting, Cause: model.EventTransport, Requester: "c1", Seq: 3, Time: now})
	require.True(t, ok)
	assert.Equal(t, TypeTransition, rec.Type)
	assert.Equal(t, "Transporting", rec.To)
	assert.Equal(t, "transport", rec.Cause)
	assert.NotEmpty(t, rec.ID)

	rec, ok = FromEvent(events.RequestEvent{VehicleID: "amb", Kind: model.EventHomeVisit, Err: errors.New("cancelled"), Waited: 1500 * time.Microsecond})
	require.True(t, ok)
	assert.Equal(t, TypeRequest, rec.Type)
	assert.Equal(t, "cancelled", rec.Error)
	assert.InDelta(t, 1.5, rec.WaitMS, 1e-9)
	assert.False(t, rec.Timestamp.IsZero())

	_, ok = FromEvent(events.AssociatesChanged{Action: "add"})
	assert.False(t, ok)
}

func TestRecorderAppendsBusEvents(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "rec.jsonl"))
	require.NoError(t, err)
	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := StartRecorder(ctx, bus, store, nil)
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, time.Millisecond)

	bus.Publish(events.RunEvent{RunID: "r9", Phase: events.RunStarted, Time: time.Now()})
	bus.Publish(events.StateChangeEvent{VehicleID: "amb", To: model.StateOnHomeVisit, Time: time.Now()})
	bus.Publish(events.AssociatesChanged{Action: "add"})

	require.Eventually(t, func() bool {
		out, err := store.Query(context.Background(), Query{})
		return err == nil && len(out) == 2
	}, time.Second, 5*time.Millisecond)

	bus.Close()
	<-done
}

type discardStore struct{ path string }

func (discardStore) Append(context.Context, Record) error           { return nil }
func (discardStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (discardStore) Close() error                                   { return nil }

func TestRegisterBackend(t *testing.T) {
	if !backends.Has("discard") {
		require.NoError(t, RegisterBackend("discard", func(conf map[string]any) (Store, error) {
			var c Config
			if err := factory.Decode(conf, &c); err != nil {
				return nil, err
			}
			return discardStore{path: c.Path}, nil
		}))
	}
	require.Error(t, RegisterBackend("sqlite", nil))

	s, err := Open(Config{Backend: "discard", Path: "nowhere"})
	require.NoError(t, err)
	assert.Equal(t, discardStore{path: "nowhere"}, s)
}
