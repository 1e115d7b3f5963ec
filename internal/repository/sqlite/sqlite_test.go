package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cctvmonitor/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data", "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testEvent(uuid, camera string, kind model.BehaviorKind, ts time.Time) *model.Event {
	return &model.Event{
		UUID:        uuid,
		Camera:      camera,
		TrackID:     7,
		Kind:        kind,
		Description: "Person moving at high speed",
		Confidence:  0.8,
		ClassLabel:  "person",
		PositionX:   320,
		PositionY:   240,
		Frame:       42,
		Timestamp:   ts,
	}
}

// ========================================
// Database
// ========================================

func TestNew_CreatesDirectoryAndFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "events.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestNew_MigrationIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(dbPath)
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

// ========================================
// Snapshots
// ========================================

func TestSnapshotRepository_InsertAndGet(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	id, err := repo.Insert(&model.Snapshot{
		Filename:  "loitering_20260301_123000_abcd1234.jpg",
		Camera:    "front",
		Timestamp: ts,
		FilePath:  "/snapshots/2026-03-01/loitering_20260301_123000_abcd1234.jpg",
		FileSize:  2048,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	snap, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "front", snap.Camera)
	assert.Equal(t, int64(2048), snap.FileSize)
	assert.True(t, ts.Equal(snap.Timestamp))

	byName, err := repo.GetByFilename("loitering_20260301_123000_abcd1234.jpg")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, id, byName.ID)

	size, err := repo.GetTotalSize()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), size)
}

func TestSnapshotRepository_MissingReturnsNil(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))

	snap, err := repo.GetByID(99)
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSnapshotRepository_DuplicateFilenameFails(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))
	snap := &model.Snapshot{Filename: "a.jpg", Camera: "front", Timestamp: time.Now().UTC(), FilePath: "/a.jpg"}

	_, err := repo.Insert(snap)
	require.NoError(t, err)
	_, err = repo.Insert(snap)
	assert.Error(t, err)
}

// ========================================
// Events
// ========================================

func TestEventRepository_InsertAndGetWithSnapshot(t *testing.T) {
	db := newTestDB(t)
	snapshots := NewSnapshotRepository(db)
	events := NewEventRepository(db)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snapID, err := snapshots.Insert(&model.Snapshot{Filename: "s.jpg", Camera: "front", Timestamp: ts, FilePath: "/snapshots/s.jpg"})
	require.NoError(t, err)

	ev := testEvent("alert-1", "front", model.FastMovement, ts)
	ev.SnapshotID = &snapID
	id, err := events.Insert(ev)
	require.NoError(t, err)

	got, err := events.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alert-1", got.UUID)
	assert.Equal(t, model.FastMovement, got.Kind)
	assert.Equal(t, 7, got.TrackID)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
	assert.Equal(t, "/snapshots/s.jpg", got.ImagePath)
	require.NotNil(t, got.SnapshotID)
	assert.Equal(t, snapID, *got.SnapshotID)
	assert.False(t, got.IsRead)

	byUUID, err := events.GetByUUID("alert-1")
	require.NoError(t, err)
	require.NotNil(t, byUUID)
	assert.Equal(t, id, byUUID.ID)
}

func TestEventRepository_SnapshotDeleteKeepsEvent(t *testing.T) {
	db := newTestDB(t)
	snapshots := NewSnapshotRepository(db)
	events := NewEventRepository(db)
	ts := time.Now().UTC()

	snapID, err := snapshots.Insert(&model.Snapshot{Filename: "s.jpg", Camera: "front", Timestamp: ts, FilePath: "/s.jpg"})
	require.NoError(t, err)
	ev := testEvent("alert-1", "front", model.Loitering, ts)
	ev.SnapshotID = &snapID
	id, err := events.Insert(ev)
	require.NoError(t, err)

	require.NoError(t, snapshots.Delete(snapID))

	got, err := events.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.SnapshotID)
	assert.Empty(t, got.ImagePath)
}

func TestEventRepository_GetAllFilters(t *testing.T) {
	events := NewEventRepository(newTestDB(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	fixtures := []*model.Event{
		testEvent("a", "front", model.FastMovement, base),
		testEvent("b", "front", model.Loitering, base.Add(time.Hour)),
		testEvent("c", "yard", model.ErraticMovement, base.Add(2*time.Hour)),
		testEvent("d", "yard", model.FastMovement, base.Add(3*time.Hour)),
	}
	for _, ev := range fixtures {
		_, err := events.Insert(ev)
		require.NoError(t, err)
	}

	all, err := events.GetAll(nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].UUID, "newest first")

	front, err := events.GetAll(&model.EventFilter{Camera: "front"})
	require.NoError(t, err)
	assert.Len(t, front, 2)

	fast, err := events.GetAll(&model.EventFilter{Kind: model.FastMovement})
	require.NoError(t, err)
	assert.Len(t, fast, 2)

	window, err := events.GetAll(&model.EventFilter{StartDate: base.Add(30 * time.Minute), EndDate: base.Add(150 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "c", window[0].UUID)
	assert.Equal(t, "b", window[1].UUID)

	page, err := events.GetAll(&model.EventFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].UUID)

	count, err := events.GetTotalCount(&model.EventFilter{Camera: "yard", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEventRepository_MarkReadAndStats(t *testing.T) {
	events := NewEventRepository(newTestDB(t))
	ts := time.Now().UTC()

	idA, err := events.Insert(testEvent("a", "front", model.FastMovement, ts))
	require.NoError(t, err)
	_, err = events.Insert(testEvent("b", "front", model.Loitering, ts))
	require.NoError(t, err)
	_, err = events.Insert(testEvent("c", "yard", model.Loitering, ts))
	require.NoError(t, err)

	require.NoError(t, events.MarkRead(idA))

	unread, err := events.GetAll(&model.EventFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	stats, err := events.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEvents)
	assert.Equal(t, 2, stats.Unread)
	assert.Equal(t, map[string]int{"front": 2, "yard": 1}, stats.PerCamera)
	assert.Equal(t, 2, stats.PerKind[model.Loitering])
	assert.Equal(t, 1, stats.PerKind[model.FastMovement])

	n, err := events.MarkAllRead("yard")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = events.MarkAllRead("")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestEventRepository_Delete(t *testing.T) {
	events := NewEventRepository(newTestDB(t))

	id, err := events.Insert(testEvent("a", "front", model.FastMovement, time.Now().UTC()))
	require.NoError(t, err)
	require.NoError(t, events.Delete(id))

	got, err := events.GetByID(id)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
