package localstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

// insertLegacyRow writes a row the way schema v2 did, without a client event id.
func insertLegacyRow(t *testing.T, s *Store, typ models.EventType, synced bool) int64 {
	t.Helper()
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO events (type, ts, synced) VALUES (?, ?, ?)`, typ, time.Now().UnixMilli(), synced)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestStore_UpsertFromServer_LegacyRowIsKnown(t *testing.T) {
	// ARRANGE
	s := createTestStore(t, t.TempDir(), "S1")
	ctx := context.Background()
	id := insertLegacyRow(t, s, models.EventPlastic, false)
	key := legacyClientEventID(id)

	// ACT
	res, err := s.UpsertFromServer(ctx, []models.WireEvent{
		{ClientEventID: key, Type: models.EventPlastic, Timestamp: time.Now().UnixMilli()},
	})

	// ASSERT
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted, "the legacy row already owns the derived id")
	counts, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 1, Unsynced: 1}, counts)

	require.NoError(t, s.MarkSynced(ctx, []int64{id}))
	stored, ok, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.Synced)
	assert.Equal(t, key, stored.ClientEventID)
	unsynced, err := s.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestStore_MarkSynced_LegacyKeyHeldByAnotherRow(t *testing.T) {
	// ARRANGE
	s := createTestStore(t, t.TempDir(), "S1")
	ctx := context.Background()
	id := insertLegacyRow(t, s, models.EventGlass, false)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (type, ts, synced, client_event_id) VALUES ('glass', ?, 1, ?)`,
		time.Now().UnixMilli(), legacyClientEventID(id))
	require.NoError(t, err)

	// ACT
	err = s.MarkSynced(ctx, []int64{id})

	// ASSERT
	require.NoError(t, err, "a taken derived id must not fail the batch")
	stored, ok, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.Synced)
	assert.Equal(t, legacyClientEventID(id), stored.ClientEventID)
}

func TestStore_Open_UpgradesV2Database(t *testing.T) {
	// ARRANGE
	dir := t.TempDir()
	ctx := context.Background()
	db, err := sql.Open("sqlite3", filepath.Join(dir, FileName("S1")))
	require.NoError(t, err)
	for _, stmt := range migrations[:2] {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	_, err = db.ExecContext(ctx, `PRAGMA user_version = 2`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO events (type, ts, synced) VALUES ('plastic', 1000, 1), ('aluminum', 2000, 0)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// ACT
	s := createTestStore(t, dir, "S1", WithDeviceID("dev"))

	// ASSERT
	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)

	first, ok, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.Event{LocalID: 1, Type: models.EventPlastic, Timestamp: 1000, Synced: true, ClientEventID: "1"}, first)

	unsynced, err := s.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Event{
		{LocalID: 2, Type: models.EventAluminum, Timestamp: 2000, ClientEventID: "2"},
	}, unsynced)

	var stored sql.NullString
	require.NoError(t, s.db.QueryRow(`SELECT client_event_id FROM events WHERE id = 1`).Scan(&stored))
	assert.False(t, stored.Valid, "migrations must not rewrite existing rows")

	next, err := s.Append(ctx, models.EventGlass)
	require.NoError(t, err)
	assert.Equal(t, int64(3), next.LocalID)
	assert.Equal(t, "dev-3", next.ClientEventID)
	assert.Equal(t, "dev", s.DeviceID())
}
