package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

// UpsertResult reports how many server events were new to the local log.
type UpsertResult struct {
	Inserted int `json:"inserted"`
}

// Counts backs the pending indicator.
type Counts struct {
	Total    int `json:"total"`
	Unsynced int `json:"unsynced"`
}

const eventColumns = `id, type, ts, synced, client_event_id`

// ClientEventID derives the idempotency key for a locally assigned id.
func (s *Store) ClientEventID(localID int64) string {
	return s.deviceID + "-" + strconv.FormatInt(localID, 10)
}

// legacyClientEventID is the key older clients pushed for rows that were
// recorded before client_event_id existed.
func legacyClientEventID(localID int64) string {
	return strconv.FormatInt(localID, 10)
}

// Append records a new unsynced event stamped with the store clock.
func (s *Store) Append(ctx context.Context, t models.EventType) (models.Event, error) {
	if !t.Valid() {
		return models.Event{}, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback()

	ev := models.Event{Type: t, Timestamp: s.now().UnixMilli()}
	res, err := tx.ExecContext(ctx, `INSERT INTO events (type, ts, synced) VALUES (?, ?, 0)`, ev.Type, ev.Timestamp)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to append event: %w", err)
	}
	if ev.LocalID, err = res.LastInsertId(); err != nil {
		return models.Event{}, fmt.Errorf("failed to read local id: %w", err)
	}

	ev.ClientEventID = s.ClientEventID(ev.LocalID)
	if _, err := tx.ExecContext(ctx, `UPDATE events SET client_event_id = ? WHERE id = ?`, ev.ClientEventID, ev.LocalID); err != nil {
		return models.Event{}, fmt.Errorf("failed to assign client event id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Event{}, fmt.Errorf("failed to commit append: %w", err)
	}
	return ev, nil
}

// Get returns one event by local id.
func (s *Store) Get(ctx context.Context, localID int64) (models.Event, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, localID)
	if err != nil {
		return models.Event{}, false, fmt.Errorf("failed to get event: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil || len(events) == 0 {
		return models.Event{}, false, err
	}
	return events[0], true, nil
}

// ListToday returns the events recorded during the current local calendar day.
func (s *Store) ListToday(ctx context.Context) ([]models.Event, error) {
	return s.ListDay(ctx, models.DayWindowFor(s.now()))
}

// ListDay returns the events whose timestamp falls inside w.
func (s *Store) ListDay(ctx context.Context, w models.DayWindow) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE ts >= ? AND ts < ? ORDER BY id`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return scanEvents(rows)
}

// ListUnsynced returns every event not yet acknowledged by the server,
// regardless of the day it was recorded.
func (s *Store) ListUnsynced(ctx context.Context) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE synced = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced events: %w", err)
	}
	return scanEvents(rows)
}

// MarkSynced flags the given events as persisted server side. Rows that have
// no client event id yet get the one they were pushed with. Unknown ids are
// ignored and repeating the call changes nothing.
func (s *Store) MarkSynced(ctx context.Context, localIDs []int64) error {
	if len(localIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin mark synced: %w", err)
	}
	defer tx.Rollback()

	// A legacy row keeps a NULL client_event_id when another row already
	// stores its derived key; the derived key stays its identity either way.
	stmt, err := tx.PrepareContext(ctx, `
		UPDATE events
		SET synced = 1,
			client_event_id = COALESCE(client_event_id,
				CASE WHEN EXISTS (SELECT 1 FROM events WHERE client_event_id = ?1) THEN NULL ELSE ?1 END)
		WHERE id = ?2
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare mark synced: %w", err)
	}
	defer stmt.Close()

	for _, id := range localIDs {
		if _, err := stmt.ExecContext(ctx, legacyClientEventID(id), id); err != nil {
			return fmt.Errorf("failed to mark event %d synced: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mark synced: %w", err)
	}
	return nil
}

// ClearAll empties the shop's log. It cannot be undone.
func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}
	return nil
}

// UpsertFromServer adds the server events whose client event id is not known
// locally. A legacy row without a stored id is known under its derived id.
// Existing rows, synced or not, are left untouched. Inserted rows are already
// persisted remotely and are stored as synced.
func (s *Store) UpsertFromServer(ctx context.Context, serverEvents []models.WireEvent) (UpsertResult, error) {
	var result UpsertResult
	if len(serverEvents) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO events (type, ts, synced, client_event_id)
		SELECT ?1, ?2, 1, ?3
		WHERE NOT EXISTS (
			SELECT 1 FROM events
			WHERE COALESCE(client_event_id, CAST(id AS TEXT)) = ?3
		)
	`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, se := range serverEvents {
		if se.ClientEventID == "" || !se.Type.Valid() {
			continue
		}
		res, err := stmt.ExecContext(ctx, se.Type, se.Timestamp, se.ClientEventID)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to insert server event %s: %w", se.ClientEventID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to read rows affected: %w", err)
		}
		result.Inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return result, nil
}

func (s *Store) Count(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN synced = 0 THEN 1 ELSE 0 END), 0)
		FROM events
	`).Scan(&c.Total, &c.Unsynced)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count events: %w", err)
	}
	return c, nil
}

func scanEvents(rows *sql.Rows) ([]models.Event, error) {
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var (
			ev       models.Event
			clientID sql.NullString
		)
		if err := rows.Scan(&ev.LocalID, &ev.Type, &ev.Timestamp, &ev.Synced, &clientID); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.ClientEventID = clientID.String
		if !clientID.Valid {
			ev.ClientEventID = legacyClientEventID(ev.LocalID)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}
