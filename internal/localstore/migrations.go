package localstore

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are additive only: new tables, new nullable or defaulted columns
// and new indexes. Existing rows are never rewritten.
//
// AUTOINCREMENT keeps local ids from being reused after ClearAll, which keeps
// derived client event ids unique for the life of the device.
var migrations = []string{
	// v1
	`CREATE TABLE IF NOT EXISTS events (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT    NOT NULL,
		ts   INTEGER NOT NULL
	)`,
	// v2
	`ALTER TABLE events ADD COLUMN synced INTEGER NOT NULL DEFAULT 0`,
	// v3
	`ALTER TABLE events ADD COLUMN client_event_id TEXT;
	 CREATE UNIQUE INDEX IF NOT EXISTS events_client_event_id
		ON events (client_event_id) WHERE client_event_id IS NOT NULL;
	 CREATE INDEX IF NOT EXISTS events_ts ON events (ts)`,
	// v4
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = len(migrations)

func runMigrations(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for v := version; v < len(migrations); v++ {
		if err := migrate(ctx, db, v+1, migrations[v]); err != nil {
			return err
		}
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB, version int, stmt string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate to v%d: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("migrate to v%d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("set user_version %d: %w", version, err)
	}
	return tx.Commit()
}
