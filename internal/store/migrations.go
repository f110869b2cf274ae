package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the journal tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id         TEXT PRIMARY KEY,
		pid        INTEGER NOT NULL,
		kind       TEXT NOT NULL,
		detail     TEXT NOT NULL DEFAULT '',
		tick       INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS rounds (
		id         TEXT PRIMARY KEY,
		cpu        INTEGER NOT NULL,
		tick       INTEGER NOT NULL,
		tier0      INTEGER NOT NULL DEFAULT 0,
		tier1      INTEGER NOT NULL DEFAULT 0,
		tier2      INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_pid ON events(pid)`,
	`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind)`,
	`CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick)`,
	`CREATE INDEX IF NOT EXISTS idx_rounds_cpu ON rounds(cpu)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
