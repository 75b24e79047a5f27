package history

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements create the schema. All use IF NOT EXISTS so they can be
// applied again safely.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS removals (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		at_ms     INTEGER NOT NULL,
		task_id   INTEGER NOT NULL DEFAULT 0,
		job_hash  TEXT    NOT NULL DEFAULT '',
		path      TEXT    NOT NULL,
		mask      TEXT    NOT NULL DEFAULT '',
		source    TEXT    NOT NULL DEFAULT '',
		event     TEXT    NOT NULL,
		result    TEXT    NOT NULL,
		removed   INTEGER NOT NULL DEFAULT 0,
		error     TEXT    NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_removals_at ON removals(at_ms)`,

	`CREATE INDEX IF NOT EXISTS idx_removals_job ON removals(job_hash, id)`,
}

// migrate brings the schema to schemaVersion.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("history: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("history: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("history: record schema version: %w", err)
	}
	return nil
}
