package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: support log table, partial unique index, listing index
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS support_logs (
		  id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		  created_at            INTEGER NOT NULL,
		  client_ref            TEXT    NOT NULL DEFAULT '',
		  plugin_name           TEXT    NOT NULL DEFAULT '',
		  plugin_version        TEXT    NOT NULL DEFAULT '',
		  wp_version            TEXT    NOT NULL DEFAULT '',
		  wc_version            TEXT    NOT NULL DEFAULT '',
		  issue_type            TEXT    NOT NULL DEFAULT '',
		  issue_category        TEXT    NOT NULL DEFAULT '',
		  issue_summary         TEXT    NOT NULL DEFAULT '',
		  detailed_description  TEXT    NOT NULL DEFAULT '',
		  steps_reproduce       TEXT    NOT NULL DEFAULT '',
		  errors_logs           TEXT    NOT NULL DEFAULT '',
		  troubleshooting_steps TEXT    NOT NULL DEFAULT '',
		  resolution            TEXT    NOT NULL DEFAULT '',
		  assigned_agent        TEXT    NOT NULL DEFAULT '',
		  time_spent            INTEGER NOT NULL DEFAULT 0,
		  escalated             INTEGER NOT NULL DEFAULT 0,
		  recurring             INTEGER NOT NULL DEFAULT 0,
		  status                TEXT    NOT NULL DEFAULT 'Open'
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_support_logs_client_ref
		ON support_logs(client_ref)
		WHERE client_ref <> '';

		CREATE INDEX IF NOT EXISTS idx_support_logs_created
		ON support_logs(created_at DESC, id DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied schema version of the open store.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}
