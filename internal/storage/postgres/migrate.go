package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// migrations are applied in order; the index plus one is the schema version.
// Append new steps, never edit applied ones.
var migrations = []string{
	// 1: support log table holding the attributes of every variant.
	`CREATE TABLE IF NOT EXISTS support_logs (
		id                    BIGSERIAL PRIMARY KEY,
		created_at            TIMESTAMPTZ  NOT NULL DEFAULT now(),
		client_ref            VARCHAR(255) NOT NULL DEFAULT '',
		plugin_name           VARCHAR(255) NOT NULL DEFAULT '',
		plugin_version        VARCHAR(100) NOT NULL DEFAULT '',
		wp_version            VARCHAR(100) NOT NULL DEFAULT '',
		wc_version            VARCHAR(100) NOT NULL DEFAULT '',
		issue_type            VARCHAR(50)  NOT NULL DEFAULT '',
		issue_category        VARCHAR(255) NOT NULL DEFAULT '',
		issue_summary         VARCHAR(500) NOT NULL DEFAULT '',
		detailed_description  TEXT         NOT NULL DEFAULT '',
		steps_reproduce       TEXT         NOT NULL DEFAULT '',
		errors_logs           TEXT         NOT NULL DEFAULT '',
		troubleshooting_steps TEXT         NOT NULL DEFAULT '',
		resolution            TEXT         NOT NULL DEFAULT '',
		assigned_agent        VARCHAR(255) NOT NULL DEFAULT '',
		time_spent            INTEGER      NOT NULL DEFAULT 0,
		escalated             BOOLEAN      NOT NULL DEFAULT FALSE,
		recurring             BOOLEAN      NOT NULL DEFAULT FALSE,
		status                VARCHAR(20)  NOT NULL DEFAULT 'Open'
	)`,

	// 2: client reference is unique when present; the revised layout leaves it empty.
	`CREATE UNIQUE INDEX IF NOT EXISTS support_logs_client_ref_key
		ON support_logs (client_ref) WHERE client_ref <> ''`,

	// 3: listing order.
	`CREATE INDEX IF NOT EXISTS support_logs_created_idx
		ON support_logs (created_at DESC, id DESC)`,
}

// Migrate brings the schema up to date and returns the resulting version.
// Each step runs in its own transaction together with its version bump.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS support_logs_schema_version (
		version INTEGER NOT NULL
	)`)
	if err != nil {
		return 0, fmt.Errorf("create version table: %w", err)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return 0, err
	}

	for i := version; i < len(migrations); i++ {
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, migrations[i]); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, "DELETE FROM support_logs_schema_version"); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO support_logs_schema_version (version) VALUES ($1)", i+1)
			return err
		})
		if err != nil {
			return version, fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		version = i + 1
	}
	return version, nil
}

// SchemaVersion returns the applied schema version, 0 for a fresh database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM support_logs_schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return version, nil
}

// LatestVersion is the schema version Migrate converges to.
func LatestVersion() int {
	return len(migrations)
}
