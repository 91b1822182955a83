// Package sqlite stores support-log records in an embedded SQLite database.
// It backs the CLI and single-node deployments without a PostgreSQL server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/supportlog/internal/core"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Store implements core.Store on database/sql with the modernc driver.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Open opens (creating if needed) the database file at path and applies
// migrations. MemoryPath gives a database that lives as long as the Store.
func Open(path string) (*Store, error) {
	memory := path == MemoryPath
	if dir := filepath.Dir(path); dir != "." && !memory {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas in the connection string apply to every pooled connection.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if memory {
		// Every connection to :memory: is a separate database, and WAL
		// does not apply to it.
		db.SetMaxOpenConns(1)
	} else if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

var (
	selectColumns = core.ColumnList(append([]core.Column{core.ColID, core.ColCreatedAt}, core.AttributeColumns...))

	insertSQL = fmt.Sprintf("INSERT INTO support_logs (%s, %s) VALUES (?, %s)",
		core.ColumnList([]core.Column{core.ColCreatedAt}),
		core.ColumnList(core.AttributeColumns),
		core.SQLiteDialect.Placeholders(1, len(core.AttributeColumns)))
)

// Insert stores r and returns its new ID. The unique index makes the
// duplicate check and the insert a single atomic statement.
func (s *Store) Insert(ctx context.Context, r *core.Record) (int64, error) {
	args := append([]any{s.now().UTC().UnixMicro()}, r.Values()...)

	res, err := s.db.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		return 0, fmt.Errorf("insert support log: %w", mapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert support log: %w", err)
	}
	return id, nil
}

// QueryAll returns every record, newest first.
func (s *Store) QueryAll(ctx context.Context) ([]core.Record, error) {
	return s.Query(ctx, core.Filter{})
}

// Query returns the records matching f, newest first.
func (s *Store) Query(ctx context.Context, f core.Filter) ([]core.Record, error) {
	w := core.NewWhereBuilder(core.SQLiteDialect)
	w.AddAll(f.Predicates())
	where, args := w.Build()

	query := fmt.Sprintf("SELECT %s FROM support_logs %s ORDER BY created_at DESC, id DESC", selectColumns, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query support logs: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		var (
			r       core.Record
			created int64
		)
		dest := append([]any{&r.ID, &created}, r.ScanTargets()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan support log: %w", err)
		}
		r.CreatedAt = time.UnixMicro(created).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read support logs: %w", err)
	}
	return records, nil
}

// Update replaces every attribute of the record with the given ID.
func (s *Store) Update(ctx context.Context, id int64, r *core.Record) (int64, error) {
	sets := make([]string, len(core.AttributeColumns))
	for i, col := range core.AttributeColumns {
		sets[i] = core.ColumnList([]core.Column{col}) + " = ?"
	}
	query := fmt.Sprintf("UPDATE support_logs SET %s WHERE id = ?", strings.Join(sets, ", "))

	res, err := s.db.ExecContext(ctx, query, append(r.Values(), id)...)
	if err != nil {
		return 0, fmt.Errorf("update support log: %w", mapError(err))
	}
	return res.RowsAffected()
}

// Delete removes the record with the given ID.
func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM support_logs WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("delete support log: %w", err)
	}
	return res.RowsAffected()
}

// Ping checks that the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// mapError reports SQLite unique violations as core.ErrDuplicate.
func mapError(err error) error {
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w (%s)", core.ErrDuplicate, err.Error())
	}
	return err
}
