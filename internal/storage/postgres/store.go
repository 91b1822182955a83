// Package postgres stores support-log records in PostgreSQL through a pgx
// connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/JonMunkholm/supportlog/internal/config"
	"github.com/JonMunkholm/supportlog/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store implements core.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses the configured URL, applies the pool limits and verifies the
// connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool. The store takes ownership of the pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// DatabaseName returns the database named in a connection URL, for logging.
func DatabaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

var (
	selectColumns = core.ColumnList(append([]core.Column{core.ColID, core.ColCreatedAt}, core.AttributeColumns...))

	insertSQL = fmt.Sprintf("INSERT INTO support_logs (%s) VALUES (%s) RETURNING id",
		core.ColumnList(core.AttributeColumns),
		core.PostgresDialect.Placeholders(1, len(core.AttributeColumns)))
)

// Insert stores r and returns its new ID. A clash on the client reference
// index is reported as core.ErrDuplicate.
func (s *Store) Insert(ctx context.Context, r *core.Record) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, insertSQL, r.Values()...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert support log: %w", mapError(err))
	}
	return id, nil
}

// QueryAll returns every record, newest first.
func (s *Store) QueryAll(ctx context.Context) ([]core.Record, error) {
	return s.Query(ctx, core.Filter{})
}

// Query returns the records matching f, newest first.
func (s *Store) Query(ctx context.Context, f core.Filter) ([]core.Record, error) {
	w := core.NewWhereBuilder(core.PostgresDialect)
	w.AddAll(f.Predicates())
	where, args := w.Build()

	sql := fmt.Sprintf("SELECT %s FROM support_logs %s ORDER BY created_at DESC, id DESC", selectColumns, where)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query support logs: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		var r core.Record
		dest := append([]any{&r.ID, &r.CreatedAt}, r.ScanTargets()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan support log: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
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
		sets[i] = fmt.Sprintf("%s = $%d", core.ColumnList([]core.Column{col}), i+1)
	}
	args := append(r.Values(), id)
	sql := fmt.Sprintf("UPDATE support_logs SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("update support log: %w", mapError(err))
	}
	return tag.RowsAffected(), nil
}

// Delete removes the record with the given ID.
func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM support_logs WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("delete support log: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// mapError translates a unique violation into core.ErrDuplicate and keeps
// every other error as is.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w (%s)", core.ErrDuplicate, pgErr.ConstraintName)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}
