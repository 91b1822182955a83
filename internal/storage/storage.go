// Package storage opens the configured record store.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/supportlog/internal/config"
	"github.com/JonMunkholm/supportlog/internal/core"
	"github.com/JonMunkholm/supportlog/internal/storage/postgres"
	"github.com/JonMunkholm/supportlog/internal/storage/sqlite"
)

// Store is a core.Store that can also report reachability and its applied
// schema version.
type Store interface {
	core.Store
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
}

// Open connects to the configured backend and brings its schema up to date.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		version, err := s.Migrate(ctx)
		if err != nil {
			s.Close()
			return nil, err
		}
		slog.Info("connected to database",
			"driver", cfg.Driver,
			"name", postgres.DatabaseName(cfg.URL),
			"schema_version", version,
		)
		return s, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened database", "driver", cfg.Driver, "path", cfg.SQLitePath)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
