// Package application wires configuration, storage, metrics and the record
// service together for the server and the CLI.
package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/supportlog/internal/config"
	"github.com/JonMunkholm/supportlog/internal/core"
	"github.com/JonMunkholm/supportlog/internal/metrics"
	"github.com/JonMunkholm/supportlog/internal/storage"
)

// App holds the long-lived components built from a Config.
type App struct {
	Store   storage.Store
	Service *core.Service
	Metrics *metrics.Recorder
}

// New opens the configured store and builds the service for the configured
// schema variant.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	schema, ok := core.Lookup(strings.ToLower(cfg.Schema.Variant))
	if !ok {
		return nil, fmt.Errorf("unknown schema variant %q (have %s)",
			cfg.Schema.Variant, strings.Join(core.Variants(), ", "))
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rec := metrics.New()
	svc, err := core.NewService(store, core.Options{
		Schema:           schema,
		EscapeHTML:       cfg.Import.EscapeHTML,
		UnescapeOnExport: cfg.Export.UnescapeHTML,
		MaxFileSize:      cfg.Import.MaxFileSize,
		ImportTimeout:    cfg.Import.Timeout,
		Limiter:          core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		Observer:         rec,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{Store: store, Service: svc, Metrics: rec}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Service.Close()
}
