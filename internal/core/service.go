package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/supportlog/internal/logging"
)

// Observer receives pipeline outcomes, typically to update metrics.
type Observer interface {
	ImportFinished(report *ImportReport, err error, elapsed time.Duration)
	ExportFinished(format Format, size int, err error)
}

// Options configures a Service.
type Options struct {
	Schema           *Schema
	EscapeHTML       bool          // escape text at ingestion
	UnescapeOnExport bool          // reverse ingestion escaping in exports
	MaxFileSize      int64         // 0 means unlimited
	ImportTimeout    time.Duration // 0 means no extra deadline
	Limiter          *ImportLimiter
	Observer         Observer
}

// Service is the entry point shared by the HTTP server and the CLI. It owns
// the explicitly injected Store; there is no package-level connection.
type Service struct {
	store     Store
	opts      Options
	importer  *Importer
	exporter  *Exporter
	mapper    *Mapper
	validator *Validator
}

// NewService wires the pipeline for the configured schema variant.
func NewService(store Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("service: store is required")
	}
	if opts.Schema == nil {
		return nil, errors.New("service: schema variant is required")
	}
	if opts.Limiter == nil {
		opts.Limiter = NewImportLimiter(DefaultMaxConcurrentImports, DefaultImportWait)
	}

	return &Service{
		store:     store,
		opts:      opts,
		importer:  NewImporter(store, opts.Schema, opts.EscapeHTML),
		exporter:  NewExporter(store, opts.Schema, opts.UnescapeOnExport),
		mapper:    NewMapper(opts.Schema),
		validator: NewValidator(opts.Schema, opts.EscapeHTML),
	}, nil
}

// Schema returns the active variant.
func (s *Service) Schema() *Schema {
	return s.opts.Schema
}

// Mapper returns the mapper for the active variant.
func (s *Service) Mapper() *Mapper {
	return s.mapper
}

// Import runs a batch import while holding an import slot.
func (s *Service) Import(ctx context.Context, data []byte, format Format) (*ImportReport, error) {
	start := time.Now()
	log := logging.WithFields(ctx, "format", format, "variant", s.opts.Schema.Key, "bytes", len(data))

	report, err := s.runImport(ctx, data, format)
	if s.opts.Observer != nil {
		s.opts.Observer.ImportFinished(report, err, time.Since(start))
	}

	switch {
	case report == nil:
		log.Warn("import rejected", "error", err)
	case err != nil:
		log.Warn("import interrupted",
			"import_id", report.ID,
			"processed", report.Processed,
			"imported", report.Imported,
			"skipped", report.Skipped,
			"error", err,
		)
	default:
		log.Info("import completed",
			"import_id", report.ID,
			"imported", report.Imported,
			"skipped", report.Skipped,
			"duration_ms", report.DurationMS,
		)
		for _, line := range report.Errors {
			log.Debug("record skipped", "import_id", report.ID, "reason", line)
		}
	}
	return report, err
}

func (s *Service) runImport(ctx context.Context, data []byte, format Format) (*ImportReport, error) {
	if s.opts.MaxFileSize > 0 && int64(len(data)) > s.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, len(data), s.opts.MaxFileSize)
	}

	if err := s.opts.Limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.opts.Limiter.Release()

	if s.opts.ImportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ImportTimeout)
		defer cancel()
	}
	return s.importer.Import(ctx, data, format)
}

// Export serializes every stored record. No bytes are returned on failure.
func (s *Service) Export(ctx context.Context, format Format) ([]byte, error) {
	data, err := s.exporter.ExportBytes(ctx, format)
	if s.opts.Observer != nil {
		s.opts.Observer.ExportFinished(format, len(data), err)
	}
	if err != nil {
		logging.FromContext(ctx).Error("export failed", "format", format, "error", err)
		return nil, err
	}
	logging.FromContext(ctx).Info("export completed", "format", format, "bytes", len(data))
	return data, nil
}

// ListRecords returns records matching f, newest first.
func (s *Service) ListRecords(ctx context.Context, f Filter) ([]Record, error) {
	if f.IsZero() {
		return s.store.QueryAll(ctx)
	}
	return s.store.Query(ctx, f.normalize(s.opts.Schema, s.opts.EscapeHTML))
}

// CreateRecord validates and stores a single record.
func (s *Service) CreateRecord(ctx context.Context, raw RawRecord) (*Record, error) {
	rec, verrs := s.validator.Validate(raw)
	if len(verrs) > 0 {
		return nil, verrs
	}

	id, err := s.store.Insert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	rec.ID = id

	logging.FromContext(ctx).Info("record created", "id", id)
	return rec, nil
}

// UpdateRecord replaces every attribute of an existing record.
func (s *Service) UpdateRecord(ctx context.Context, id int64, raw RawRecord) (*Record, error) {
	rec, verrs := s.validator.Validate(raw)
	if len(verrs) > 0 {
		return nil, verrs
	}

	n, err := s.store.Update(ctx, id, rec)
	if err != nil {
		return nil, fmt.Errorf("update record %d: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update record %d: %w", id, ErrNotFound)
	}
	rec.ID = id

	logging.FromContext(ctx).Info("record updated", "id", id)
	return rec, nil
}

// DeleteRecord removes a record.
func (s *Service) DeleteRecord(ctx context.Context, id int64) error {
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete record %d: %w", id, ErrNotFound)
	}

	logging.FromContext(ctx).Info("record deleted", "id", id)
	return nil
}

// RecordObject renders a record for API responses in the variant's field
// order, reversing ingestion escaping when exports do.
func (s *Service) RecordObject(r *Record) OrderedObject {
	if s.opts.UnescapeOnExport {
		cp := *r
		unescapeRecord(&cp)
		r = &cp
	}
	return s.mapper.ToJSONObject(r)
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.opts.Limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.opts.Limiter.WaitForDrain(ctx)
}

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}
