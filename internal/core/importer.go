package core

// importer.go drives the per-record pipeline for a whole file:
//
//	decode -> map -> coerce/validate -> insert -> accumulate
//
// The input is decoded in full before the first insert, so a structural
// problem (unparsable JSON, non-array top level, missing CSV header) aborts
// the import with nothing stored. After that, every record is attempted
// exactly once and its failure is recorded in the report without stopping
// the batch.

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// ImportReport is the aggregate outcome of one import.
type ImportReport struct {
	ID         string   `json:"id"`
	Format     Format   `json:"format"`
	Variant    string   `json:"variant"`
	Processed  int      `json:"processed"`
	Imported   int      `json:"imported"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors"`
	Incomplete bool     `json:"incomplete"`
	DurationMS int64    `json:"duration_ms"`
}

// rawRow is one decoded input unit with its 1-based sequence number.
type rawRow struct {
	seq int
	raw RawRecord
	err error // record-level decode problem, e.g. a non-object array element
}

// Importer imports CSV and JSON payloads into a RecordInserter.
type Importer struct {
	store     RecordInserter
	mapper    *Mapper
	validator *Validator
}

// NewImporter creates an importer for the variant.
func NewImporter(store RecordInserter, s *Schema, escapeHTML bool) *Importer {
	return &Importer{
		store:     store,
		mapper:    NewMapper(s),
		validator: NewValidator(s, escapeHTML),
	}
}

// Import decodes data and stores every valid record.
//
// A non-nil error with a nil report is a batch-level failure. When ctx ends
// between records, the partial report is returned marked Incomplete together
// with an error wrapping ErrImportCancelled.
func (im *Importer) Import(ctx context.Context, data []byte, format Format) (*ImportReport, error) {
	start := time.Now()
	schema := im.mapper.Schema()

	rows, err := im.decode(data, format)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{
		ID:      uuid.NewString(),
		Format:  format,
		Variant: schema.Key,
		Errors:  []string{},
	}
	prefix := "Line"
	if format == FormatJSON {
		prefix = "Entry"
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			report.Incomplete = true
			report.DurationMS = time.Since(start).Milliseconds()
			return report, fmt.Errorf("%w after %d of %d records: %v",
				ErrImportCancelled, report.Processed, len(rows), context.Cause(ctx))
		}
		report.Processed++

		if msg := im.importOne(ctx, row); msg != "" {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("%s %d: %s", prefix, row.seq, msg))
			continue
		}
		report.Imported++
	}

	report.DurationMS = time.Since(start).Milliseconds()
	return report, nil
}

// importOne validates and stores a single row. It returns the reason the row
// was skipped, or "" when it was stored.
func (im *Importer) importOne(ctx context.Context, row rawRow) string {
	if row.err != nil {
		return row.err.Error()
	}

	rec, verrs := im.validator.Validate(row.raw)
	if len(verrs) > 0 {
		return verrs.Error()
	}

	// A started insert runs to completion so a record is never half-attempted.
	if _, err := im.store.Insert(context.WithoutCancel(ctx), rec); err != nil {
		schema := im.mapper.Schema()
		if errors.Is(err, ErrDuplicate) {
			if schema.UniqueKey != "" {
				spec, _ := schema.Spec(schema.UniqueKey)
				return fmt.Sprintf("duplicate %s %q", spec.Name, UnescapeHTML(rec.KeyValue(schema)))
			}
			return "duplicate record"
		}
		return err.Error()
	}
	return ""
}

func (im *Importer) decode(data []byte, format Format) ([]rawRow, error) {
	data = sanitizeUTF8(stripBOM(data))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	switch format {
	case FormatCSV:
		return im.decodeCSV(data)
	case FormatJSON:
		return im.decodeJSON(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// decodeCSV reads a header row followed by data rows. Blank rows are skipped
// but still consume a sequence number so messages match the file's data rows.
func (im *Importer) decodeCSV(data []byte) ([]rawRow, error) {
	records, err := parseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid csv: %v", ErrMalformedInput, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	idx := MakeHeaderIndex(records[0])
	if im.mapper.Recognized(idx) == 0 {
		return nil, fmt.Errorf("%w: header row has no recognized columns", ErrMissingHeader)
	}

	rows := make([]rawRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if isEmptyRow(rec) {
			continue
		}
		rows = append(rows, rawRow{seq: i + 1, raw: im.mapper.FromCSVRow(idx, rec)})
	}
	return rows, nil
}

// decodeJSON requires a top-level array. Elements that are not objects become
// record-level errors.
func (im *Importer) decodeJSON(data []byte) ([]rawRow, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrMalformedInput, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, ErrNotArray
	}

	var rows []rawRow
	for seq := 1; dec.More(); seq++ {
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: invalid json at entry %d: %v", ErrMalformedInput, seq, err)
		}
		obj, ok := v.(map[string]any)
		if !ok {
			rows = append(rows, rawRow{seq: seq, err: errors.New("entry must be a JSON object")})
			continue
		}
		rows = append(rows, rawRow{seq: seq, raw: im.mapper.FromJSONObject(obj)})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrMalformedInput, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after the top-level array", ErrMalformedInput)
	}
	return rows, nil
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}
