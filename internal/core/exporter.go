package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Exporter serializes every stored record in the variant's fixed field order.
type Exporter struct {
	store        RecordLister
	mapper       *Mapper
	unescapeHTML bool
}

// NewExporter creates an exporter. With unescapeHTML set, entity-escaped text
// is decoded on the way out so the file reads back through an escaping import
// without double escaping.
func NewExporter(store RecordLister, s *Schema, unescapeHTML bool) *Exporter {
	return &Exporter{store: store, mapper: NewMapper(s), unescapeHTML: unescapeHTML}
}

// ExportBytes returns the complete export. A storage failure returns no data.
func (ex *Exporter) ExportBytes(ctx context.Context, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := ex.Export(ctx, format, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export writes every record to w. Records are fetched before anything is
// written, so a storage failure leaves w untouched.
func (ex *Exporter) Export(ctx context.Context, format Format, w io.Writer) error {
	if format != FormatCSV && format != FormatJSON {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	records, err := ex.store.QueryAll(ctx)
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	if ex.unescapeHTML {
		for i := range records {
			unescapeRecord(&records[i])
		}
	}

	if format == FormatJSON {
		return ex.writeJSON(w, records)
	}
	return ex.writeCSV(w, records)
}

func (ex *Exporter) writeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ex.mapper.CSVHeader()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range records {
		if err := cw.Write(ex.mapper.ToCSVRow(&records[i])); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSON emits a pretty-printed array with HTML and non-ASCII characters
// left unescaped.
func (ex *Exporter) writeJSON(w io.Writer, records []Record) error {
	objects := make([]OrderedObject, len(records))
	for i := range records {
		objects[i] = ex.mapper.ToJSONObject(&records[i])
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(objects); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ExportFilename returns the attachment name for an export taken at t,
// e.g. support_logs_export_2024-03-01_14-05-09.csv.
func ExportFilename(format Format, t time.Time) string {
	return fmt.Sprintf("support_logs_export_%s.%s", t.Format("2006-01-02_15-04-05"), format.Extension())
}

func unescapeRecord(r *Record) {
	for _, col := range textColumns {
		if p := r.textField(col); p != nil {
			*p = UnescapeHTML(*p)
		}
	}
}

var textColumns = []Column{
	ColClientRef, ColPluginName, ColPluginVersion, ColWPVersion, ColWCVersion,
	ColIssueType, ColIssueCategory, ColIssueSummary, ColDescription,
	ColStepsReproduce, ColErrorLogs, ColTroubleshooting, ColResolution,
	ColAssignedAgent, ColStatus,
}
