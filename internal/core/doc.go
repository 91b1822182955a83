// Package core implements the support-log record pipeline: schema variants,
// field mapping, coercion and validation, batch import and export.
//
// This package has no transport dependencies. The HTTP server and the CLI
// both drive it through [Service], and storage backends plug in through
// [Store].
//
// # Schema Variants
//
// A [Schema] describes one record layout: its CSV labels, JSON keys,
// enumerations, flag style and uniqueness key. Two variants are registered
// at init time and looked up by key:
//
//	schema, ok := core.Lookup("legacy")
//	svc, err := core.NewService(store, core.Options{Schema: schema, EscapeHTML: true})
//
// The [Mapper] translates between external names and internal [Column]
// attributes, and the [Validator] turns a [RawRecord] into a typed [Record],
// collecting every defect of the record into [ValidationErrors].
//
// # Import
//
// [Importer.Import] decodes the whole payload first. Structural failures
// (empty input, unrecognized header, malformed JSON, a top-level value that is
// not an array) abort the run before anything is stored. After that, records
// are validated and inserted one at a time; a record that fails is skipped and
// reported as "Line N: ..." for CSV or "Entry N: ..." for JSON, and the rest
// continue. Cancellation between records returns the partial [ImportReport]
// together with [ErrImportCancelled].
//
// # Export
//
// [Exporter] renders every stored record, newest first, as CSV or as a
// 4-space indented JSON array whose keys follow the variant's declared order.
// Nothing is written when the store query fails.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - IMP001-IMP004: Import lifecycle (cancelled, busy, timeouts)
//   - DB001-DB008: Database errors (duplicates, missing records, connections)
//   - VAL003-VAL011: Validation errors (required, enumerations, lengths)
//   - FILE001-FILE008: File errors (size, format, structure)
package core
