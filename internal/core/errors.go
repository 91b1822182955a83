package core

import "errors"

// Batch-level failures. Any of these aborts an import before a record is stored.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyInput        = errors.New("empty file")
	ErrMissingHeader     = errors.New("missing csv header")
	ErrMalformedInput    = errors.New("malformed input")
	ErrNotArray          = errors.New("json must contain an array of log entries")
	ErrFileTooLarge      = errors.New("file too large")
)

// ErrImportCancelled accompanies a partial ImportReport when the caller's
// context ended between records.
var ErrImportCancelled = errors.New("import cancelled")

// Storage outcomes shared by every Store implementation.
var (
	ErrDuplicate = errors.New("duplicate key")
	ErrNotFound  = errors.New("record not found")
)
