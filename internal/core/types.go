package core

import (
	"fmt"
	"strings"
)

// Column identifies one internal record attribute. The value doubles as the
// storage column name.
type Column string

// Storage-assigned columns.
const (
	ColID        Column = "id"
	ColCreatedAt Column = "created_at"
)

// Record attribute columns.
const (
	ColClientRef       Column = "client_ref"
	ColPluginName      Column = "plugin_name"
	ColPluginVersion   Column = "plugin_version"
	ColWPVersion       Column = "wp_version"
	ColWCVersion       Column = "wc_version"
	ColIssueType       Column = "issue_type"
	ColIssueCategory   Column = "issue_category"
	ColIssueSummary    Column = "issue_summary"
	ColDescription     Column = "detailed_description"
	ColStepsReproduce  Column = "steps_reproduce"
	ColErrorLogs       Column = "errors_logs"
	ColTroubleshooting Column = "troubleshooting_steps"
	ColResolution      Column = "resolution"
	ColAssignedAgent   Column = "assigned_agent"
	ColTimeSpent       Column = "time_spent"
	ColEscalated       Column = "escalated"
	ColRecurring       Column = "recurring"
	ColStatus          Column = "status"
)

// FieldType represents how a raw value is coerced.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldInt
	FieldFlag
)

func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldEnum:
		return "enum"
	case FieldInt:
		return "integer"
	case FieldFlag:
		return "flag"
	default:
		return "value"
	}
}

// FieldSpec describes one externally visible field of a schema variant.
type FieldSpec struct {
	Name       string // CSV header label, also used in error messages
	Key        string // JSON object key
	Column     Column // internal attribute
	Type       FieldType
	Required   bool     // must be non-empty after coercion
	MinLen     int      // minimum rune count for non-empty text, 0 = none
	MaxLen     int      // maximum rune count for text, 0 = none
	EnumValues []string // canonical spellings for FieldEnum
	Default    string   // used when the field is absent from the input entirely
}

// FlagStyle selects how a variant represents its boolean-like fields externally.
type FlagStyle int

const (
	// FlagBool emits genuine booleans in JSON and accepts any text on import.
	FlagBool FlagStyle = iota
	// FlagYesNo emits "Yes"/"No" and rejects values outside that enumeration.
	FlagYesNo
)

// Flag spellings used by FlagYesNo and by CSV export.
const (
	FlagYes = "Yes"
	FlagNo  = "No"
)

// Schema is one record layout: field names, enumerations and which
// attribute, if any, storage keeps unique.
type Schema struct {
	Key          string // "legacy" or "revised"
	Label        string
	UniqueKey    Column // empty when the variant has no uniqueness key
	CreatedLabel string // CSV header for the creation timestamp
	CreatedKey   string // JSON key for the creation timestamp
	Flags        FlagStyle
	Fields       []FieldSpec
}

// Spec returns the field spec for a column.
func (s *Schema) Spec(col Column) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Column == col {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Has reports whether the variant carries the column.
func (s *Schema) Has(col Column) bool {
	_, ok := s.Spec(col)
	return ok
}

// Format is an import/export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json" in any case, with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type used when serving the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// HeaderIndex maps lowercased header labels to their position in a CSV row.
type HeaderIndex map[string]int
