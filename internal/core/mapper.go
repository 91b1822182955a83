package core

// mapper.go translates between external names (CSV header labels, JSON keys)
// and internal columns for one schema variant.
//
// Decoding is tolerant: unknown columns and keys are ignored and recognized
// ones are found regardless of order. Encoding is strict: every field of the
// variant is emitted in declared order, with empty or zero values for unset
// attributes.

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// TimestampLayout is the creation-time format used in exports.
const TimestampLayout = "2006-01-02 15:04:05"

// IDLabel is the CSV header of the storage-assigned identifier.
const IDLabel = "ID"

// FieldPair links an external name to an internal column.
type FieldPair struct {
	Label  string `json:"label"` // CSV header label
	Key    string `json:"key"`   // JSON object key
	Column Column `json:"column"`
}

// RawValue is one recognized input value before coercion.
type RawValue struct {
	Text string
	Err  error // set when the input could not be read as a scalar
}

// RawRecord holds the recognized values of one input row. A column missing
// from the map was absent from the input.
type RawRecord map[Column]RawValue

// Mapper maps rows and objects for a schema variant.
type Mapper struct {
	schema *Schema
}

// NewMapper creates a mapper for the variant.
func NewMapper(s *Schema) *Mapper {
	return &Mapper{schema: s}
}

// Schema returns the variant this mapper targets.
func (m *Mapper) Schema() *Schema {
	return m.schema
}

// DecodePairs returns the external to internal pairs used when reading input,
// in declared order.
func (m *Mapper) DecodePairs() []FieldPair {
	pairs := make([]FieldPair, len(m.schema.Fields))
	for i, f := range m.schema.Fields {
		pairs[i] = FieldPair{Label: f.Name, Key: f.Key, Column: f.Column}
	}
	return pairs
}

// EncodePairs returns the internal to external pairs used when writing output:
// the storage-assigned identifier and timestamp first, then every field.
func (m *Mapper) EncodePairs() []FieldPair {
	pairs := make([]FieldPair, 0, len(m.schema.Fields)+2)
	pairs = append(pairs,
		FieldPair{Label: IDLabel, Key: string(ColID), Column: ColID},
		FieldPair{Label: m.schema.CreatedLabel, Key: m.schema.CreatedKey, Column: ColCreatedAt},
	)
	return append(pairs, m.DecodePairs()...)
}

// csvPosition finds a field in the header by label, falling back to its JSON key.
func (m *Mapper) csvPosition(idx HeaderIndex, f FieldSpec) (int, bool) {
	if pos, ok := idx[strings.ToLower(f.Name)]; ok {
		return pos, true
	}
	pos, ok := idx[strings.ToLower(f.Key)]
	return pos, ok
}

// Recognized counts the variant fields present in a header.
func (m *Mapper) Recognized(idx HeaderIndex) int {
	n := 0
	for _, f := range m.schema.Fields {
		if _, ok := m.csvPosition(idx, f); ok {
			n++
		}
	}
	return n
}

// FromCSVRow captures the recognized cells of a data row by position. A row
// shorter than the header yields empty values for the missing cells.
func (m *Mapper) FromCSVRow(idx HeaderIndex, row []string) RawRecord {
	raw := make(RawRecord, len(m.schema.Fields))
	for _, f := range m.schema.Fields {
		pos, ok := m.csvPosition(idx, f)
		if !ok {
			continue
		}
		var v string
		if pos < len(row) {
			v = row[pos]
		}
		raw[f.Column] = RawValue{Text: v}
	}
	return raw
}

// FromJSONObject captures the recognized members of an object. Keys match
// case-insensitively; null members count as absent.
func (m *Mapper) FromJSONObject(obj map[string]any) RawRecord {
	lower := make(map[string]any, len(obj))
	for k, v := range obj {
		lk := strings.ToLower(k)
		if _, dup := lower[lk]; !dup || k == lk {
			lower[lk] = v
		}
	}

	raw := make(RawRecord, len(m.schema.Fields))
	for _, f := range m.schema.Fields {
		v, ok := lower[strings.ToLower(f.Key)]
		if !ok || v == nil {
			continue
		}
		text, err := scalarText(v)
		raw[f.Column] = RawValue{Text: text, Err: err}
	}
	return raw
}

// CSVHeader returns the export header row.
func (m *Mapper) CSVHeader() []string {
	pairs := m.EncodePairs()
	header := make([]string, len(pairs))
	for i, p := range pairs {
		header[i] = p.Label
	}
	return header
}

// ToCSVRow renders a record in CSV header order. Flags are written as Yes/No
// in every variant so the file reads back through either flag style.
func (m *Mapper) ToCSVRow(r *Record) []string {
	row := make([]string, 0, len(m.schema.Fields)+2)
	row = append(row, strconv.FormatInt(r.ID, 10), formatTimestamp(r))
	for _, f := range m.schema.Fields {
		switch f.Type {
		case FieldInt:
			row = append(row, strconv.Itoa(r.TimeSpent))
		case FieldFlag:
			row = append(row, FormatFlag(r.Flag(f.Column)))
		default:
			row = append(row, r.Text(f.Column))
		}
	}
	return row
}

// ToJSONObject renders a record as an object whose keys follow the variant's
// declared order.
func (m *Mapper) ToJSONObject(r *Record) OrderedObject {
	obj := make(OrderedObject, 0, len(m.schema.Fields)+2)
	obj = append(obj,
		Member{Key: string(ColID), Value: r.ID},
		Member{Key: m.schema.CreatedKey, Value: formatTimestamp(r)},
	)
	for _, f := range m.schema.Fields {
		var v any
		switch f.Type {
		case FieldInt:
			v = r.TimeSpent
		case FieldFlag:
			if m.schema.Flags == FlagYesNo {
				v = FormatFlag(r.Flag(f.Column))
			} else {
				v = r.Flag(f.Column)
			}
		default:
			v = r.Text(f.Column)
		}
		obj = append(obj, Member{Key: f.Key, Value: v})
	}
	return obj
}

func formatTimestamp(r *Record) string {
	if r.CreatedAt.IsZero() {
		return ""
	}
	return r.CreatedAt.UTC().Format(TimestampLayout)
}

// Member is one key/value pair of an OrderedObject.
type Member struct {
	Key   string
	Value any
}

// OrderedObject is a JSON object that keeps its members in insertion order.
type OrderedObject []Member

// Get returns the value stored under key.
func (o OrderedObject) Get(key string) (any, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes the members in order without HTML escaping.
func (o OrderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, m.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, m.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeJSON encodes v without HTML escaping and without the encoder's trailing newline.
func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}
