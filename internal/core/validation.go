package core

// validation.go coerces raw values into a typed Record and checks business
// rules. Every defect of a record is collected so the caller can report them
// together in one message.

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // External field label
	Value   string // The offending value, if any
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors is every defect found in one record.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Fields returns the labels of the failing fields in order.
func (es ValidationErrors) Fields() []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Field)
	}
	return out
}

// Validator coerces and validates raw records for one schema variant.
type Validator struct {
	schema     *Schema
	escapeHTML bool
}

// NewValidator creates a validator. With escapeHTML set, text values are
// entity-escaped before they reach storage, matching the legacy data.
func NewValidator(s *Schema, escapeHTML bool) *Validator {
	return &Validator{schema: s, escapeHTML: escapeHTML}
}

// Validate builds a Record from raw values. The record is nil when any
// error is returned.
func (v *Validator) Validate(raw RawRecord) (*Record, ValidationErrors) {
	rec := &Record{}
	var errs ValidationErrors

	for _, f := range v.schema.Fields {
		text := f.Default
		if rv, present := raw[f.Column]; present {
			if rv.Err != nil {
				errs = append(errs, ValidationError{Field: f.Name, Message: rv.Err.Error()})
				continue
			}
			text = rv.Text
		}
		text = strings.TrimSpace(text)

		if err := v.apply(rec, f, text); err != nil {
			errs = append(errs, *err)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return rec, nil
}

// apply coerces one trimmed value into rec.
func (v *Validator) apply(rec *Record, f FieldSpec, text string) *ValidationError {
	switch f.Type {
	case FieldInt:
		rec.TimeSpent = ParseMinutes(text)
		return nil

	case FieldFlag:
		p := rec.flagField(f.Column)
		if v.schema.Flags == FlagBool {
			*p = ParseFlag(text)
			return nil
		}
		b, ok := parseStrictFlag(text)
		if !ok {
			return &ValidationError{Field: f.Name, Value: text,
				Message: fmt.Sprintf("value must be one of: %s", strings.Join(f.EnumValues, ", "))}
		}
		*p = b
		return nil

	case FieldEnum:
		if text == "" {
			if f.Required {
				return &ValidationError{Field: f.Name, Message: "required field is empty"}
			}
			return nil
		}
		canon, ok := matchEnum(text, f.EnumValues)
		if !ok {
			return &ValidationError{Field: f.Name, Value: text,
				Message: fmt.Sprintf("value must be one of: %s", strings.Join(f.EnumValues, ", "))}
		}
		*rec.textField(f.Column) = canon
		return nil
	}

	if text == "" {
		if f.Required {
			return &ValidationError{Field: f.Name, Message: "required field is empty"}
		}
		return nil
	}
	n := utf8.RuneCountInString(text)
	if f.MinLen > 0 && n < f.MinLen {
		return &ValidationError{Field: f.Name, Value: text,
			Message: fmt.Sprintf("must be at least %d characters", f.MinLen)}
	}
	stored := text
	if v.escapeHTML {
		stored = EscapeHTML(text)
	}
	// The limit applies to the stored form, which is what the column holds.
	if f.MaxLen > 0 && utf8.RuneCountInString(stored) > f.MaxLen {
		msg := fmt.Sprintf("must be at most %d characters", f.MaxLen)
		if n <= f.MaxLen {
			msg = fmt.Sprintf("must be at most %d characters once HTML special characters are escaped", f.MaxLen)
		}
		return &ValidationError{Field: f.Name, Message: msg}
	}
	*rec.textField(f.Column) = stored
	return nil
}
