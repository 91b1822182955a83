package core

import "strings"

// Filter narrows a record listing. Zero-valued members are ignored; the rest
// are combined with AND.
type Filter struct {
	Search    string // substring of summary, plugin name or error logs
	Status    string
	Plugin    string
	Category  string
	IssueType string
	Recurring *bool
	Escalated *bool
}

// SearchColumns are matched by Filter.Search.
var SearchColumns = []Column{ColIssueSummary, ColPluginName, ColErrorLogs}

// Operator is a predicate comparison.
type Operator int

const (
	OpEquals Operator = iota
	OpContains
)

// Predicate is one structured condition. When Columns holds more than one
// column the condition matches if any of them matches.
type Predicate struct {
	Columns []Column
	Op      Operator
	Value   any
}

// IsZero reports whether no condition is set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Predicates converts the filter into its structured predicate list, in a
// fixed order.
func (f Filter) Predicates() []Predicate {
	var preds []Predicate
	if s := strings.TrimSpace(f.Search); s != "" {
		preds = append(preds, Predicate{Columns: SearchColumns, Op: OpContains, Value: s})
	}
	eq := func(col Column, v string) {
		if v = strings.TrimSpace(v); v != "" {
			preds = append(preds, Predicate{Columns: []Column{col}, Op: OpEquals, Value: v})
		}
	}
	eq(ColStatus, f.Status)
	eq(ColPluginName, f.Plugin)
	eq(ColIssueCategory, f.Category)
	eq(ColIssueType, f.IssueType)
	if f.Recurring != nil {
		preds = append(preds, Predicate{Columns: []Column{ColRecurring}, Op: OpEquals, Value: *f.Recurring})
	}
	if f.Escalated != nil {
		preds = append(preds, Predicate{Columns: []Column{ColEscalated}, Op: OpEquals, Value: *f.Escalated})
	}
	return preds
}

// normalize aligns filter text with how values were stored: enumerations take
// their canonical spelling and free text is escaped when ingestion escapes.
func (f Filter) normalize(s *Schema, escapeHTML bool) Filter {
	if spec, ok := s.Spec(ColStatus); ok {
		if canon, ok := matchEnum(strings.TrimSpace(f.Status), spec.EnumValues); ok {
			f.Status = canon
		}
	}
	if spec, ok := s.Spec(ColIssueType); ok {
		if canon, ok := matchEnum(strings.TrimSpace(f.IssueType), spec.EnumValues); ok {
			f.IssueType = canon
		}
	}
	if escapeHTML {
		f.Search = EscapeHTML(f.Search)
		f.Plugin = EscapeHTML(f.Plugin)
		f.Category = EscapeHTML(f.Category)
	}
	return f
}
