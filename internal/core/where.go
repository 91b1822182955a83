package core

// where.go renders structured predicates into a parameterized WHERE clause.
// Column names come from the Column constants only; user input always travels
// as a bind argument.

import (
	"fmt"
	"strings"
)

// Dialect captures the SQL differences between the supported stores.
type Dialect struct {
	Name        string
	Placeholder func(n int) string // n is 1-based
	Like        string             // case-insensitive LIKE operator
}

// PostgresDialect uses numbered placeholders and ILIKE.
var PostgresDialect = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	Like:        "ILIKE",
}

// SQLiteDialect uses positional placeholders; LIKE is already case-insensitive for ASCII.
var SQLiteDialect = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	Like:        "LIKE",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// WhereBuilder accumulates conditions and their arguments.
type WhereBuilder struct {
	dialect    Dialect
	conditions []string
	args       []any
}

// NewWhereBuilder creates an empty builder for the dialect.
func NewWhereBuilder(d Dialect) *WhereBuilder {
	return &WhereBuilder{dialect: d}
}

// NextArgIndex returns the placeholder number the next argument will take.
func (w *WhereBuilder) NextArgIndex() int {
	return len(w.args) + 1
}

func (w *WhereBuilder) bind(v any) string {
	w.args = append(w.args, v)
	return w.dialect.Placeholder(len(w.args))
}

// Add appends one predicate. Predicates without columns are ignored.
func (w *WhereBuilder) Add(p Predicate) {
	if len(p.Columns) == 0 {
		return
	}

	parts := make([]string, 0, len(p.Columns))
	for _, col := range p.Columns {
		ident := quoteIdentifier(string(col))
		switch p.Op {
		case OpContains:
			pattern := "%" + likeEscaper.Replace(fmt.Sprint(p.Value)) + "%"
			parts = append(parts, fmt.Sprintf(`%s %s %s ESCAPE '\'`, ident, w.dialect.Like, w.bind(pattern)))
		default:
			parts = append(parts, fmt.Sprintf("%s = %s", ident, w.bind(p.Value)))
		}
	}

	if len(parts) == 1 {
		w.conditions = append(w.conditions, parts[0])
		return
	}
	w.conditions = append(w.conditions, "("+strings.Join(parts, " OR ")+")")
}

// AddAll appends predicates in order.
func (w *WhereBuilder) AddAll(preds []Predicate) {
	for _, p := range preds {
		w.Add(p)
	}
}

// Build returns the clause, including the WHERE keyword, and its arguments.
// An empty builder yields an empty clause.
func (w *WhereBuilder) Build() (string, []any) {
	if len(w.conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(w.conditions, " AND "), w.args
}

// quoteIdentifier double-quotes a SQL identifier, valid for both dialects.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ColumnList renders cols as a comma-separated list of quoted identifiers.
func ColumnList(cols []Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = quoteIdentifier(string(c))
	}
	return strings.Join(parts, ", ")
}

// Placeholders renders n placeholders starting at argument number from.
func (d Dialect) Placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.Placeholder(from + i)
	}
	return strings.Join(parts, ", ")
}
