package core

// convert.go holds the value-level conversions shared by the mapper and the
// validator. Every function here is pure and safe for concurrent use.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// htmlEscaper mirrors the entity set stored by the legacy application:
// single quotes become &#039; rather than Go's &#39;.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&#039;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML entity-escapes the five HTML-sensitive characters.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// UnescapeHTML reverses EscapeHTML (and any other standard entity).
func UnescapeHTML(s string) string {
	return html.UnescapeString(s)
}

// ParseFlag reports whether s is one of yes, 1 or true, ignoring case and
// surrounding space. Anything else is false.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "1", "true":
		return true
	}
	return false
}

// parseStrictFlag accepts the affirmative spellings of ParseFlag and their
// negatives. Empty input is false.
func parseStrictFlag(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "1", "true":
		return true, true
	case "no", "0", "false", "":
		return false, true
	}
	return false, false
}

// FormatFlag renders a flag as Yes or No.
func FormatFlag(b bool) string {
	if b {
		return FlagYes
	}
	return FlagNo
}

// ParseMinutes coerces a time-spent value. Numeric input is truncated toward
// zero; negative, non-numeric and non-finite input becomes 0.
func ParseMinutes(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// matchEnum returns the canonical spelling of v among values, matched case-insensitively.
func matchEnum(v string, values []string) (string, bool) {
	for _, ev := range values {
		if strings.EqualFold(ev, v) {
			return ev, true
		}
	}
	return "", false
}

// scalarText converts a decoded JSON value to text. Objects and arrays are
// rejected; numbers keep their literal form when decoded with UseNumber.
func scalarText(v any) (string, error) {
	switch t := v.(type) {
	case map[string]any, []any:
		return "", fmt.Errorf("must be a single value, not a %s", jsonKind(v))
	case json.Number:
		return t.String(), nil
	}
	return cast.ToStringE(v)
}

func jsonKind(v any) string {
	if _, ok := v.([]any); ok {
		return "list"
	}
	return "object"
}

// CleanHeader normalizes a CSV header cell: trims space and a leading byte
// order mark.
func CleanHeader(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching; the first occurrence of a
// repeated label wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanHeader(h))
		if key == "" {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD so that a stray
// Latin-1 byte does not make the whole file unreadable.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("\uFFFD"))
}

// stripBOM removes a leading UTF-8 byte order mark.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
