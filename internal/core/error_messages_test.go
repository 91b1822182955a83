package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"duplicate sentinel", fmt.Errorf("insert: %w", ErrDuplicate), "DB001"},
		{"postgres unique violation text", errors.New("ERROR: duplicate key value violates unique constraint"), "DB001"},
		{"sqlite unique violation text", errors.New("UNIQUE constraint failed: support_logs.client_ref"), "DB002"},
		{"not found", ErrNotFound, "DB003"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004"},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), "DB008"},
		{"required field", ValidationErrors{{Field: "Issue Summary", Message: "required field is empty"}}, "VAL003"},
		{"enum", ValidationErrors{{Field: "Status", Message: "value must be one of: Open, Resolved, Escalated"}}, "VAL006"},
		{"invalid csv", fmt.Errorf("%w: invalid csv: bare quote", ErrMalformedInput), "FILE002"},
		{"invalid json", fmt.Errorf("%w: invalid json: unexpected EOF", ErrMalformedInput), "FILE003"},
		{"not an array", ErrNotArray, "FILE004"},
		{"empty file", ErrEmptyInput, "FILE005"},
		{"missing header", ErrMissingHeader, "FILE006"},
		{"unsupported format", fmt.Errorf("%w: %q", ErrUnsupportedFormat, "xml"), "FILE007"},
		{"cancelled import wins over cause", fmt.Errorf("%w after 2 of 5 records: context canceled", ErrImportCancelled), "IMP001"},
		{"limiter", ErrTooManyImports, "IMP002"},
		{"deadline", errors.New("context deadline exceeded"), "IMP004"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
		{"case insensitive matching", errors.New("DUPLICATE KEY value"), "DB001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrEmptyInput)
	want := "The uploaded file is empty (Code: FILE005). Upload a file with at least one entry"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if !IsUserFacing(ErrNotArray) {
		t.Error("ErrNotArray should be user facing")
	}
	if IsUserFacing(errors.New("segfault in module xyz")) {
		t.Error("unknown error should not be user facing")
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Fatal("NewUserError(nil) should be nil")
	}

	tech := fmt.Errorf("insert: %w", ErrDuplicate)
	ue := NewUserError(tech)
	if ue.User.Code != "DB001" {
		t.Errorf("code = %q, want DB001", ue.User.Code)
	}
	if ue.Error() != ue.User.Message {
		t.Errorf("Error() = %q, want user message", ue.Error())
	}
	if !errors.Is(ue, ErrDuplicate) {
		t.Error("UserError should unwrap to the technical error")
	}
}
