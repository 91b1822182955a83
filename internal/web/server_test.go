package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/supportlog/internal/config"
	"github.com/JonMunkholm/supportlog/internal/core"
	"github.com/JonMunkholm/supportlog/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Client Ref,Plugin Name,Issue Category,Issue Summary,Status,Time Spent,Escalated
CR-1,PDF Invoice,Export,Totals are wrong,Open,30,Yes
CR-2,Gift Cards,Activation,Cannot activate licence,Resolved,15,No
`

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import: config.ImportConfig{MaxFileSize: 1 << 20, EscapeHTML: true},
		Rate:   config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{
			EnableCSP: true,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, deps Deps) *Server {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc, err := core.NewService(store, core.Options{
		Schema:      core.LegacySchema(),
		EscapeHTML:  cfg.Import.EscapeHTML,
		MaxFileSize: cfg.Import.MaxFileSize,
	})
	require.NoError(t, err)

	if deps.Health == nil {
		deps.Health = store
	}
	s := NewServer(svc, cfg, deps)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, target string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func importCSV(t *testing.T, s *Server, data string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, s, http.MethodPost, "/api/import?format=csv", []byte(data), nil)
}

func TestImport_CSVBody(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := importCSV(t, s, sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[core.ImportReport](t, rec)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, core.FormatCSV, report.Format)

	// Re-importing skips every record as a duplicate but still succeeds.
	rec = importCSV(t, s, sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code)
	report = decode[core.ImportReport](t, rec)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, `Line 1: duplicate Client Ref "CR-1"`, report.Errors[0])
}

func TestImport_MultipartDetectsFormatFromFilename(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "logs.json")
	require.NoError(t, err)
	fmt.Fprint(part, `[{"client_ref":"CR-9","plugin_name":"Bookings","issue_category":"Calendar","issue_summary":"Slots overlap","escalated":true}]`)
	require.NoError(t, mw.Close())

	rec := do(t, s, http.MethodPost, "/api/import", body.Bytes(), map[string]string{
		"Content-Type": mw.FormDataContentType(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[core.ImportReport](t, rec)
	assert.Equal(t, core.FormatJSON, report.Format)
	assert.Equal(t, 1, report.Imported)
}

func TestImport_FormatFromFilenameParam(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := do(t, s, http.MethodPost, "/api/import?filename=export.csv", []byte(sampleCSV), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.FormatCSV, decode[core.ImportReport](t, rec).Format)
}

func TestImport_FormatFromContentType(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := do(t, s, http.MethodPost, "/api/import", []byte(sampleCSV), map[string]string{
		"Content-Type": "text/csv",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[core.ImportReport](t, rec).Imported)
}

func TestImport_Failures(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 256

	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"unknown format", "/api/import", sampleCSV, http.StatusBadRequest, "FILE007"},
		{"unsupported format parameter", "/api/import?format=xml", "<a/>", http.StatusBadRequest, "FILE007"},
		{"empty body", "/api/import?format=csv", "", http.StatusBadRequest, "FILE005"},
		{"not an array", "/api/import?format=json", `{"client_ref":"CR-1"}`, http.StatusBadRequest, "FILE004"},
		{"malformed json", "/api/import?format=json", `[{"client_ref":`, http.StatusBadRequest, "FILE003"},
		{"unrecognized header", "/api/import?format=csv", "a,b\n1,2\n", http.StatusBadRequest, "FILE006"},
		{"too large", "/api/import?format=csv", strings.Repeat("x", 300), http.StatusRequestEntityTooLarge, "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, cfg, Deps{})

			rec := do(t, s, http.MethodPost, tt.target, []byte(tt.body), nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
			assert.Nil(t, resp.Report)
		})
	}
}

func TestExport(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})
	require.Equal(t, http.StatusOK, importCSV(t, s, sampleCSV).Code)

	t.Run("csv by default", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/export", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Regexp(t, `^attachment; filename=support_logs_export_\d{4}-\d{2}-\d{2}_`, rec.Header().Get("Content-Disposition"))

		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		require.Len(t, lines, 3)
		assert.Contains(t, lines[1], ",CR-2,", "newest first")
	})

	t.Run("json", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/export?format=json", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), ".json")

		var entries []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "CR-2", entries[0]["client_ref"])
		assert.Equal(t, true, entries[1]["escalated"])
	})

	t.Run("unsupported", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/export?format=xlsx", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListLogs(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})
	require.Equal(t, http.StatusOK, importCSV(t, s, sampleCSV).Code)

	type listing struct {
		Count   int              `json:"count"`
		Records []map[string]any `json:"records"`
	}

	all := decode[listing](t, do(t, s, http.MethodGet, "/api/logs", nil, nil))
	assert.Equal(t, 2, all.Count)
	assert.Equal(t, "CR-2", all.Records[0]["client_ref"])
	assert.NotZero(t, all.Records[0]["id"])

	open := decode[listing](t, do(t, s, http.MethodGet, "/api/logs?status=open", nil, nil))
	require.Equal(t, 1, open.Count)
	assert.Equal(t, "CR-1", open.Records[0]["client_ref"])

	escalated := decode[listing](t, do(t, s, http.MethodGet, "/api/logs?escalated=yes", nil, nil))
	require.Equal(t, 1, escalated.Count)

	found := decode[listing](t, do(t, s, http.MethodGet, "/api/logs?search=licence", nil, nil))
	require.Equal(t, 1, found.Count)
	assert.Equal(t, "CR-2", found.Records[0]["client_ref"])

	rec := do(t, s, http.MethodGet, "/api/logs?recurring=maybe", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL011", decode[ErrorResponse](t, rec).Code)
}

func TestLogLifecycle(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})
	jsonHeader := map[string]string{"Content-Type": "application/json"}

	body := []byte(`{"client_ref":"CR-7","plugin_name":"PDF Invoice","issue_category":"Export","issue_summary":"Fish & chips","time_spent":12.5}`)
	rec := do(t, s, http.MethodPost, "/api/logs", body, jsonHeader)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[map[string]any](t, rec)
	assert.Equal(t, "Fish &amp; chips", created["issue_summary"])
	assert.Equal(t, float64(12), created["time_spent"])
	assert.Equal(t, "Open", created["status"], "default applies when status is absent")
	id := int64(created["id"].(float64))

	rec = do(t, s, http.MethodPost, "/api/logs", body, jsonHeader)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/logs", []byte(`{"client_ref":"CR-8","status":"Pending"}`), jsonHeader)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr := decode[ErrorResponse](t, rec)
	var fields []string
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"Plugin Name", "Issue Category", "Issue Summary", "Status"}, fields)

	rec = do(t, s, http.MethodPost, "/api/logs", []byte(`[1,2]`), jsonHeader)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	update := []byte(`{"client_ref":"CR-7","plugin_name":"PDF Invoice","issue_category":"Export","issue_summary":"Totals fixed","status":"resolved"}`)
	rec = do(t, s, http.MethodPut, fmt.Sprintf("/api/logs/%d", id), update, jsonHeader)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Resolved", decode[map[string]any](t, rec)["status"])

	rec = do(t, s, http.MethodPut, "/api/logs/999", update, jsonHeader)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/logs/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL010", decode[ErrorResponse](t, rec).Code)

	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/api/logs/%d", id), nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/api/logs/%d", id), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchema(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := do(t, s, http.MethodGet, "/api/schema", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	info := decode[schemaInfo](t, rec)
	assert.Equal(t, core.VariantLegacy, info.Variant)
	assert.Equal(t, "client_ref", info.UniqueKey)
	assert.Equal(t, "Client Ref", info.Header[0], "import header lists only importable columns")
	assert.NotContains(t, info.Header, core.IDLabel)
	assert.Equal(t, []string{core.IDLabel, "Date Created", "Client Ref"}, info.ExportHeader[:3])
	assert.Len(t, info.ExportHeader, len(info.Header)+2)
	require.NotEmpty(t, info.Fields)
	assert.True(t, info.Fields[0].Required)
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s := newTestServer(t, testConfig(), Deps{})
		rec := do(t, s, http.MethodGet, "/healthz", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[healthResponse](t, rec)
		assert.Equal(t, "ok", resp.Database)
		assert.Equal(t, core.DefaultMaxConcurrentImports, resp.Imports.MaxConcurrent)
	})

	t.Run("database down", func(t *testing.T) {
		s := newTestServer(t, testConfig(), Deps{Health: stubPinger{err: errors.New("connection refused")}})
		rec := do(t, s, http.MethodGet, "/healthz", nil, nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unreachable", decode[healthResponse](t, rec).Database)
	})
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "supportlog_imports_total 0")
	})
	s := newTestServer(t, testConfig(), Deps{Metrics: metrics})

	rec := do(t, s, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "supportlog_imports_total")

	s = newTestServer(t, testConfig(), Deps{})
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/metrics", nil, nil).Code)
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})
	rec := do(t, s, http.MethodGet, "/api/schema", nil, nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestRateLimiting(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ImportLimit: 1}
	s := newTestServer(t, cfg, Deps{})

	require.Equal(t, http.StatusOK, importCSV(t, s, sampleCSV).Code)

	rec := importCSV(t, s, sampleCSV)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)

	// Other routes keep their own budget.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/logs", nil, nil).Code)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "budgets are per client")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("10.0.0.1"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ValidationErrors{{Field: "Status", Message: "required field is empty"}}, http.StatusUnprocessableEntity},
		{fmt.Errorf("create record: %w", core.ErrDuplicate), http.StatusConflict},
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{core.ErrMissingHeader, http.StatusBadRequest},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{fmt.Errorf("%w after 1 of 3 records", core.ErrImportCancelled), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		param, filename, contentType string
		want                         core.Format
		wantErr                      bool
	}{
		{"json", "logs.csv", "text/csv", core.FormatJSON, false},
		{"", "logs.CSV", "application/json", core.FormatCSV, false},
		{"", "", "application/json", core.FormatJSON, false},
		{"", "", "text/csv", core.FormatCSV, false},
		{"", "logs.txt", "", "", true},
		{"", "", "application/octet-stream", "", true},
	}

	for _, tt := range tests {
		got, err := detectFormat(tt.param, tt.filename, tt.contentType)
		if tt.wantErr {
			assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
