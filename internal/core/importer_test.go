package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyCSV = `Client Ref,Plugin Name,Issue Category,Issue Summary,Status,Time Spent,Escalated
CR-1,PDF Invoice,Export,Totals are wrong,Open,30,Yes
CR-2,Gift Cards,Activation,Cannot activate licence,Resolved,15,No
CR-3,Bookings,Calendar,Slots overlap on DST change,Escalated,-5,1
`

func newTestImporter(t *testing.T, s *Schema, escape bool) (*Importer, *memStore) {
	t.Helper()
	store := newMemStore(s)
	return NewImporter(store, s, escape), store
}

func TestImport_CSVAllValid(t *testing.T) {
	im, store := newTestImporter(t, LegacySchema(), true)

	report, err := im.Import(context.Background(), []byte(legacyCSV), FormatCSV)

	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, 0, report.Skipped)
	assert.Empty(t, report.Errors)
	assert.False(t, report.Incomplete)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, VariantLegacy, report.Variant)
	assert.Equal(t, 3, store.count())

	recs, err := store.QueryAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CR-3", recs[0].ClientRef)
	assert.Equal(t, 0, recs[0].TimeSpent, "negative time spent is stored as 0")
	assert.True(t, recs[0].Escalated)
}

func TestImport_ReimportSkipsDuplicates(t *testing.T) {
	im, store := newTestImporter(t, LegacySchema(), true)
	ctx := context.Background()

	_, err := im.Import(ctx, []byte(legacyCSV), FormatCSV)
	require.NoError(t, err)

	report, err := im.Import(ctx, []byte(legacyCSV), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 3, report.Skipped)
	require.Len(t, report.Errors, 3)
	assert.Equal(t, `Line 1: duplicate Client Ref "CR-1"`, report.Errors[0])
	assert.Equal(t, 3, store.count(), "re-import leaves storage unchanged")
}

func TestImport_DuplicateWithinFile(t *testing.T) {
	im, store := newTestImporter(t, LegacySchema(), true)

	data := "Client Ref,Plugin Name,Issue Category,Issue Summary\n" +
		"CR-9,PDF Invoice,Export,First copy\n" +
		"CR-9,PDF Invoice,Export,Second copy\n"

	report, err := im.Import(context.Background(), []byte(data), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{`Line 2: duplicate Client Ref "CR-9"`}, report.Errors)
	assert.Equal(t, 1, store.count())
}

func TestImport_DuplicateKeyReportedUnescaped(t *testing.T) {
	im, _ := newTestImporter(t, LegacySchema(), true)
	data := "Client Ref,Plugin Name,Issue Category,Issue Summary\n" +
		"A&B,PDF Invoice,Export,First copy\n" +
		"A&B,PDF Invoice,Export,Second copy\n"

	report, err := im.Import(context.Background(), []byte(data), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{`Line 2: duplicate Client Ref "A&B"`}, report.Errors)
}

func TestImport_RevisedVariantAllowsRepeats(t *testing.T) {
	im, store := newTestImporter(t, RevisedSchema(), true)
	data := "Issue Type,Plugin Name,Concern Area,Query Title,Recurring Issue\n" +
		"Technical,Gift Cards,Activation,Licence not accepted,Yes\n" +
		"Technical,Gift Cards,Activation,Licence not accepted,Yes\n"

	report, err := im.Import(context.Background(), []byte(data), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 2, store.count())
}

func TestImport_MissingRequiredFieldNotStored(t *testing.T) {
	im, store := newTestImporter(t, LegacySchema(), true)
	data := "Client Ref,Plugin Name,Issue Category,Issue Summary\n" +
		"CR-1,PDF Invoice,Export,Totals are wrong\n" +
		"CR-2,,Export,Plugin name missing\n"

	report, err := im.Import(context.Background(), []byte(data), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "Line 2: Plugin Name: required field is empty", report.Errors[0])
	assert.Equal(t, 1, store.count())
}

func TestImport_HeaderMatching(t *testing.T) {
	im, store := newTestImporter(t, LegacySchema(), false)
	data := "\ufeff ISSUE SUMMARY ,client_ref,Unknown Column,plugin name,Issue Category\n" +
		"Reordered header works,CR-7,ignored,Bookings,Calendar\n"

	report, err := im.Import(context.Background(), []byte(data), FormatCSV)
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported, report.Errors)

	recs, _ := store.QueryAll(context.Background())
	assert.Equal(t, "CR-7", recs[0].ClientRef)
	assert.Equal(t, "Bookings", recs[0].PluginName)
	assert.Equal(t, "Reordered header works", recs[0].Summary)
	assert.Equal(t, "Open", recs[0].Status, "absent status takes the default")
}

func TestImport_BlankRowsKeepNumbering(t *testing.T) {
	im, _ := newTestImporter(t, LegacySchema(), true)
	data := "Client Ref,Plugin Name,Issue Category,Issue Summary\n" +
		"CR-1,PDF Invoice,Export,Totals are wrong\n" +
		",,,\n" +
		"CR-2,PDF Invoice,Export,no\n"

	report, err := im.Import(context.Background(), []byte(data), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, []string{"Line 3: Issue Summary: must be at least 3 characters"}, report.Errors)
}

func TestImport_ShortRowYieldsEmptyValues(t *testing.T) {
	im, _ := newTestImporter(t, LegacySchema(), true)
	data := "Client Ref,Plugin Name,Issue Category,Issue Summary\n" +
		"CR-1,PDF Invoice\n"

	report, err := im.Import(context.Background(), []byte(data), FormatCSV)
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "Issue Category: required field is empty")
}

func TestImport_JSON(t *testing.T) {
	im, store := newTestImporter(t, LegacySchema(), true)
	data := `[
		{"client_ref": "CR-1", "plugin_name": "PDF Invoice", "issue_category": "Export",
		 "issue_summary": "Totals are wrong", "time_spent": 12.7, "escalated": true, "recurring": "yes"},
		{"Client_Ref": "CR-2", "plugin_name": "Gift Cards", "issue_category": "Activation",
		 "issue_summary": "Cannot activate", "status": null, "extra": {"ignored": true}},
		{"client_ref": "CR-3", "plugin_name": ["a", "b"], "issue_category": "x", "issue_summary": "List value"},
		"not an object"
	]`

	report, err := im.Import(context.Background(), []byte(data), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Processed)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, []string{
		"Entry 3: Plugin Name: must be a single value, not a list",
		"Entry 4: entry must be a JSON object",
	}, report.Errors)

	recs, _ := store.QueryAll(context.Background())
	require.Len(t, recs, 2)
	first := recs[1]
	assert.Equal(t, 12, first.TimeSpent)
	assert.True(t, first.Escalated)
	assert.True(t, first.Recurring)
	assert.Equal(t, "Open", recs[0].Status, "null status counts as absent")
}

func TestImport_StructuralFailuresStoreNothing(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
		want   error
	}{
		{"json object", FormatJSON, `{"a":1}`, ErrNotArray},
		{"json scalar", FormatJSON, `42`, ErrNotArray},
		{"json syntax", FormatJSON, `[{"client_ref": "CR-1",}]`, ErrMalformedInput},
		{"json trailing data", FormatJSON, `[] []`, ErrMalformedInput},
		{"json unterminated", FormatJSON, `[{"client_ref": "CR-1"}`, ErrMalformedInput},
		{"empty", FormatCSV, "", ErrEmptyInput},
		{"whitespace", FormatJSON, "  \n\t", ErrEmptyInput},
		{"bom only", FormatCSV, "\ufeff", ErrEmptyInput},
		{"unrecognized header", FormatCSV, "foo,bar\n1,2\n", ErrMissingHeader},
		{"unsupported format", Format("xml"), "<logs/>", ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im, store := newTestImporter(t, LegacySchema(), true)

			report, err := im.Import(context.Background(), []byte(tt.data), tt.format)

			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, report)
			assert.Zero(t, store.inserts)
		})
	}
}

func TestImport_EmptyArrayImportsNothing(t *testing.T) {
	im, _ := newTestImporter(t, LegacySchema(), true)

	report, err := im.Import(context.Background(), []byte("[]"), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
	assert.NotNil(t, report.Errors)
}

func TestImport_InvalidUTF8IsReplaced(t *testing.T) {
	im, store := newTestImporter(t, LegacySchema(), false)
	data := []byte("Client Ref,Plugin Name,Issue Category,Issue Summary\nCR-1,Caf\xe9 Menu,Export,Totals are wrong\n")

	report, err := im.Import(context.Background(), data, FormatCSV)
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)

	recs, _ := store.QueryAll(context.Background())
	assert.Equal(t, "Caf\uFFFD Menu", recs[0].PluginName)
}

func TestImport_StorageFailureSkipsRecord(t *testing.T) {
	im, store := newTestImporter(t, LegacySchema(), true)
	store.insertErr = func(r *Record) error {
		if r.ClientRef == "CR-2" {
			return errors.New("insert support log: connection reset by peer")
		}
		return nil
	}

	report, err := im.Import(context.Background(), []byte(legacyCSV), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, []string{"Line 2: insert support log: connection reset by peer"}, report.Errors)
}

func TestImport_CancelledBetweenRecords(t *testing.T) {
	im, store := newTestImporter(t, LegacySchema(), true)
	ctx, cancel := context.WithCancel(context.Background())
	store.insertErr = func(r *Record) error {
		if r.ClientRef == "CR-1" {
			cancel()
		}
		return nil
	}

	report, err := im.Import(ctx, []byte(legacyCSV), FormatCSV)

	require.ErrorIs(t, err, ErrImportCancelled)
	require.NotNil(t, report)
	assert.True(t, report.Incomplete)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Imported, "the insert in flight completes")
	assert.Equal(t, 1, store.count())
	assert.Contains(t, err.Error(), "after 1 of 3 records")
}

func TestImport_LargeBatch(t *testing.T) {
	im, store := newTestImporter(t, LegacySchema(), true)

	var b strings.Builder
	b.WriteString("Client Ref,Plugin Name,Issue Category,Issue Summary\n")
	for i := 1; i <= 500; i++ {
		fmt.Fprintf(&b, "CR-%d,Plugin %d,Category,Summary for %d\n", i, i%7, i)
	}

	report, err := im.Import(context.Background(), []byte(b.String()), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 500, report.Imported)
	assert.Equal(t, 500, store.count())
}
