package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"retail-dashboard/internal/dataset"
)

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, time.January, 31, 15, 4, 5, 0, time.UTC)
	if got := ExportFilename(now, "csv"); got != "filtered_sales_data_20240131.csv" {
		t.Errorf("ExportFilename() = %q", got)
	}
	if got := ExportFilename(now, "xlsx"); got != "filtered_sales_data_20240131.xlsx" {
		t.Errorf("ExportFilename() = %q", got)
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	base := createTestTable()
	f := Unfiltered(base)
	f.Categories = NewSet("Books")
	view := Apply(base, f)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, view); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	rows, err := dataset.Parse(context.Background(), bytes.NewReader(buf.Bytes()), "export.csv", ',', nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	reloaded := dataset.NewTable(rows)

	if reloaded.Len() != view.Len() {
		t.Fatalf("reloaded %d rows, want %d", reloaded.Len(), view.Len())
	}
	if !almostEqual(Revenue(reloaded), Revenue(view)) {
		t.Errorf("revenue %v != %v", Revenue(reloaded), Revenue(view))
	}
	if reloaded.MissingDates() != view.MissingDates() {
		t.Errorf("missing dates %d != %d", reloaded.MissingDates(), view.MissingDates())
	}
	for i, r := range reloaded.Rows() {
		orig := view.Rows()[i]
		if r.InvoiceNo != orig.InvoiceNo || r.MonthYear != orig.MonthYear || r.DayOfWeek != orig.DayOfWeek {
			t.Errorf("row %d = %+v, want %+v", i, r, orig)
		}
	}
}

func TestWriteCSV_Columns(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, createTestTable()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 11 {
		t.Fatalf("len(records) = %d, want header + 10", len(records))
	}
	if got := strings.Join(records[0], ","); got != strings.Join(ExportColumns, ",") {
		t.Errorf("header = %q", got)
	}

	first := records[1]
	if first[8] != "2022-01-03" || first[10] != "600.16" || first[13] != "2022-01" || first[14] != "Monday" {
		t.Errorf("first row = %v", first)
	}
	undated := records[10]
	if undated[8] != "" || undated[11] != "" || undated[13] != "" {
		t.Errorf("undated row = %v", undated)
	}
}

func TestWriteCSV_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, dataset.NewTable(nil)); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != strings.Join(ExportColumns, ",") {
		t.Errorf("output = %q, want header only", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, createTestTable()); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 11 {
		t.Fatalf("len(rows) = %d, want 11", len(rows))
	}
	if rows[0][0] != "invoice_no" || rows[1][0] != "I01" || rows[1][8] != "2022-01-03" {
		t.Errorf("unexpected cells: %v / %v", rows[0], rows[1])
	}
}
