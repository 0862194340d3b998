package dataset

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const header = "invoice_no,customer_id,gender,age,category,quantity,price,payment_method,invoice_date,shopping_mall\n"

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_Load_ValidData(t *testing.T) {
	csv := header +
		"I1,C1,Female,28,Clothing,5,1500.4,Credit Card,5/8/2022,Kanyon\n" +
		"I2,C2,Male,21,Shoes,3,1800.51,Debit Card,12/12/2021,Forum Istanbul\n" +
		"I3,C3,Male,20,Clothing,1,300.08,Cash,09/11/2021,Metrocity\n"

	l := NewLoader(createTempCSV(t, csv))
	table, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}

	first := table.Rows()[0]
	if math.Abs(first.TotalAmount-7502) > 1e-9 {
		t.Errorf("TotalAmount = %v, want 7502", first.TotalAmount)
	}
	want := time.Date(2022, time.August, 5, 0, 0, 0, 0, time.UTC)
	if !first.HasDate || !first.InvoiceDate.Equal(want) {
		t.Errorf("InvoiceDate = %v (has=%v), want %v", first.InvoiceDate, first.HasDate, want)
	}
	if first.MonthYear != "2022-08" || first.DayOfWeek != "Friday" || first.Year != 2022 || first.Month != 8 {
		t.Errorf("derived fields = %q %q %d %d", first.MonthYear, first.DayOfWeek, first.Year, first.Month)
	}

	if got := strings.Join(table.Categories(), ","); got != "Clothing,Shoes" {
		t.Errorf("Categories() = %q", got)
	}
	if got := len(table.Malls()); got != 3 {
		t.Errorf("len(Malls()) = %d, want 3", got)
	}
}

func TestLoader_Load_CachesUntilInvalidated(t *testing.T) {
	path := createTempCSV(t, header+"I1,C1,Female,28,Clothing,5,10,Cash,5/8/2022,Kanyon\n")
	l := NewLoader(path)

	first, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("Load() should return the cached table")
	}

	if err := os.WriteFile(path, []byte(header+
		"I1,C1,Female,28,Clothing,5,10,Cash,5/8/2022,Kanyon\n"+
		"I2,C2,Male,30,Books,1,15,Cash,6/8/2022,Kanyon\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	third, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if third.Len() != 1 {
		t.Errorf("cached table should not see file changes, Len() = %d", third.Len())
	}

	l.Invalidate()
	fourth, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fourth == first || fourth.Len() != 2 {
		t.Errorf("Invalidate() should force a re-read, Len() = %d", fourth.Len())
	}
}

func TestLoader_Load_InvalidData(t *testing.T) {
	tests := []struct {
		name        string
		csv         string
		wantMissing []string
	}{
		{
			name: "empty file",
			csv:  "",
		},
		{
			name: "header only",
			csv:  header,
		},
		{
			name:        "missing columns",
			csv:         "invoice_no,customer_id,category,quantity,price\nI1,C1,Books,1,10\n",
			wantMissing: []string{"invoice_date", "payment_method", "shopping_mall", "gender", "age"},
		},
		{
			name: "every row malformed",
			csv:  header + "I1,C1,Female,28,Clothing,many,10,Cash,5/8/2022,Kanyon\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(createTempCSV(t, tt.csv))
			_, err := l.Load(context.Background())

			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Load() error = %v, want *LoadError", err)
			}
			if strings.Join(loadErr.Missing, ",") != strings.Join(tt.wantMissing, ",") {
				t.Errorf("Missing = %v, want %v", loadErr.Missing, tt.wantMissing)
			}
		})
	}
}

func TestParse_MalformedNumericCell(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		wantErr string
	}{
		{"quantity", "I2,C2,Male,30,Books,two,15,Cash,6/8/2022,Kanyon\n", "line 3: quantity"},
		{"price", "I2,C2,Male,30,Books,1,cheap,Cash,6/8/2022,Kanyon\n", "line 3: price"},
		{"age", "I2,C2,Male,,Books,1,15,Cash,6/8/2022,Kanyon\n", "line 3: age"},
		{"negative price", "I2,C2,Male,30,Books,1,-15,Cash,6/8/2022,Kanyon\n", "line 3: negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			csv := header + "I1,C1,Female,28,Clothing,5,10,Cash,5/8/2022,Kanyon\n" + tt.row
			rows, err := Parse(context.Background(), strings.NewReader(csv), "data.csv", ',', nil)

			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Parse() = %d rows, error %v; want *LoadError", len(rows), err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoader_Reload(t *testing.T) {
	path := createTempCSV(t, header+"I1,C1,Female,28,Clothing,5,10,Cash,5/8/2022,Kanyon\n")
	l := NewLoader(path)

	first, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("invoice_no,category\nI1,Books\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(context.Background()); err == nil {
		t.Fatal("Reload() of a broken file should fail")
	}
	kept, err := l.Load(context.Background())
	if err != nil || kept != first {
		t.Fatalf("failed Reload() should keep the previous table, got %v (err %v)", kept, err)
	}

	if err := os.WriteFile(path, []byte(header+
		"I1,C1,Female,28,Clothing,5,10,Cash,5/8/2022,Kanyon\n"+
		"I2,C2,Male,30,Books,1,15,Cash,6/8/2022,Kanyon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fresh, err := l.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if fresh.Len() != 2 {
		t.Errorf("Reload() Len() = %d, want 2", fresh.Len())
	}
	if current, _ := l.Load(context.Background()); current != fresh {
		t.Error("Load() should return the reloaded table")
	}
}

func TestLoader_Load_MissingFile(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope.csv"))
	_, err := l.Load(context.Background())

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Load() error = %v, want *LoadError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadError should wrap os.ErrNotExist, got %v", err)
	}
}

func TestLoader_Load_UnparseableDateIsMissing(t *testing.T) {
	csv := header +
		"I1,C1,Female,28,Clothing,2,10,Cash,not-a-date,Kanyon\n" +
		"I2,C2,Male,30,Books,1,15,Cash,2022-08-06,Kanyon\n"

	table, err := NewLoader(createTempCSV(t, csv)).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if table.Len() != 2 {
		t.Fatalf("rows with bad dates must be kept, Len() = %d", table.Len())
	}
	if table.MissingDates() != 1 {
		t.Errorf("MissingDates() = %d, want 1", table.MissingDates())
	}

	bad := table.Rows()[0]
	if bad.HasDate || bad.MonthYear != "" || bad.DayOfWeek != "" {
		t.Errorf("undated row kept calendar fields: %+v", bad)
	}
	if bad.TotalAmount != 20 {
		t.Errorf("TotalAmount = %v, want 20", bad.TotalAmount)
	}

	minDate, maxDate, ok := table.DateBounds()
	want := time.Date(2022, time.August, 6, 0, 0, 0, 0, time.UTC)
	if !ok || !minDate.Equal(want) || !maxDate.Equal(want) {
		t.Errorf("DateBounds() = %v %v %v, want %v", minDate, maxDate, ok, want)
	}
}

func TestLoader_Load_Snapshot(t *testing.T) {
	path := createTempCSV(t, header+"I1,C1,Female,28,Clothing,5,10,Cash,5/8/2022,Kanyon\n")
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	cacheDir := t.TempDir()

	if _, err := NewLoader(path, WithCacheDir(cacheDir)).Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one snapshot file, got %v (err %v)", entries, err)
	}

	// The snapshot wins over the (now unreadable) source as long as the source is older.
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	table, err := NewLoader(path, WithCacheDir(cacheDir)).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() from snapshot error = %v", err)
	}
	if table.Len() != 1 || table.Rows()[0].TotalAmount != 50 {
		t.Errorf("snapshot table = %+v", table.Rows())
	}
}

func TestParse_TabDelimited(t *testing.T) {
	tsv := strings.ReplaceAll(header+"I1,C1,Female,28,Clothing,5,10,Cash,5/8/2022,Kanyon\n", ",", "\t")
	rows, err := Parse(context.Background(), strings.NewReader(tsv), "data.tsv", '\t', nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 1 || rows[0].ShoppingMall != "Kanyon" {
		t.Errorf("Parse() = %+v", rows)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"5/8/2022", time.Date(2022, 8, 5, 0, 0, 0, 0, time.UTC), true},
		{"05/08/2022", time.Date(2022, 8, 5, 0, 0, 0, 0, time.UTC), true},
		{"2022-08-05", time.Date(2022, 8, 5, 0, 0, 0, 0, time.UTC), true},
		{"31/02/2022", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if ok != tt.ok || !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
