package handlers

import (
	"net/url"
	"testing"
	"time"

	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/models"
)

func filterTable() *dataset.Table {
	return dataset.NewTable([]models.Transaction{
		{InvoiceNo: "I1", Category: "Clothing", ShoppingMall: "Kanyon", Gender: "Female"},
		{InvoiceNo: "I2", Category: "Books", ShoppingMall: "Forum Istanbul", Gender: "Male"},
	})
}

func TestFilterFromQuery(t *testing.T) {
	table := filterTable()

	tests := []struct {
		name           string
		query          string
		wantCategories int
		wantMalls      int
		wantComplete   bool
	}{
		{"absent selects whole domain", "", 2, 2, false},
		{"repeated values", "category=Clothing&category=Books", 2, 2, false},
		{"blank values are dropped", "category=&category=Books", 1, 2, false},
		{"present but empty", "mall=", 2, 0, false},
		{"complete range", "start=2023-01-01&end=2023-01-31", 2, 2, true},
		{"open ended range", "end=2023-01-31", 2, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			f, err := filterFromQuery(q, table)
			if err != nil {
				t.Fatalf("filterFromQuery() error = %v", err)
			}
			if len(f.Categories) != tt.wantCategories {
				t.Errorf("categories = %v, want %d", f.Categories, tt.wantCategories)
			}
			if len(f.Malls) != tt.wantMalls {
				t.Errorf("malls = %v, want %d", f.Malls, tt.wantMalls)
			}
			if len(f.Genders) != 2 {
				t.Errorf("genders = %v, want the whole domain", f.Genders)
			}
			if f.Dates.Complete() != tt.wantComplete {
				t.Errorf("Dates.Complete() = %v, want %v", f.Dates.Complete(), tt.wantComplete)
			}
		})
	}
}

func TestFilterSignals_Filter(t *testing.T) {
	table := filterTable()

	f, err := FilterSignals{
		Start:      "2023-01-01",
		End:        "2023-06-30",
		Categories: []string{"Books"},
		Genders:    []string{},
	}.Filter(table)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}

	if !f.Categories.Contains("Books") || f.Categories.Contains("Clothing") {
		t.Errorf("categories = %v", f.Categories)
	}
	if len(f.Malls) != 2 {
		t.Errorf("untouched malls should select the whole domain, got %v", f.Malls)
	}
	if len(f.Genders) != 0 {
		t.Errorf("empty genders should select nothing, got %v", f.Genders)
	}
	want := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)
	if !f.Dates.End.Equal(want) {
		t.Errorf("End = %v, want %v", f.Dates.End, want)
	}
}

func TestParseDateRange_Invalid(t *testing.T) {
	tests := []struct{ start, end string }{
		{"2023/01/01", ""},
		{"", "31-01-2023"},
		{"2023-02-30", "2023-03-01"},
	}
	for _, tt := range tests {
		if _, err := parseDateRange(tt.start, tt.end); err == nil {
			t.Errorf("parseDateRange(%q, %q) expected an error", tt.start, tt.end)
		}
	}
}
