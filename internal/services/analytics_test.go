package services

import (
	"math"
	"testing"
	"time"

	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/models"
)

func tx(id, customer, category, mall, gender, payment string, qty int, price float64, date string, age int) models.Transaction {
	t := models.Transaction{
		InvoiceNo:     id,
		CustomerID:    customer,
		Category:      category,
		ShoppingMall:  mall,
		Gender:        gender,
		PaymentMethod: payment,
		Quantity:      qty,
		Price:         price,
		Age:           age,
	}
	t.InvoiceDate, t.HasDate = dataset.ParseDate(date)
	t.Derive()
	return t
}

// createTestTable spans two categories, three malls and both genders over ten rows.
func createTestTable() *dataset.Table {
	return dataset.NewTable([]models.Transaction{
		tx("I01", "C1", "Clothing", "Kanyon", "Female", "Cash", 2, 300.08, "2022-01-03", 21),   // Monday
		tx("I02", "C2", "Books", "Kanyon", "Male", "Credit Card", 1, 15.15, "2022-01-04", 35),  // Tuesday
		tx("I03", "C3", "Clothing", "Metrocity", "Female", "Cash", 5, 1500.4, "2022-01-09", 50), // Sunday
		tx("I04", "C1", "Books", "Forum", "Female", "Debit Card", 3, 45.45, "2022-02-07", 21),  // Monday
		tx("I05", "C4", "Clothing", "Forum", "Male", "Cash", 1, 600.16, "2022-02-12", 64),      // Saturday
		tx("I06", "C5", "Books", "Metrocity", "Male", "Credit Card", 4, 60.6, "2022-02-15", 18), // Tuesday
		tx("I07", "C6", "Clothing", "Kanyon", "Male", "Cash", 3, 900.24, "2022-03-02", 40),     // Wednesday
		tx("I08", "C7", "Books", "Kanyon", "Female", "Cash", 2, 30.3, "2022-03-04", 29),        // Friday
		tx("I09", "C8", "Clothing", "Metrocity", "Female", "Credit Card", 1, 300.08, "2022-03-06", 33),
		tx("I10", "C9", "Books", "Forum", "Male", "Cash", 5, 75.75, "bad-date", 45),
	})
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestApply_CategoryFilter(t *testing.T) {
	base := createTestTable()
	f := Unfiltered(base)
	f.Categories = NewSet("Clothing")

	got := Apply(base, f)

	if got.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", got.Len())
	}
	var want float64
	for _, r := range base.Rows() {
		if r.Category == "Clothing" {
			want += float64(r.Quantity) * r.Price
		}
	}
	for _, r := range got.Rows() {
		if r.Category != "Clothing" {
			t.Errorf("unexpected category %q", r.Category)
		}
	}
	if Revenue(got) != want {
		t.Errorf("Revenue() = %v, want %v", Revenue(got), want)
	}
}

func TestApply_Conjunction(t *testing.T) {
	base := createTestTable()
	f := Filter{
		Dates: DateRange{
			Start: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2022, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		Categories: NewSet("Clothing", "Books"),
		Malls:      NewSet("Kanyon", "Forum"),
		Genders:    NewSet("Female"),
	}

	got := Apply(base, f)

	for _, r := range got.Rows() {
		if !f.Matches(&r) {
			t.Errorf("row %s does not satisfy the filter", r.InvoiceNo)
		}
	}
	var expected int
	for _, r := range base.Rows() {
		if f.Matches(&r) {
			expected++
		}
	}
	if got.Len() != expected || expected != 2 {
		t.Errorf("Len() = %d, expected %d (want 2)", got.Len(), expected)
	}

	again := Apply(got, f)
	if again.Len() != got.Len() {
		t.Errorf("filtering is not idempotent: %d != %d", again.Len(), got.Len())
	}
}

func TestApply_DateRangeInclusiveAndUndatedRows(t *testing.T) {
	base := createTestTable()
	f := Unfiltered(base)
	f.Dates = DateRange{
		Start: time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2022, 1, 9, 0, 0, 0, 0, time.UTC),
	}

	got := Apply(base, f)
	if got.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (both bounds inclusive)", got.Len())
	}
	for _, r := range got.Rows() {
		if !r.HasDate {
			t.Error("undated rows must not pass a date range")
		}
	}
}

func TestApply_PartialDateRangeIsIgnored(t *testing.T) {
	base := createTestTable()

	tests := []struct {
		name  string
		dates DateRange
	}{
		{"start only", DateRange{Start: time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)}},
		{"end only", DateRange{End: time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC)}},
		{"reversed", DateRange{
			Start: time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Unfiltered(base)
			f.Dates = tt.dates
			if got := Apply(base, f); got.Len() != base.Len() {
				t.Errorf("Len() = %d, want %d", got.Len(), base.Len())
			}
		})
	}
}

func TestApply_EmptySetMatchesNothing(t *testing.T) {
	base := createTestTable()
	f := Unfiltered(base)
	f.Categories = Set{}

	got := Apply(base, f)
	if got.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", got.Len())
	}

	k := ComputeKPIs(base, got)
	if k.TotalRevenue.Value != 0 || k.Transactions.Value != 0 {
		t.Errorf("empty KPIs = %+v", k)
	}
	for name, m := range map[string]Metric{
		"revenue":      k.TotalRevenue,
		"transactions": k.Transactions,
		"avg":          k.AvgTransaction,
		"customers":    k.UniqueCustomers,
		"items":        k.ItemsPerTransaction,
	} {
		if m.PercentOfTotal != 0 {
			t.Errorf("%s PercentOfTotal = %v, want 0", name, m.PercentOfTotal)
		}
	}
	if !math.IsNaN(float64(k.AvgTransaction.Value)) || !math.IsNaN(float64(k.ItemsPerTransaction.Value)) {
		t.Error("empty means should be NaN")
	}

	// Every aggregation must cope with zero rows.
	if len(MonthlyRevenue(got)) != 0 || len(RevenueByCategory(got)) != 0 || len(RevenueByMall(got)) != 0 ||
		len(RevenueByPayment(got)) != 0 || len(AgeHistogram(got, DefaultAgeBins)) != 0 ||
		len(GenderBreakdown(got)) != 0 || len(DayOfWeekRevenue(got)) != 0 || len(DailyRevenue(got)) != 0 {
		t.Error("aggregations over an empty table should be empty")
	}
	if m := CategoryMallMatrix(got); len(m.Values) != 0 {
		t.Errorf("CategoryMallMatrix() = %+v", m)
	}
	if in := Insights(got); in != (models.Insights{}) {
		t.Errorf("Insights() = %+v", in)
	}
}

func TestComputeKPIs_UnfilteredIsHundredPercent(t *testing.T) {
	base := createTestTable()
	k := ComputeKPIs(base, Apply(base, Unfiltered(base)))

	for name, m := range map[string]Metric{
		"revenue":      k.TotalRevenue,
		"transactions": k.Transactions,
		"avg":          k.AvgTransaction,
		"customers":    k.UniqueCustomers,
		"items":        k.ItemsPerTransaction,
	} {
		if !almostEqual(float64(m.PercentOfTotal), 100) {
			t.Errorf("%s PercentOfTotal = %v, want 100", name, m.PercentOfTotal)
		}
		if !almostEqual(float64(m.Delta), 0) {
			t.Errorf("%s Delta = %v, want 0", name, m.Delta)
		}
	}
	if k.Transactions.Value != 10 || k.UniqueCustomers.Value != 9 {
		t.Errorf("transactions=%v customers=%v", k.Transactions.Value, k.UniqueCustomers.Value)
	}
	if !almostEqual(float64(k.ItemsPerTransaction.Value), 2.7) {
		t.Errorf("ItemsPerTransaction = %v, want 2.7", k.ItemsPerTransaction.Value)
	}
}

func TestMetric_MarshalNaNAsNull(t *testing.T) {
	b, err := Float(math.NaN()).MarshalJSON()
	if err != nil || string(b) != "null" {
		t.Errorf("MarshalJSON(NaN) = %s, %v", b, err)
	}
	b, err = Float(1.5).MarshalJSON()
	if err != nil || string(b) != "1.5" {
		t.Errorf("MarshalJSON(1.5) = %s, %v", b, err)
	}
}

func TestRevenueByCategory_Partition(t *testing.T) {
	base := createTestTable()
	filters := []Filter{
		Unfiltered(base),
		{Categories: NewSet("Books"), Malls: NewSet(base.Malls()...), Genders: NewSet("Male")},
		{Categories: NewSet(base.Categories()...), Malls: NewSet("Kanyon"), Genders: NewSet(base.Genders()...)},
	}

	for _, f := range filters {
		view := Apply(base, f)
		var sum float64
		for _, g := range RevenueByCategory(view) {
			sum += g.Revenue
		}
		if !almostEqual(sum, Revenue(view)) {
			t.Errorf("category sum %v != total %v", sum, Revenue(view))
		}
	}
}

func TestRevenueByCategory_SortedDescending(t *testing.T) {
	groups := RevenueByCategory(createTestTable())
	if len(groups) != 2 || groups[0].Key != "Clothing" {
		t.Fatalf("RevenueByCategory() = %+v", groups)
	}
	if groups[0].Revenue < groups[1].Revenue {
		t.Error("should be sorted by revenue descending")
	}
}

func TestRevenueByMall_SortedAscending(t *testing.T) {
	groups := RevenueByMall(createTestTable())
	for i := 1; i < len(groups); i++ {
		if groups[i-1].Revenue > groups[i].Revenue {
			t.Errorf("RevenueByMall() not ascending: %+v", groups)
		}
	}
	top := TopMalls(createTestTable())
	if top[0].Key != groups[len(groups)-1].Key {
		t.Errorf("TopMalls()[0] = %q, want %q", top[0].Key, groups[len(groups)-1].Key)
	}
}

func TestMonthlyRevenue(t *testing.T) {
	months := MonthlyRevenue(createTestTable())
	want := []string{"2022-01", "2022-02", "2022-03"}
	if len(months) != len(want) {
		t.Fatalf("MonthlyRevenue() = %+v", months)
	}
	for i, m := range months {
		if m.Month != want[i] {
			t.Errorf("months[%d] = %q, want %q", i, m.Month, want[i])
		}
	}
	if !almostEqual(months[0].Revenue, 2*300.08+15.15+5*1500.4) {
		t.Errorf("January revenue = %v", months[0].Revenue)
	}
}

func TestDayOfWeekRevenue_CalendarOrder(t *testing.T) {
	rows := createTestTable().Rows()
	// Reverse the input so data order cannot leak into the result.
	reversed := make([]models.Transaction, len(rows))
	for i := range rows {
		reversed[len(rows)-1-i] = rows[i]
	}

	days := DayOfWeekRevenue(dataset.NewTable(reversed))
	want := []string{"Monday", "Tuesday", "Wednesday", "Friday", "Saturday", "Sunday"}
	if len(days) != len(want) {
		t.Fatalf("DayOfWeekRevenue() = %+v", days)
	}
	for i, d := range days {
		if d.Day != want[i] {
			t.Errorf("days[%d] = %q, want %q", i, d.Day, want[i])
		}
	}
	if days[0].Transactions != 2 || !almostEqual(days[0].AvgTransaction, days[0].Revenue/2) {
		t.Errorf("Monday = %+v", days[0])
	}
}

func TestAgeHistogram(t *testing.T) {
	table := createTestTable()
	bins := AgeHistogram(table, DefaultAgeBins)
	if len(bins) != DefaultAgeBins {
		t.Fatalf("len(bins) = %d", len(bins))
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != table.Len() {
		t.Errorf("bin counts sum to %d, want %d", total, table.Len())
	}
	if bins[0].Lower != 18 || !almostEqual(bins[len(bins)-1].Upper, 64) || bins[len(bins)-1].Count != 1 {
		t.Errorf("bins span %v..%v, last count %d", bins[0].Lower, bins[len(bins)-1].Upper, bins[len(bins)-1].Count)
	}

	single := AgeHistogram(dataset.NewTable(table.Rows()[:1]), DefaultAgeBins)
	if len(single) != 1 || single[0].Count != 1 {
		t.Errorf("single-age histogram = %+v", single)
	}
}

func TestCategoryMallMatrix_ZeroFilled(t *testing.T) {
	base := createTestTable()
	f := Unfiltered(base)
	f.Malls = NewSet("Kanyon", "Forum")
	f.Genders = NewSet("Male")
	view := Apply(base, f)

	m := CategoryMallMatrix(view)
	if len(m.Rows) != 2 || len(m.Columns) != 2 {
		t.Fatalf("matrix shape %dx%d", len(m.Rows), len(m.Columns))
	}
	var sum float64
	for _, row := range m.Values {
		if len(row) != len(m.Columns) {
			t.Fatalf("ragged row %v", row)
		}
		for _, v := range row {
			sum += v
		}
	}
	if !almostEqual(sum, Revenue(view)) {
		t.Errorf("matrix sum %v != revenue %v", sum, Revenue(view))
	}
}

func TestGenderBreakdownAndPayment(t *testing.T) {
	genders := GenderBreakdown(createTestTable())
	if len(genders) != 2 || genders[0].Key != "Female" || genders[0].Transactions != 5 {
		t.Errorf("GenderBreakdown() = %+v", genders)
	}

	payments := RevenueByPayment(createTestTable())
	if len(payments) != 3 || payments[0].Key != "Cash" || payments[0].Transactions != 6 {
		t.Errorf("RevenueByPayment() = %+v", payments)
	}
}

func TestInsights(t *testing.T) {
	in := Insights(createTestTable())
	if in.TopCategory != "Clothing" || in.PreferredPayment != "Cash" || in.TopMall != "Metrocity" {
		t.Errorf("Insights() = %+v", in)
	}
}

func TestRecentTransactions(t *testing.T) {
	recent := RecentTransactions(createTestTable(), 100)
	if len(recent) != 10 {
		t.Fatalf("len = %d", len(recent))
	}
	if recent[0].InvoiceNo != "I09" {
		t.Errorf("newest = %s, want I09", recent[0].InvoiceNo)
	}
	if recent[len(recent)-1].HasDate {
		t.Error("undated rows should come last")
	}
	if got := RecentTransactions(createTestTable(), 3); len(got) != 3 {
		t.Errorf("limit not applied: %d", len(got))
	}
}

func TestDailyRevenue(t *testing.T) {
	daily := DailyRevenue(createTestTable())
	if len(daily) != 9 {
		t.Fatalf("len = %d, want 9 dated days", len(daily))
	}
	if daily[0].Date != "2022-01-03" || daily[0].Customers != 1 {
		t.Errorf("first day = %+v", daily[0])
	}
}

func BenchmarkApply(b *testing.B) {
	rows := make([]models.Transaction, 0, 10000)
	base := createTestTable().Rows()
	for i := 0; i < 1000; i++ {
		rows = append(rows, base...)
	}
	table := dataset.NewTable(rows)
	f := Unfiltered(table)
	f.Categories = NewSet("Books")

	b.ResetTimer()
	for b.Loop() {
		_ = Apply(table, f)
	}
}
