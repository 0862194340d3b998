package services

import (
	"encoding/json"
	"math"

	"retail-dashboard/internal/dataset"
)

// Float encodes NaN and infinities as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Metric is one KPI: the filtered value, the same metric over the whole
// table, and the value as a percentage of that baseline.
type Metric struct {
	Value          Float `json:"value"`
	Baseline       Float `json:"baseline"`
	PercentOfTotal Float `json:"percent_of_total"`
	Delta          Float `json:"delta"`
}

type KPIs struct {
	TotalRevenue        Metric `json:"total_revenue"`
	Transactions        Metric `json:"transactions"`
	AvgTransaction      Metric `json:"avg_transaction"`
	UniqueCustomers     Metric `json:"unique_customers"`
	ItemsPerTransaction Metric `json:"items_per_transaction"`
}

type summary struct {
	revenue   float64
	count     int
	customers int
	quantity  int
}

func summarize(t *dataset.Table) summary {
	var s summary
	seen := make(map[string]struct{})
	rows := t.Rows()
	for i := range rows {
		s.revenue += rows[i].TotalAmount
		s.quantity += rows[i].Quantity
		seen[rows[i].CustomerID] = struct{}{}
	}
	s.count = len(rows)
	s.customers = len(seen)
	return s
}

func (s summary) meanTransaction() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.revenue / float64(s.count)
}

func (s summary) meanItems() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return float64(s.quantity) / float64(s.count)
}

// ComputeKPIs reports the KPI row of filtered against base.
func ComputeKPIs(base, filtered *dataset.Table) KPIs {
	b := summarize(base)
	f := summarize(filtered)

	return KPIs{
		TotalRevenue:        metric(f.revenue, b.revenue),
		Transactions:        metric(float64(f.count), float64(b.count)),
		AvgTransaction:      metric(f.meanTransaction(), b.meanTransaction()),
		UniqueCustomers:     metric(float64(f.customers), float64(b.customers)),
		ItemsPerTransaction: metric(f.meanItems(), b.meanItems()),
	}
}

func metric(value, baseline float64) Metric {
	return Metric{
		Value:          Float(value),
		Baseline:       Float(baseline),
		PercentOfTotal: Float(PercentOf(value, baseline)),
		Delta:          Float(value - baseline),
	}
}

// PercentOf returns part/whole*100, or 0 when either side is undefined or whole is 0.
func PercentOf(part, whole float64) float64 {
	if whole == 0 || math.IsNaN(part) || math.IsNaN(whole) || math.IsInf(whole, 0) {
		return 0
	}
	return part / whole * 100
}
