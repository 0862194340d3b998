package assistant

import (
	"math"

	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/services"
)

// Summary is the compact aggregate view handed to the completion service.
// Daily, category, mall and payment entries are positional arrays:
//
//	daily:      [revenue, transactions, customers]
//	categories: [revenue, avg_transaction, transactions, items]
//	malls:      [revenue, transactions]
//	payments:   [revenue, transactions]
type Summary struct {
	Overview     Overview             `json:"overview"`
	Daily        map[string][]float64 `json:"daily"`
	Categories   map[string][]float64 `json:"categories"`
	Malls        map[string][]float64 `json:"malls"`
	Payments     map[string][]float64 `json:"payments"`
	Demographics Demographics         `json:"demographics"`
}

type Overview struct {
	TotalRevenue      float64  `json:"total_revenue"`
	TotalTransactions int      `json:"total_transactions"`
	UniqueCustomers   int      `json:"unique_customers"`
	DateRange         []string `json:"date_range"`
}

type Demographics struct {
	AvgAge services.Float `json:"avg_age"`
	Gender map[string]int `json:"gender"`
}

// Summarize aggregates t into a Summary. Amounts are rounded to cents.
func Summarize(t *dataset.Table) Summary {
	s := Summary{
		Daily:      make(map[string][]float64),
		Categories: make(map[string][]float64),
		Malls:      make(map[string][]float64),
		Payments:   make(map[string][]float64),
		Demographics: Demographics{
			Gender: make(map[string]int),
		},
	}

	customers := make(map[string]struct{})
	items := make(map[string]int)
	ages := make([]float64, 0, t.Len())
	rows := t.Rows()
	for i := range rows {
		s.Overview.TotalRevenue += rows[i].TotalAmount
		customers[rows[i].CustomerID] = struct{}{}
		items[rows[i].Category] += rows[i].Quantity
		ages = append(ages, float64(rows[i].Age))
		s.Demographics.Gender[rows[i].Gender]++
	}
	s.Overview.TotalTransactions = len(rows)
	s.Overview.UniqueCustomers = len(customers)
	s.Demographics.AvgAge = services.Float(services.Mean(ages))

	if lo, hi, ok := t.DateBounds(); ok {
		s.Overview.DateRange = []string{lo.Format("2006-01-02"), hi.Format("2006-01-02")}
	}

	for _, d := range services.DailyRevenue(t) {
		s.Daily[d.Date] = []float64{cents(d.Revenue), float64(d.Transactions), float64(d.Customers)}
	}
	for _, g := range services.RevenueByCategory(t) {
		s.Categories[g.Key] = []float64{
			cents(g.Revenue),
			cents(g.Revenue / float64(g.Transactions)),
			float64(g.Transactions),
			float64(items[g.Key]),
		}
	}
	for _, g := range services.TopMalls(t) {
		s.Malls[g.Key] = []float64{cents(g.Revenue), float64(g.Transactions)}
	}
	for _, g := range services.RevenueByPayment(t) {
		s.Payments[g.Key] = []float64{cents(g.Revenue), float64(g.Transactions)}
	}
	return s
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}
