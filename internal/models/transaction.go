package models

import "time"

// Transaction is one purchase event plus the fields derived from it at load time.
type Transaction struct {
	InvoiceNo     string
	CustomerID    string
	Gender        string
	Age           int
	Category      string
	Quantity      int
	Price         float64
	PaymentMethod string
	InvoiceDate   time.Time
	HasDate       bool
	ShoppingMall  string

	TotalAmount float64
	Year        int
	Month       int
	MonthYear   string
	DayOfWeek   string
}

// Derive fills the computed fields. Rows without a parsed date keep empty
// calendar fields so they drop out of every date-dependent view.
func (t *Transaction) Derive() {
	t.TotalAmount = float64(t.Quantity) * t.Price
	if !t.HasDate {
		t.Year, t.Month, t.MonthYear, t.DayOfWeek = 0, 0, "", ""
		return
	}
	t.Year = t.InvoiceDate.Year()
	t.Month = int(t.InvoiceDate.Month())
	t.MonthYear = t.InvoiceDate.Format("2006-01")
	t.DayOfWeek = t.InvoiceDate.Weekday().String()
}

type GroupRevenue struct {
	Key          string  `json:"key"`
	Revenue      float64 `json:"revenue"`
	Transactions int     `json:"transactions"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

type DayRevenue struct {
	Day            string  `json:"day"`
	Revenue        float64 `json:"revenue"`
	Transactions   int     `json:"transactions"`
	AvgTransaction float64 `json:"avg_transaction"`
}

type DailyRevenue struct {
	Date         string  `json:"date"`
	Revenue      float64 `json:"revenue"`
	Transactions int     `json:"transactions"`
	Customers    int     `json:"customers"`
}

// Matrix is a zero-filled two-dimensional pivot; Values[i][j] belongs to Rows[i] and Columns[j].
type Matrix struct {
	Rows    []string    `json:"rows"`
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

type Insights struct {
	TopCategory      string `json:"top_category"`
	TopMall          string `json:"top_mall"`
	PreferredPayment string `json:"preferred_payment"`
}
