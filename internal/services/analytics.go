package services

import (
	"cmp"
	"math"
	"slices"

	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/models"
)

const DefaultAgeBins = 30

// Weekdays is the fixed display order of the day-of-week view.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// groupBy sums revenue and counts rows per key, returning groups in key order.
// Rows for which key reports false are skipped.
func groupBy(t *dataset.Table, key func(*models.Transaction) (string, bool)) []models.GroupRevenue {
	groups := make(map[string]*models.GroupRevenue)
	rows := t.Rows()
	for i := range rows {
		k, ok := key(&rows[i])
		if !ok {
			continue
		}
		g := groups[k]
		if g == nil {
			g = &models.GroupRevenue{Key: k}
			groups[k] = g
		}
		g.Revenue += rows[i].TotalAmount
		g.Transactions++
	}

	result := make([]models.GroupRevenue, 0, len(groups))
	for _, g := range groups {
		result = append(result, *g)
	}
	slices.SortFunc(result, func(a, b models.GroupRevenue) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return result
}

func byCategory(tx *models.Transaction) (string, bool) { return tx.Category, true }
func byMall(tx *models.Transaction) (string, bool)     { return tx.ShoppingMall, true }
func byPayment(tx *models.Transaction) (string, bool)  { return tx.PaymentMethod, true }
func byGender(tx *models.Transaction) (string, bool)   { return tx.Gender, true }
func byWeekday(tx *models.Transaction) (string, bool)  { return tx.DayOfWeek, tx.HasDate }

// sortByRevenueDesc keeps key order between equal revenues.
func sortByRevenueDesc(groups []models.GroupRevenue) {
	slices.SortStableFunc(groups, func(a, b models.GroupRevenue) int {
		return cmp.Compare(b.Revenue, a.Revenue)
	})
}

func sortByRevenueAsc(groups []models.GroupRevenue) {
	slices.SortStableFunc(groups, func(a, b models.GroupRevenue) int {
		return cmp.Compare(a.Revenue, b.Revenue)
	})
}

// MonthlyRevenue sums revenue per YYYY-MM, oldest month first. Undated rows are skipped.
func MonthlyRevenue(t *dataset.Table) []models.MonthlyRevenue {
	groups := groupBy(t, func(tx *models.Transaction) (string, bool) {
		return tx.MonthYear, tx.HasDate
	})
	result := make([]models.MonthlyRevenue, 0, len(groups))
	for _, g := range groups {
		result = append(result, models.MonthlyRevenue{Month: g.Key, Revenue: g.Revenue})
	}
	return result
}

// RevenueByCategory is sorted by revenue, highest first.
func RevenueByCategory(t *dataset.Table) []models.GroupRevenue {
	groups := groupBy(t, byCategory)
	sortByRevenueDesc(groups)
	return groups
}

// RevenueByMall is sorted by revenue, lowest first, so a horizontal bar chart
// drawn bottom-up shows the best mall on top.
func RevenueByMall(t *dataset.Table) []models.GroupRevenue {
	groups := groupBy(t, byMall)
	sortByRevenueAsc(groups)
	return groups
}

// TopMalls is sorted by revenue, highest first.
func TopMalls(t *dataset.Table) []models.GroupRevenue {
	groups := groupBy(t, byMall)
	sortByRevenueDesc(groups)
	return groups
}

// RevenueByPayment keeps payment methods in key order.
func RevenueByPayment(t *dataset.Table) []models.GroupRevenue {
	return groupBy(t, byPayment)
}

// GenderBreakdown pairs revenue and transaction count per gender.
func GenderBreakdown(t *dataset.Table) []models.GroupRevenue {
	return groupBy(t, byGender)
}

// AgeHistogram splits the observed age span into equal-width bins; the last
// bin is closed on the right.
func AgeHistogram(t *dataset.Table, bins int) []models.HistogramBin {
	result := make([]models.HistogramBin, 0, bins)
	rows := t.Rows()
	if len(rows) == 0 || bins <= 0 {
		return result
	}

	lo, hi := rows[0].Age, rows[0].Age
	for i := range rows {
		lo = min(lo, rows[i].Age)
		hi = max(hi, rows[i].Age)
	}

	if lo == hi {
		return append(result, models.HistogramBin{Lower: float64(lo), Upper: float64(lo + 1), Count: len(rows)})
	}

	width := float64(hi-lo) / float64(bins)
	for i := range bins {
		result = append(result, models.HistogramBin{
			Lower: float64(lo) + float64(i)*width,
			Upper: float64(lo) + float64(i+1)*width,
		})
	}
	for i := range rows {
		idx := int(float64(rows[i].Age-lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		result[idx].Count++
	}
	return result
}

// CategoryMallMatrix pivots revenue by category (rows) and mall (columns),
// filling absent combinations with zero.
func CategoryMallMatrix(t *dataset.Table) models.Matrix {
	m := models.Matrix{
		Rows:    t.Categories(),
		Columns: t.Malls(),
	}
	rowIdx := indexOf(m.Rows)
	colIdx := indexOf(m.Columns)

	m.Values = make([][]float64, len(m.Rows))
	for i := range m.Values {
		m.Values[i] = make([]float64, len(m.Columns))
	}

	rows := t.Rows()
	for i := range rows {
		m.Values[rowIdx[rows[i].Category]][colIdx[rows[i].ShoppingMall]] += rows[i].TotalAmount
	}
	return m
}

// DayOfWeekRevenue reports revenue, count and mean per weekday, Monday first.
// Weekdays without transactions are omitted.
func DayOfWeekRevenue(t *dataset.Table) []models.DayRevenue {
	groups := groupBy(t, byWeekday)
	found := make(map[string]models.GroupRevenue, len(groups))
	for _, g := range groups {
		found[g.Key] = g
	}

	result := make([]models.DayRevenue, 0, len(groups))
	for _, day := range Weekdays {
		g, ok := found[day]
		if !ok {
			continue
		}
		result = append(result, models.DayRevenue{
			Day:            day,
			Revenue:        g.Revenue,
			Transactions:   g.Transactions,
			AvgTransaction: g.Revenue / float64(g.Transactions),
		})
	}
	return result
}

// DailyRevenue reports revenue, transactions and distinct customers per date.
func DailyRevenue(t *dataset.Table) []models.DailyRevenue {
	type acc struct {
		revenue   float64
		count     int
		customers map[string]struct{}
	}
	days := make(map[string]*acc)
	rows := t.Rows()
	for i := range rows {
		if !rows[i].HasDate {
			continue
		}
		key := rows[i].InvoiceDate.Format("2006-01-02")
		a := days[key]
		if a == nil {
			a = &acc{customers: make(map[string]struct{})}
			days[key] = a
		}
		a.revenue += rows[i].TotalAmount
		a.count++
		a.customers[rows[i].CustomerID] = struct{}{}
	}

	result := make([]models.DailyRevenue, 0, len(days))
	for date, a := range days {
		result = append(result, models.DailyRevenue{
			Date:         date,
			Revenue:      a.revenue,
			Transactions: a.count,
			Customers:    len(a.customers),
		})
	}
	slices.SortFunc(result, func(a, b models.DailyRevenue) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return result
}

// Insights names the leading category and mall by revenue and the payment
// method used most often. Empty tables yield empty names.
func Insights(t *dataset.Table) models.Insights {
	var in models.Insights
	if cats := RevenueByCategory(t); len(cats) > 0 {
		in.TopCategory = cats[0].Key
	}
	if malls := TopMalls(t); len(malls) > 0 {
		in.TopMall = malls[0].Key
	}

	payments := RevenueByPayment(t)
	best := -1
	for _, p := range payments {
		if p.Transactions > best {
			best = p.Transactions
			in.PreferredPayment = p.Key
		}
	}
	return in
}

// RecentTransactions returns up to limit rows, newest first, undated rows last.
func RecentTransactions(t *dataset.Table, limit int) []models.Transaction {
	rows := slices.Clone(t.Rows())
	slices.SortStableFunc(rows, func(a, b models.Transaction) int {
		switch {
		case a.HasDate && !b.HasDate:
			return -1
		case !a.HasDate && b.HasDate:
			return 1
		default:
			return b.InvoiceDate.Compare(a.InvoiceDate)
		}
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// Revenue is the sum of TotalAmount over t.
func Revenue(t *dataset.Table) float64 {
	var sum float64
	rows := t.Rows()
	for i := range rows {
		sum += rows[i].TotalAmount
	}
	return sum
}

// Mean returns NaN for an empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func indexOf(keys []string) map[string]int {
	idx := make(map[string]int, len(keys))
	for i, k := range keys {
		idx[k] = i
	}
	return idx
}
