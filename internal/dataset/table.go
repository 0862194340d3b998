package dataset

import (
	"slices"
	"time"

	"retail-dashboard/internal/models"
)

// Table is an immutable set of transactions together with the categorical
// domains discovered in it. Callers must not modify the slice returned by Rows.
type Table struct {
	rows         []models.Transaction
	categories   []string
	malls        []string
	payments     []string
	genders      []string
	missingDates int
}

func NewTable(rows []models.Transaction) *Table {
	t := &Table{rows: rows}

	categories := make(map[string]struct{})
	malls := make(map[string]struct{})
	payments := make(map[string]struct{})
	genders := make(map[string]struct{})

	for i := range rows {
		categories[rows[i].Category] = struct{}{}
		malls[rows[i].ShoppingMall] = struct{}{}
		payments[rows[i].PaymentMethod] = struct{}{}
		genders[rows[i].Gender] = struct{}{}
		if !rows[i].HasDate {
			t.missingDates++
		}
	}

	t.categories = sortedKeys(categories)
	t.malls = sortedKeys(malls)
	t.payments = sortedKeys(payments)
	t.genders = sortedKeys(genders)
	return t
}

func (t *Table) Rows() []models.Transaction { return t.rows }

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) Categories() []string { return t.categories }

func (t *Table) Malls() []string { return t.malls }

func (t *Table) PaymentMethods() []string { return t.payments }

func (t *Table) Genders() []string { return t.genders }

// MissingDates reports how many rows carry no parsed invoice date.
func (t *Table) MissingDates() int { return t.missingDates }

// DateBounds returns the earliest and latest invoice dates. ok is false when
// no row has a date.
func (t *Table) DateBounds() (minDate, maxDate time.Time, ok bool) {
	for i := range t.rows {
		if !t.rows[i].HasDate {
			continue
		}
		d := t.rows[i].InvoiceDate
		if !ok {
			minDate, maxDate, ok = d, d, true
			continue
		}
		if d.Before(minDate) {
			minDate = d
		}
		if d.After(maxDate) {
			maxDate = d
		}
	}
	return minDate, maxDate, ok
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
