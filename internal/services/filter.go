package services

import (
	"time"

	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/models"
)

// Set is a membership set over one categorical dimension. A nil or empty Set
// matches nothing.
type Set map[string]struct{}

func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s Set) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// DateRange is an inclusive calendar-day range. It only takes part in
// filtering when both ends are set and End is not before Start.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (d DateRange) Complete() bool {
	return !d.Start.IsZero() && !d.End.IsZero() && !day(d.End).Before(day(d.Start))
}

func (d DateRange) contains(t time.Time) bool {
	t = day(t)
	return !t.Before(day(d.Start)) && !t.After(day(d.End))
}

// Filter is the conjunction of constraints the user currently has applied.
type Filter struct {
	Dates      DateRange
	Categories Set
	Malls      Set
	Genders    Set
}

// Unfiltered selects every category, mall and gender of t with no date bound.
func Unfiltered(t *dataset.Table) Filter {
	return Filter{
		Categories: NewSet(t.Categories()...),
		Malls:      NewSet(t.Malls()...),
		Genders:    NewSet(t.Genders()...),
	}
}

// Matches reports whether tx satisfies every predicate of f.
func (f Filter) Matches(tx *models.Transaction) bool {
	if f.Dates.Complete() {
		if !tx.HasDate || !f.Dates.contains(tx.InvoiceDate) {
			return false
		}
	}
	return f.Categories.Contains(tx.Category) &&
		f.Malls.Contains(tx.ShoppingMall) &&
		f.Genders.Contains(tx.Gender)
}

// Apply returns the rows of t matching f as a new table. t is not modified.
func Apply(t *dataset.Table, f Filter) *dataset.Table {
	rows := t.Rows()
	out := make([]models.Transaction, 0, len(rows))
	for i := range rows {
		if f.Matches(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return dataset.NewTable(out)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
