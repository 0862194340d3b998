package handlers

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/services"
)

const dateLayout = "2006-01-02"

// FilterSignals is the filter state the dashboard page keeps in Datastar
// signals. A nil slice means the widget was never touched and selects the
// whole domain; an empty slice selects nothing.
type FilterSignals struct {
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Categories []string `json:"categories"`
	Malls      []string `json:"malls"`
	Genders    []string `json:"genders"`
}

func (s FilterSignals) Filter(t *dataset.Table) (services.Filter, error) {
	dates, err := parseDateRange(s.Start, s.End)
	if err != nil {
		return services.Filter{}, err
	}
	return services.Filter{
		Dates:      dates,
		Categories: selection(s.Categories, t.Categories()),
		Malls:      selection(s.Malls, t.Malls()),
		Genders:    selection(s.Genders, t.Genders()),
	}, nil
}

// filterFromQuery reads start, end and repeated category, mall and gender
// parameters. An absent parameter selects the whole domain; a parameter
// present only with empty values selects nothing.
func filterFromQuery(q url.Values, t *dataset.Table) (services.Filter, error) {
	return FilterSignals{
		Start:      q.Get("start"),
		End:        q.Get("end"),
		Categories: queryList(q, "category"),
		Malls:      queryList(q, "mall"),
		Genders:    queryList(q, "gender"),
	}.Filter(t)
}

func queryList(q url.Values, key string) []string {
	values, ok := q[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func selection(chosen, domain []string) services.Set {
	if chosen == nil {
		return services.NewSet(domain...)
	}
	return services.NewSet(chosen...)
}

// parseDateRange rejects malformed dates. A range missing one end is kept
// as is and ignored by the filter.
func parseDateRange(start, end string) (services.DateRange, error) {
	var dr services.DateRange
	var err error
	if start != "" {
		if dr.Start, err = time.Parse(dateLayout, start); err != nil {
			return dr, errors.ValidationField("start", fmt.Sprintf("invalid start date %q, expected YYYY-MM-DD", start))
		}
	}
	if end != "" {
		if dr.End, err = time.Parse(dateLayout, end); err != nil {
			return dr, errors.ValidationField("end", fmt.Sprintf("invalid end date %q, expected YYYY-MM-DD", end))
		}
	}
	return dr, nil
}
