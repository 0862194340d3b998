// Package format renders numbers the way the dashboard and the assistant show them.
package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const notAvailable = "n/a"

// Money renders v with two decimals and thousands separators, e.g. 12,345.67.
func Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return group(decimal.NewFromFloat(v).StringFixed(2))
}

// Whole renders v rounded to an integer with thousands separators.
func Whole(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return group(decimal.NewFromFloat(v).StringFixed(0))
}

func Int(n int) string {
	return group(strconv.Itoa(n))
}

// Percent renders a percentage with one decimal.
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(1) + "%"
}

// Fixed renders v with the given number of decimals and no grouping.
func Fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

func group(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}
