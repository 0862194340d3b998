package assistant

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/format"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/services"
)

const apology = "I encountered an issue analyzing that question. Please try rephrasing or ask about: revenue, categories, malls, customers, payment methods, or trends."

const helpText = `I can help you analyze your sales data! Try asking questions like:

- What is my total revenue?
- Which is the top category?
- What are the customer demographics?
- Which mall performs best?
- How do customers pay?
- What's the sales trend?
- What's the average transaction value?
- Which day has the most sales?
- Compare all categories
- Tell me about [a specific category like Clothing or Technology]

Or use the filters to explore specific segments!`

var errNoData = errors.New("no transactions in the current selection")

type rule struct {
	name     string
	keywords []string
	answer   func(t *dataset.Table) (string, error)
}

// RuleBased answers by matching the question against an ordered list of
// keyword rules. The first rule with a keyword present wins.
type RuleBased struct {
	rules  []rule
	logger *slog.Logger
}

func NewRuleBased(logger *slog.Logger) *RuleBased {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleBased{
		logger: logger,
		rules: []rule{
			{"top-category", []string{"top category", "best category", "highest category", "most popular category"}, answerTopCategories},
			{"top-mall", []string{"top mall", "best mall", "highest mall", "best location", "top location"}, answerTopMalls},
			{"revenue", []string{"total revenue", "total sales", "how much revenue", "how much sales"}, answerRevenue},
			{"demographics", []string{"customer", "demographics", "age", "gender"}, answerDemographics},
			{"payment", []string{"payment", "how do customers pay", "payment method"}, answerPayments},
			{"trend", []string{"trend", "over time", "monthly", "growth"}, answerTrend},
			{"average", []string{"average transaction", "average sale", "typical purchase", "average purchase"}, answerAverage},
			{"day-of-week", []string{"day of week", "busiest day", "best day", "which day"}, answerDayOfWeek},
			{"compare", []string{"compare", "comparison", "vs", "versus"}, answerCompare},
		},
	}
}

func (rb *RuleBased) Answer(_ context.Context, question string, t *dataset.Table) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			rb.logger.Error("rule answer panicked", "panic", r, "question", question)
			answer = apology
		}
	}()

	q := strings.ToLower(question)
	name, fn := rb.match(q, t)
	text, err := fn(t)
	if err != nil {
		rb.logger.Warn("rule answer failed", "rule", name, "error", err)
		return apology
	}
	rb.logger.Debug("question answered", "rule", name)
	return text
}

// match picks the handler for the lower-cased question q.
func (rb *RuleBased) match(q string, t *dataset.Table) (string, func(*dataset.Table) (string, error)) {
	for _, r := range rb.rules {
		for _, kw := range r.keywords {
			if containsPhrase(q, kw) {
				return r.name, r.answer
			}
		}
	}
	for _, category := range t.Categories() {
		if category != "" && strings.Contains(q, strings.ToLower(category)) {
			return "category", func(t *dataset.Table) (string, error) {
				return answerCategory(t, category)
			}
		}
	}
	return "help", func(*dataset.Table) (string, error) { return helpText, nil }
}

// inflections may follow a keyword, so "customer" matches "customers" and
// "trend" matches "trending".
var inflections = []string{"s", "es", "d", "ed", "ing"}

// containsPhrase reports whether phrase occurs in s starting at a word
// boundary and ending at one, optionally after an inflection. "age" matches
// "ages" but not "average", and "vs" does not match "canvas".
func containsPhrase(s, phrase string) bool {
	for offset := 0; ; {
		i := strings.Index(s[offset:], phrase)
		if i < 0 {
			return false
		}
		start := offset + i
		if boundaryBefore(s, start) && endsWord(s, start+len(phrase)) {
			return true
		}
		offset = start + 1
	}
}

func endsWord(s string, end int) bool {
	if boundaryAfter(s, end) {
		return true
	}
	for _, suffix := range inflections {
		if strings.HasPrefix(s[end:], suffix) && boundaryAfter(s, end+len(suffix)) {
			return true
		}
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(s[i-1])
	return r >= 0x80 || !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := rune(s[i])
	return r >= 0x80 || !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func rankedRevenue(title string, groups []models.GroupRevenue, total float64, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s:**\n\n", title)
	for i, g := range groups[:min(n, len(groups))] {
		fmt.Fprintf(&b, "%d. **%s**: $%s (%s of total)\n",
			i+1, g.Key, format.Money(g.Revenue), format.Percent(services.PercentOf(g.Revenue, total)))
	}
	return b.String()
}

func answerTopCategories(t *dataset.Table) (string, error) {
	return rankedRevenue("Top Categories by Revenue", services.RevenueByCategory(t), services.Revenue(t), 3), nil
}

func answerTopMalls(t *dataset.Table) (string, error) {
	return rankedRevenue("Top Shopping Malls by Revenue", services.TopMalls(t), services.Revenue(t), 3), nil
}

func answerRevenue(t *dataset.Table) (string, error) {
	if t.Len() == 0 {
		return "", errNoData
	}
	total := services.Revenue(t)

	var b strings.Builder
	fmt.Fprintf(&b, "**Total Revenue:** $%s\n\n", format.Money(total))
	fmt.Fprintf(&b, "- **Total Transactions:** %s\n", format.Int(t.Len()))
	fmt.Fprintf(&b, "- **Average Transaction:** $%s\n", format.Money(total/float64(t.Len())))
	if lo, hi, ok := t.DateBounds(); ok {
		fmt.Fprintf(&b, "- **Date Range:** %s to %s", lo.Format("2006-01-02"), hi.Format("2006-01-02"))
	} else {
		b.WriteString("- **Date Range:** n/a")
	}
	return b.String(), nil
}

func answerDemographics(t *dataset.Table) (string, error) {
	rows := t.Rows()
	if len(rows) == 0 {
		return "", errNoData
	}

	ages := make([]float64, len(rows))
	youngest, oldest := rows[0].Age, rows[0].Age
	for i := range rows {
		ages[i] = float64(rows[i].Age)
		youngest = min(youngest, rows[i].Age)
		oldest = max(oldest, rows[i].Age)
	}

	genders := services.GenderBreakdown(t)
	slices.SortStableFunc(genders, func(a, b models.GroupRevenue) int {
		return cmp.Compare(b.Transactions, a.Transactions)
	})

	var b strings.Builder
	b.WriteString("**Customer Demographics:**\n\n")
	fmt.Fprintf(&b, "- **Average Age:** %s years\n", format.Fixed(services.Mean(ages), 1))
	b.WriteString("- **Gender Distribution:**\n")
	for _, g := range genders {
		fmt.Fprintf(&b, "  - %s: %s transactions (%s)\n",
			g.Key, format.Int(g.Transactions), format.Percent(services.PercentOf(float64(g.Transactions), float64(len(rows)))))
	}
	fmt.Fprintf(&b, "\n- **Age Range:** %d - %d years", youngest, oldest)
	return b.String(), nil
}

func answerPayments(t *dataset.Table) (string, error) {
	total := services.Revenue(t)
	payments := services.RevenueByPayment(t)
	slices.SortStableFunc(payments, func(a, b models.GroupRevenue) int {
		return cmp.Compare(b.Revenue, a.Revenue)
	})

	var b strings.Builder
	b.WriteString("**Payment Method Analysis:**\n\n")
	for _, p := range payments {
		fmt.Fprintf(&b, "- **%s:** $%s (%s) - %s transactions\n",
			p.Key, format.Money(p.Revenue), format.Percent(services.PercentOf(p.Revenue, total)), format.Int(p.Transactions))
	}
	return b.String(), nil
}

func answerTrend(t *dataset.Table) (string, error) {
	months := services.MonthlyRevenue(t)
	if len(months) == 0 {
		return "", errNoData
	}

	peak, low := months[0], months[0]
	revenues := make([]float64, len(months))
	for i, m := range months {
		revenues[i] = m.Revenue
		if m.Revenue > peak.Revenue {
			peak = m
		}
		if m.Revenue < low.Revenue {
			low = m
		}
	}

	var b strings.Builder
	b.WriteString("**Sales Trend:**\n\n")
	fmt.Fprintf(&b, "- **Peak Month:** %s with $%s\n", peak.Month, format.Money(peak.Revenue))
	fmt.Fprintf(&b, "- **Lowest Month:** %s with $%s\n", low.Month, format.Money(low.Revenue))
	fmt.Fprintf(&b, "- **Average Monthly Revenue:** $%s\n", format.Money(services.Mean(revenues)))
	return b.String(), nil
}

func answerAverage(t *dataset.Table) (string, error) {
	rows := t.Rows()
	if len(rows) == 0 {
		return "", errNoData
	}

	amounts := make([]float64, len(rows))
	quantities := make([]float64, len(rows))
	for i := range rows {
		amounts[i] = rows[i].TotalAmount
		quantities[i] = float64(rows[i].Quantity)
	}

	var b strings.Builder
	b.WriteString("**Transaction Analysis:**\n\n")
	fmt.Fprintf(&b, "- **Average Transaction Value:** $%s\n", format.Money(services.Mean(amounts)))
	fmt.Fprintf(&b, "- **Median Transaction Value:** $%s\n", format.Money(median(amounts)))
	fmt.Fprintf(&b, "- **Average Items per Transaction:** %s\n", format.Fixed(services.Mean(quantities), 2))
	fmt.Fprintf(&b, "- **Highest Transaction:** $%s\n", format.Money(slices.Max(amounts)))
	fmt.Fprintf(&b, "- **Lowest Transaction:** $%s", format.Money(slices.Min(amounts)))
	return b.String(), nil
}

func answerDayOfWeek(t *dataset.Table) (string, error) {
	days := services.DayOfWeekRevenue(t)
	slices.SortStableFunc(days, func(a, b models.DayRevenue) int {
		return cmp.Compare(b.Revenue, a.Revenue)
	})

	var b strings.Builder
	b.WriteString("**Sales by Day of Week:**\n\n")
	for i, d := range days[:min(3, len(days))] {
		fmt.Fprintf(&b, "%d. **%s:** $%s (%s transactions)\n", i+1, d.Day, format.Money(d.Revenue), format.Int(d.Transactions))
	}
	return b.String(), nil
}

func answerCompare(t *dataset.Table) (string, error) {
	categories := services.RevenueByCategory(t)

	var b strings.Builder
	b.WriteString("**Category Comparison:**\n\n")
	for _, c := range categories[:min(5, len(categories))] {
		fmt.Fprintf(&b, "- **%s:** $%s (%s transactions)\n", c.Key, format.Money(c.Revenue), format.Int(c.Transactions))
	}
	return b.String(), nil
}

func answerCategory(t *dataset.Table, category string) (string, error) {
	f := services.Unfiltered(t)
	f.Categories = services.NewSet(category)
	subset := services.Apply(t, f)
	if subset.Len() == 0 {
		return "", errNoData
	}

	revenue := services.Revenue(subset)
	malls := make(map[string]int)
	for _, r := range subset.Rows() {
		malls[r.ShoppingMall]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s Analysis:**\n\n", category)
	fmt.Fprintf(&b, "- **Total Revenue:** $%s (%s of total)\n",
		format.Money(revenue), format.Percent(services.PercentOf(revenue, services.Revenue(t))))
	fmt.Fprintf(&b, "- **Transactions:** %s\n", format.Int(subset.Len()))
	fmt.Fprintf(&b, "- **Average Sale:** $%s\n", format.Money(revenue/float64(subset.Len())))
	fmt.Fprintf(&b, "- **Most Popular Mall:** %s", mode(malls))
	return b.String(), nil
}

// mode returns the most frequent key, the smallest key on ties.
func mode(counts map[string]int) string {
	best, bestCount := "", -1
	for k, n := range counts {
		if n > bestCount || (n == bestCount && k < best) {
			best, bestCount = k, n
		}
	}
	return best
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
