// Package templates renders the dashboard page. Everything below the filter
// bar is filled in by Datastar patches from the /sse endpoints.
package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const (
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"
	plotlyScript   = "https://cdn.plot.ly/plotly-2.35.2.min.js"
)

// DashboardView is what the page needs before the first refresh: the filter
// domains and the dataset's date bounds.
type DashboardView struct {
	Title         string
	Categories    []string
	Malls         []string
	Genders       []string
	MinDate       string
	MaxDate       string
	Records       int
	AssistantMode string
}

type chartPanel struct {
	ID    string
	Title string
}

var chartPanels = []chartPanel{
	{"chart-monthly", "Monthly Revenue Trend"},
	{"chart-category", "Revenue by Category"},
	{"chart-mall", "Top Shopping Malls"},
	{"chart-payment", "Payment Methods"},
	{"chart-age", "Customer Age Distribution"},
	{"chart-gender", "Gender Split"},
	{"chart-heatmap", "Category Performance by Mall"},
	{"chart-weekday", "Revenue by Day of Week"},
}

func Dashboard(view DashboardView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := initialSignals(view)
		if err != nil {
			return fmt.Errorf("encode signals: %w", err)
		}

		var b strings.Builder
		title := templ.EscapeString(view.Title)

		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		fmt.Fprintf(&b, `<title>%s</title>`, title)
		fmt.Fprintf(&b, `<script type="module" src="%s"></script>`, datastarScript)
		fmt.Fprintf(&b, `<script src="%s"></script>`, plotlyScript)
		b.WriteString(`<style>` + stylesheet + `</style></head>`)

		fmt.Fprintf(&b, `<body data-signals="%s" data-init="@get('/sse/refresh-all')">`, templ.EscapeString(signals))
		fmt.Fprintf(&b, `<header class="header"><h1>%s</h1><p>Retail analytics across %d transactions</p></header>`, title, view.Records)

		writeFilters(&b, view)

		b.WriteString(`<main class="content">`)
		b.WriteString(`<div id="kpi-row" class="kpi-row"><div class="notice">Loading...</div></div>`)
		b.WriteString(`<div id="insights" class="insights"></div>`)

		b.WriteString(`<section class="charts">`)
		for _, c := range chartPanels {
			fmt.Fprintf(&b, `<div class="chart-card"><h3>%s</h3><div id="%s" class="chart"></div></div>`,
				templ.EscapeString(c.Title), c.ID)
		}
		b.WriteString(`</section>`)
		b.WriteString(`<div data-effect="window.renderCharts && window.renderCharts($monthlyData, $categoryData, $mallData, $paymentData, $ageData, $genderData, $heatmapData, $weekdayData)"></div>`)

		b.WriteString(`<section class="table-card"><div class="table-header"><h3>Recent Transactions</h3>`)
		b.WriteString(`<span><a class="button" data-attr:href="'/api/export.csv?' + window.filterQuery($start, $end, $categories, $malls, $genders)">Download CSV</a> `)
		b.WriteString(`<a class="button" data-attr:href="'/api/export.xlsx?' + window.filterQuery($start, $end, $categories, $malls, $genders)">Download Excel</a></span></div>`)
		b.WriteString(`<div id="transactions-table"></div></section>`)

		writeChat(&b, view)

		b.WriteString(`</main><script>` + chartScript + `</script></body></html>`)

		_, err = io.WriteString(w, b.String())
		return err
	})
}

func initialSignals(view DashboardView) (string, error) {
	data, err := json.Marshal(map[string]any{
		"start":        view.MinDate,
		"end":          view.MaxDate,
		"categories":   nonNil(view.Categories),
		"malls":        nonNil(view.Malls),
		"genders":      nonNil(view.Genders),
		"question":     "",
		"rowCount":     0,
		"monthlyData":  []any{},
		"categoryData": []any{},
		"mallData":     []any{},
		"paymentData":  []any{},
		"ageData":      []any{},
		"genderData":   []any{},
		"heatmapData":  map[string]any{},
		"weekdayData":  []any{},
	})
	return string(data), err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeFilters(b *strings.Builder, view DashboardView) {
	b.WriteString(`<aside class="filters" data-on:change="@post('/sse/refresh-all')">`)
	b.WriteString(`<h2>Filters</h2>`)
	fmt.Fprintf(b, `<label>From <input type="date" data-bind:start min="%s" max="%s"></label>`,
		templ.EscapeString(view.MinDate), templ.EscapeString(view.MaxDate))
	fmt.Fprintf(b, `<label>To <input type="date" data-bind:end min="%s" max="%s"></label>`,
		templ.EscapeString(view.MinDate), templ.EscapeString(view.MaxDate))
	writeSelect(b, "Categories", "categories", view.Categories)
	writeSelect(b, "Shopping Malls", "malls", view.Malls)
	writeSelect(b, "Gender", "genders", view.Genders)
	b.WriteString(`<p class="row-count"><span data-text="$rowCount"></span> matching transactions</p>`)
	b.WriteString(`</aside>`)
}

func writeSelect(b *strings.Builder, label, signal string, options []string) {
	fmt.Fprintf(b, `<label>%s <select multiple size="6" data-bind:%s>`, templ.EscapeString(label), signal)
	for _, opt := range options {
		v := templ.EscapeString(opt)
		fmt.Fprintf(b, `<option value="%s" selected>%s</option>`, v, v)
	}
	b.WriteString(`</select></label>`)
}

func writeChat(b *strings.Builder, view DashboardView) {
	b.WriteString(`<section class="chat-card" data-init="@get('/sse/assistant/chat')">`)
	fmt.Fprintf(b, `<div class="table-header"><h3>Ask the Data</h3><span class="mode">%s mode</span></div>`,
		templ.EscapeString(view.AssistantMode))
	b.WriteString(`<div id="chat-log" class="chat-log"></div>`)
	b.WriteString(`<div class="chat-input">`)
	b.WriteString(`<input type="text" placeholder="What are my top categories?" data-bind:question data-on:keydown="evt.key === 'Enter' && @post('/sse/assistant/ask')">`)
	b.WriteString(`<button data-on:click="@post('/sse/assistant/ask')">Ask</button>`)
	b.WriteString(`<button class="secondary" data-on:click="@post('/sse/assistant/clear')">Clear</button>`)
	b.WriteString(`</div></section>`)
}

const stylesheet = `
body{margin:0;font-family:system-ui,sans-serif;background:#f4f6fb;color:#1f2937;display:grid;grid-template-columns:260px 1fr;grid-template-rows:auto 1fr}
.header{grid-column:1/3;background:linear-gradient(90deg,#667eea,#764ba2);color:#fff;padding:1.25rem 2rem}
.header h1{margin:0}.header p{margin:.25rem 0 0;opacity:.85}
.filters{padding:1rem;background:#fff;border-right:1px solid #e5e7eb;display:flex;flex-direction:column;gap:.75rem}
.filters label{display:flex;flex-direction:column;font-size:.85rem;gap:.25rem}
.content{padding:1.5rem;display:flex;flex-direction:column;gap:1.25rem}
.kpi-row{display:grid;grid-template-columns:repeat(5,1fr);gap:1rem}
.kpi{background:#fff;border-radius:10px;padding:1rem;box-shadow:0 1px 3px rgba(0,0,0,.08);display:flex;flex-direction:column}
.kpi-label{font-size:.8rem;color:#6b7280}.kpi-value{font-size:1.5rem;font-weight:600}.kpi-share{font-size:.75rem;color:#10b981}
.notice{grid-column:1/6;padding:.75rem;background:#fff7ed;border-radius:8px}.notice-error{background:#fee2e2}
.insights{display:grid;grid-template-columns:repeat(3,1fr);gap:1rem}.insight{background:#eef2ff;padding:.75rem;border-radius:8px}
.charts{display:grid;grid-template-columns:repeat(2,1fr);gap:1rem}
.chart-card,.table-card,.chat-card{background:#fff;border-radius:10px;padding:1rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.chart{height:320px}
.table-header{display:flex;justify-content:space-between;align-items:center}
.modern-table{width:100%;border-collapse:collapse;font-size:.85rem}.modern-table th,.modern-table td{padding:.4rem;border-bottom:1px solid #e5e7eb;text-align:left}
.category-badge{background:#e0e7ff;border-radius:999px;padding:.1rem .5rem}
.button,button{background:#667eea;color:#fff;border:0;border-radius:6px;padding:.4rem .8rem;text-decoration:none;cursor:pointer}
button.secondary{background:#9ca3af}
.chat-log{max-height:360px;overflow-y:auto;display:flex;flex-direction:column;gap:.5rem}
.chat-message pre{white-space:pre-wrap;font-family:inherit;margin:0;padding:.6rem;border-radius:8px}
.chat-user pre{background:#eef2ff}.chat-assistant pre{background:#f3f4f6}
.chat-input{display:flex;gap:.5rem;margin-top:.75rem}.chat-input input{flex:1;padding:.4rem}
`

const chartScript = `
window.filterQuery = function(start, end, categories, malls, genders) {
  const q = new URLSearchParams();
  if (start) q.append("start", start);
  if (end) q.append("end", end);
  const add = (key, values) => {
    if (!values.length) { q.append(key, ""); return; }
    values.forEach(v => q.append(key, v));
  };
  add("category", categories); add("mall", malls); add("gender", genders);
  return q.toString();
};

window.renderCharts = function(monthly, category, mall, payment, age, gender, heatmap, weekday) {
  if (!window.Plotly) return;
  const layout = {margin: {t: 10, r: 10, b: 40, l: 60}};
  const opts = {displayModeBar: false, responsive: true};
  Plotly.react("chart-monthly", [{x: monthly.map(m => m.month), y: monthly.map(m => m.revenue), type: "scatter", mode: "lines+markers"}], layout, opts);
  Plotly.react("chart-category", [{x: category.map(c => c.revenue), y: category.map(c => c.key), type: "bar", orientation: "h"}], layout, opts);
  Plotly.react("chart-mall", [{x: mall.map(c => c.revenue), y: mall.map(c => c.key), type: "bar", orientation: "h"}], layout, opts);
  Plotly.react("chart-payment", [{labels: payment.map(p => p.key), values: payment.map(p => p.revenue), type: "pie", hole: 0.4}], layout, opts);
  Plotly.react("chart-age", [{x: age.map(b => (b.lower + b.upper) / 2), y: age.map(b => b.count), type: "bar"}], layout, opts);
  Plotly.react("chart-gender", [{labels: gender.map(g => g.key), values: gender.map(g => g.transactions), type: "pie"}], layout, opts);
  Plotly.react("chart-heatmap", [{z: heatmap.values || [], x: heatmap.columns || [], y: heatmap.rows || [], type: "heatmap", colorscale: "Viridis"}], layout, opts);
  Plotly.react("chart-weekday", [{x: weekday.map(d => d.day), y: weekday.map(d => d.revenue), type: "bar"}], layout, opts);
};
`
