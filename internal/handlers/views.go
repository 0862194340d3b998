package handlers

import (
	"html/template"
	"strings"

	"retail-dashboard/internal/assistant"
	"retail-dashboard/internal/format"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/services"
)

// transactionRow is the JSON and table shape of one transaction.
type transactionRow struct {
	InvoiceNo     string  `json:"invoice_no"`
	CustomerID    string  `json:"customer_id"`
	InvoiceDate   string  `json:"invoice_date"`
	Category      string  `json:"category"`
	ShoppingMall  string  `json:"shopping_mall"`
	PaymentMethod string  `json:"payment_method"`
	Gender        string  `json:"gender"`
	Age           int     `json:"age"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
	TotalAmount   float64 `json:"total_amount"`
}

func transactionRows(txs []models.Transaction) []transactionRow {
	rows := make([]transactionRow, len(txs))
	for i, tx := range txs {
		rows[i] = transactionRow{
			InvoiceNo:     tx.InvoiceNo,
			CustomerID:    tx.CustomerID,
			Category:      tx.Category,
			ShoppingMall:  tx.ShoppingMall,
			PaymentMethod: tx.PaymentMethod,
			Gender:        tx.Gender,
			Age:           tx.Age,
			Quantity:      tx.Quantity,
			Price:         tx.Price,
			TotalAmount:   tx.TotalAmount,
		}
		if tx.HasDate {
			rows[i].InvoiceDate = tx.InvoiceDate.Format(dateLayout)
		}
	}
	return rows
}

var funcs = template.FuncMap{
	"money":   format.Money,
	"percent": func(f services.Float) string { return format.Percent(float64(f)) },
	"fixed":   func(f services.Float) string { return format.Fixed(float64(f), 2) },
	"moneyf":  func(f services.Float) string { return format.Money(float64(f)) },
	"whole":   func(f services.Float) string { return format.Whole(float64(f)) },
}

var kpiTemplate = template.Must(template.New("kpis").Funcs(funcs).Parse(`
<div id="kpi-row" class="kpi-row">
{{if eq .Rows 0}}<div class="notice">No transactions match the selected filters.</div>{{end}}
<div class="kpi"><span class="kpi-label">Total Revenue</span><span class="kpi-value">${{moneyf .KPIs.TotalRevenue.Value}}</span><span class="kpi-share">{{percent .KPIs.TotalRevenue.PercentOfTotal}} of total</span></div>
<div class="kpi"><span class="kpi-label">Transactions</span><span class="kpi-value">{{whole .KPIs.Transactions.Value}}</span><span class="kpi-share">{{percent .KPIs.Transactions.PercentOfTotal}} of total</span></div>
<div class="kpi"><span class="kpi-label">Avg Transaction</span><span class="kpi-value">${{moneyf .KPIs.AvgTransaction.Value}}</span><span class="kpi-share">{{percent .KPIs.AvgTransaction.PercentOfTotal}} of overall</span></div>
<div class="kpi"><span class="kpi-label">Unique Customers</span><span class="kpi-value">{{whole .KPIs.UniqueCustomers.Value}}</span><span class="kpi-share">{{percent .KPIs.UniqueCustomers.PercentOfTotal}} of total</span></div>
<div class="kpi"><span class="kpi-label">Items / Transaction</span><span class="kpi-value">{{fixed .KPIs.ItemsPerTransaction.Value}}</span><span class="kpi-share">{{percent .KPIs.ItemsPerTransaction.PercentOfTotal}} of overall</span></div>
</div>`))

var insightsTemplate = template.Must(template.New("insights").Parse(`
<div id="insights" class="insights">
<div class="insight"><strong>Top Category:</strong> {{or .TopCategory "n/a"}} generates the highest revenue</div>
<div class="insight"><strong>Best Mall:</strong> {{or .TopMall "n/a"}} leads in sales</div>
<div class="insight"><strong>Preferred Payment:</strong> {{or .PreferredPayment "n/a"}} is most used</div>
</div>`))

var transactionsTemplate = template.Must(template.New("transactions").Funcs(funcs).Parse(`
<div id="transactions-table">
<table class="modern-table">
<thead><tr><th>Invoice</th><th>Date</th><th>Customer</th><th>Category</th><th>Mall</th><th>Payment</th><th>Qty</th><th>Total</th></tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.InvoiceNo}}</td>
<td>{{or .InvoiceDate "n/a"}}</td>
<td>{{.CustomerID}}</td>
<td><span class="category-badge">{{.Category}}</span></td>
<td>{{.ShoppingMall}}</td>
<td>{{.PaymentMethod}}</td>
<td>{{.Quantity}}</td>
<td><strong>${{money .TotalAmount}}</strong></td>
</tr>{{end}}
</tbody>
</table>
</div>`))

var chatTemplate = template.Must(template.New("chat").Parse(`
<div id="chat-log" class="chat-log">
{{range .}}<div class="chat-message chat-{{.Role}}" id="msg-{{.ID}}"><pre>{{.Content}}</pre></div>
{{else}}<div class="chat-empty">Ask a question about your sales data.</div>
{{end}}</div>`))

var noticeTemplate = template.Must(template.New("notice").Parse(`
<div id="kpi-row" class="kpi-row"><div class="notice notice-error">{{.}}</div></div>`))

type kpiView struct {
	Rows int
	KPIs services.KPIs
}

func render(t *template.Template, data any) (string, error) {
	var buf strings.Builder
	err := t.Execute(&buf, data)
	return buf.String(), err
}

func renderKPIs(rows int, kpis services.KPIs) (string, error) {
	return render(kpiTemplate, kpiView{Rows: rows, KPIs: kpis})
}

func renderInsights(in models.Insights) (string, error) {
	return render(insightsTemplate, in)
}

func renderTransactions(rows []transactionRow) (string, error) {
	return render(transactionsTemplate, rows)
}

func renderChat(messages []assistant.ChatMessage) (string, error) {
	return render(chatTemplate, messages)
}
