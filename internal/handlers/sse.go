package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/services"
)

type SSEHandlers struct {
	Deps
}

func NewSSEHandlers(deps Deps) *SSEHandlers {
	return &SSEHandlers{Deps: deps}
}

// dashboardSignals carries the filter widgets and the chat input.
type dashboardSignals struct {
	FilterSignals
	Question string `json:"question"`
}

func (h *SSEHandlers) readSignals(r *http.Request) (dashboardSignals, error) {
	var signals dashboardSignals
	err := datastar.ReadSignals(r, &signals)
	return signals, err
}

// filtered loads the base table and applies the filter held in signals.
func (h *SSEHandlers) filtered(r *http.Request, signals dashboardSignals) (base, filtered *dataset.Table, err error) {
	base, err = h.Dataset.Load(r.Context())
	if err != nil {
		return nil, nil, err
	}
	f, err := signals.Filter(base)
	if err != nil {
		return nil, nil, err
	}
	return base, services.Apply(base, f), nil
}

func (h *SSEHandlers) notice(sse *datastar.ServerSentEventGenerator, message string) {
	html, err := render(noticeTemplate, message)
	if err != nil {
		h.Logger.Error("render notice", "error", err)
		return
	}
	sse.PatchElements(html)
}

// HandleRefreshAll recomputes every dashboard view for the current filters.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	signals, err := h.readSignals(r)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.Logger.Warn("read signals", "error", err)
		h.notice(sse, "Unable to read the dashboard filters.")
		return
	}

	base, view, err := h.filtered(r, signals)
	if err != nil {
		h.Logger.Error("refresh dashboard", "error", err)
		h.notice(sse, "Unable to refresh the dashboard: "+err.Error())
		return
	}

	kpis := services.ComputeKPIs(base, view)
	html, err := renderKPIs(view.Len(), kpis)
	if err != nil {
		h.Logger.Error("render kpis", "error", err)
		return
	}
	sse.PatchElements(html)

	html, err = renderInsights(services.Insights(view))
	if err != nil {
		h.Logger.Error("render insights", "error", err)
		return
	}
	sse.PatchElements(html)

	html, err = renderTransactions(transactionRows(services.RecentTransactions(view, h.TableRows)))
	if err != nil {
		h.Logger.Error("render transactions table", "error", err)
		return
	}
	sse.PatchElements(html)

	// Send all chart data in one call
	allSignals, err := json.Marshal(map[string]any{
		"kpis":         kpis,
		"rowCount":     view.Len(),
		"monthlyData":  services.MonthlyRevenue(view),
		"categoryData": services.RevenueByCategory(view),
		"mallData":     services.RevenueByMall(view),
		"paymentData":  services.RevenueByPayment(view),
		"ageData":      services.AgeHistogram(view, services.DefaultAgeBins),
		"genderData":   services.GenderBreakdown(view),
		"heatmapData":  services.CategoryMallMatrix(view),
		"weekdayData":  services.DayOfWeekRevenue(view),
	})
	if err != nil {
		h.Logger.Error("marshal chart signals", "error", err)
		return
	}
	sse.PatchSignals(allSignals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleAsk answers the question signal against the filtered table and
// re-renders the conversation.
func (h *SSEHandlers) HandleAsk(w http.ResponseWriter, r *http.Request) {
	signals, err := h.readSignals(r)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.Logger.Warn("read signals", "error", err)
		h.notice(sse, "Unable to read the question.")
		return
	}

	question := strings.TrimSpace(signals.Question)
	if question == "" {
		return
	}

	_, view, err := h.filtered(r, signals)
	if err != nil {
		h.Logger.Error("answer question", "error", err)
		h.notice(sse, "Unable to answer right now: "+err.Error())
		return
	}

	ask(r.Context(), h.Deps, question, view)

	html, err := renderChat(h.History.Messages())
	if err != nil {
		h.Logger.Error("render chat", "error", err)
		return
	}
	sse.PatchElements(html)
	sse.PatchSignals([]byte(`{"question": ""}`))

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleClear empties the conversation.
func (h *SSEHandlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.History.Clear()

	sse := datastar.NewSSE(w, r)
	html, err := renderChat(nil)
	if err != nil {
		h.Logger.Error("render chat", "error", err)
		return
	}
	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleChat renders the current conversation, used when the chat panel opens.
func (h *SSEHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	html, err := renderChat(h.History.Messages())
	if err != nil {
		h.Logger.Error("render chat", "error", err)
		return
	}
	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
