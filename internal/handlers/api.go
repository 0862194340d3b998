package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"retail-dashboard/internal/assistant"
	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/services"
)

const (
	cacheControl    = "private, max-age=60"
	maxQuestionSize = 4 << 10
)

// Dataset is the shared, lazily loaded transactions table.
type Dataset interface {
	Load(ctx context.Context) (*dataset.Table, error)
	Reload(ctx context.Context) (*dataset.Table, error)
	LoadedAt() time.Time
	Path() string
}

// Deps are the collaborators shared by the API and SSE handlers.
type Deps struct {
	Dataset   Dataset
	Responder assistant.Responder
	History   *assistant.History
	// TableRows caps the recent-transactions table.
	TableRows int
	Logger    *slog.Logger
}

type APIHandlers struct {
	Deps
	startedAt time.Time
}

func NewAPIHandlers(deps Deps) *APIHandlers {
	return &APIHandlers{
		Deps:      deps,
		startedAt: time.Now(),
	}
}

// view loads the base table and applies the filter from the query string.
// On failure the error response has already been written.
func (h *APIHandlers) view(w http.ResponseWriter, r *http.Request) (base, filtered *dataset.Table, ok bool) {
	ctx, span := observability.StartSpan(r.Context(), "dataset.filter")
	defer span.End(h.Logger)

	base, err := h.Dataset.Load(ctx)
	if err != nil {
		span.SetError(err)
		h.fail(w, r, errors.ServiceUnavailableWrap(err, "Transactions are not available"))
		return nil, nil, false
	}

	f, err := filterFromQuery(r.URL.Query(), base)
	if err != nil {
		span.SetError(err)
		h.fail(w, r, err)
		return nil, nil, false
	}

	filtered = services.Apply(base, f)
	span.SetTag("rows.base", strconv.Itoa(base.Len()))
	span.SetTag("rows.filtered", strconv.Itoa(filtered.Len()))
	return base, filtered, true
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, r, h.Logger, err)
}

func (h *APIHandlers) writeView(w http.ResponseWriter, base, filtered *dataset.Table, data any) {
	meta := errors.Meta{Rows: filtered.Len(), BaseRows: base.Len()}
	errors.WriteView(w, data, meta, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	base, filtered, ok := h.view(w, r)
	if !ok {
		return
	}
	h.writeView(w, base, filtered, services.ComputeKPIs(base, filtered))
}

func (h *APIHandlers) HandleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	if base, filtered, ok := h.view(w, r); ok {
		h.writeView(w, base, filtered, services.MonthlyRevenue(filtered))
	}
}

func (h *APIHandlers) HandleCategoryRevenue(w http.ResponseWriter, r *http.Request) {
	if base, filtered, ok := h.view(w, r); ok {
		h.writeView(w, base, filtered, services.RevenueByCategory(filtered))
	}
}

func (h *APIHandlers) HandleMallRevenue(w http.ResponseWriter, r *http.Request) {
	if base, filtered, ok := h.view(w, r); ok {
		h.writeView(w, base, filtered, services.RevenueByMall(filtered))
	}
}

func (h *APIHandlers) HandlePaymentRevenue(w http.ResponseWriter, r *http.Request) {
	if base, filtered, ok := h.view(w, r); ok {
		h.writeView(w, base, filtered, services.RevenueByPayment(filtered))
	}
}

func (h *APIHandlers) HandleAgeHistogram(w http.ResponseWriter, r *http.Request) {
	bins := services.DefaultAgeBins
	if v := r.URL.Query().Get("bins"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			h.fail(w, r, errors.ValidationField("bins", "bins must be an integer between 1 and 200"))
			return
		}
		bins = n
	}
	if base, filtered, ok := h.view(w, r); ok {
		h.writeView(w, base, filtered, services.AgeHistogram(filtered, bins))
	}
}

func (h *APIHandlers) HandleGender(w http.ResponseWriter, r *http.Request) {
	if base, filtered, ok := h.view(w, r); ok {
		h.writeView(w, base, filtered, services.GenderBreakdown(filtered))
	}
}

func (h *APIHandlers) HandleCategoryMall(w http.ResponseWriter, r *http.Request) {
	if base, filtered, ok := h.view(w, r); ok {
		h.writeView(w, base, filtered, services.CategoryMallMatrix(filtered))
	}
}

func (h *APIHandlers) HandleDayOfWeek(w http.ResponseWriter, r *http.Request) {
	if base, filtered, ok := h.view(w, r); ok {
		h.writeView(w, base, filtered, services.DayOfWeekRevenue(filtered))
	}
}

func (h *APIHandlers) HandleInsights(w http.ResponseWriter, r *http.Request) {
	if base, filtered, ok := h.view(w, r); ok {
		h.writeView(w, base, filtered, services.Insights(filtered))
	}
}

func (h *APIHandlers) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := h.TableRows
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.fail(w, r, errors.ValidationField("limit", "limit must be a positive integer"))
			return
		}
		limit = min(n, h.TableRows)
	}
	if base, filtered, ok := h.view(w, r); ok {
		h.writeView(w, base, filtered, transactionRows(services.RecentTransactions(filtered, limit)))
	}
}

type filterOptions struct {
	Categories     []string `json:"categories"`
	Malls          []string `json:"malls"`
	Genders        []string `json:"genders"`
	PaymentMethods []string `json:"payment_methods"`
	MinDate        string   `json:"min_date,omitempty"`
	MaxDate        string   `json:"max_date,omitempty"`
	MissingDates   int      `json:"missing_dates"`
}

func newFilterOptions(t *dataset.Table) filterOptions {
	opts := filterOptions{
		Categories:     t.Categories(),
		Malls:          t.Malls(),
		Genders:        t.Genders(),
		PaymentMethods: t.PaymentMethods(),
		MissingDates:   t.MissingDates(),
	}
	if lo, hi, ok := t.DateBounds(); ok {
		opts.MinDate, opts.MaxDate = lo.Format(dateLayout), hi.Format(dateLayout)
	}
	return opts
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	base, err := h.Dataset.Load(r.Context())
	if err != nil {
		h.fail(w, r, errors.ServiceUnavailableWrap(err, "Transactions are not available"))
		return
	}
	h.writeView(w, base, base, newFilterOptions(base))
}

func (h *APIHandlers) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", "text/csv; charset=utf-8", services.WriteCSV)
}

func (h *APIHandlers) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", services.WriteXLSX)
}

func (h *APIHandlers) export(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(io.Writer, *dataset.Table) error) {
	_, filtered, ok := h.view(w, r)
	if !ok {
		return
	}

	filename := services.ExportFilename(time.Now(), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")

	logger := observability.RequestLogger(r.Context(), h.Logger)
	if err := write(w, filtered); err != nil {
		// Headers are already sent; the client sees a truncated file.
		logger.Error("export failed", "format", ext, "rows", filtered.Len(), "error", err)
		return
	}
	logger.Info("export written", "format", ext, "rows", filtered.Len(), "filename", filename)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question assistant.ChatMessage `json:"question"`
	Answer   assistant.ChatMessage `json:"answer"`
}

// HandleAsk answers a question against the table filtered by the query string.
func (h *APIHandlers) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionSize)).Decode(&req); err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, "Request body must be JSON with a question field"))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		h.fail(w, r, errors.ValidationField("question", "question cannot be empty"))
		return
	}

	_, filtered, ok := h.view(w, r)
	if !ok {
		return
	}

	q, a := ask(r.Context(), h.Deps, req.Question, filtered)
	errors.WriteSuccess(w, askResponse{Question: q, Answer: a})
}

// ask runs the responder and records both sides of the exchange.
func ask(ctx context.Context, deps Deps, question string, t *dataset.Table) (assistant.ChatMessage, assistant.ChatMessage) {
	ctx, span := observability.StartSpan(ctx, "assistant.answer")
	defer span.End(deps.Logger)

	q := deps.History.Append(assistant.RoleUser, question)
	answer := deps.Responder.Answer(ctx, question, t)
	a := deps.History.Append(assistant.RoleAssistant, answer)
	span.SetTag("rows", strconv.Itoa(t.Len()))
	return q, a
}

func (h *APIHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.History.Messages())
}

func (h *APIHandlers) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	h.History.Clear()
	errors.WriteSuccess(w, map[string]bool{"cleared": true})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	base, err := h.Dataset.Load(r.Context())
	if err != nil {
		h.fail(w, r, errors.ServiceUnavailableWrap(err, "Transactions are not available"))
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	errors.WriteSuccess(w, map[string]any{
		"source":         h.Dataset.Path(),
		"record_count":   base.Len(),
		"missing_dates":  base.MissingDates(),
		"categories":     len(base.Categories()),
		"malls":          len(base.Malls()),
		"loaded_at":      h.Dataset.LoadedAt().Format(time.RFC3339),
		"chat_messages":  h.History.Len(),
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc":     mem.HeapAlloc,
	})
}

// HandleReload reads the source file again. A failed reload keeps serving
// the table loaded before it.
func (h *APIHandlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	base, err := h.Dataset.Reload(r.Context())
	if err != nil {
		h.fail(w, r, errors.ServiceUnavailableWrap(err, "Reloading transactions failed"))
		return
	}

	errors.WriteSuccess(w, map[string]any{
		"record_count":  base.Len(),
		"missing_dates": base.MissingDates(),
		"duration_ms":   time.Since(start).Milliseconds(),
	})
}
