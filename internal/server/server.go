package server

import (
	"net/http"

	"retail-dashboard/internal/handlers"
)

type Server struct {
	mux         *http.ServeMux
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(deps handlers.Deps, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		apiHandlers: handlers.NewAPIHandlers(deps),
		sseHandlers: handlers.NewSSEHandlers(deps),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.HandleFunc("POST /admin/reload", s.apiHandlers.HandleReload)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/filters", s.apiHandlers.HandleFilters)
	s.mux.HandleFunc("GET /api/kpis", s.apiHandlers.HandleKPIs)
	s.mux.HandleFunc("GET /api/monthly-revenue", s.apiHandlers.HandleMonthlyRevenue)
	s.mux.HandleFunc("GET /api/category-revenue", s.apiHandlers.HandleCategoryRevenue)
	s.mux.HandleFunc("GET /api/mall-revenue", s.apiHandlers.HandleMallRevenue)
	s.mux.HandleFunc("GET /api/payment-revenue", s.apiHandlers.HandlePaymentRevenue)
	s.mux.HandleFunc("GET /api/age-histogram", s.apiHandlers.HandleAgeHistogram)
	s.mux.HandleFunc("GET /api/gender", s.apiHandlers.HandleGender)
	s.mux.HandleFunc("GET /api/category-mall", s.apiHandlers.HandleCategoryMall)
	s.mux.HandleFunc("GET /api/day-of-week", s.apiHandlers.HandleDayOfWeek)
	s.mux.HandleFunc("GET /api/insights", s.apiHandlers.HandleInsights)
	s.mux.HandleFunc("GET /api/transactions", s.apiHandlers.HandleTransactions)
	s.mux.HandleFunc("GET /api/export.csv", s.apiHandlers.HandleExportCSV)
	s.mux.HandleFunc("GET /api/export.xlsx", s.apiHandlers.HandleExportXLSX)
	s.mux.HandleFunc("POST /api/assistant/ask", s.apiHandlers.HandleAsk)
	s.mux.HandleFunc("GET /api/assistant/history", s.apiHandlers.HandleHistory)
	s.mux.HandleFunc("DELETE /api/assistant/history", s.apiHandlers.HandleClearHistory)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
	s.mux.HandleFunc("POST /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
	s.mux.HandleFunc("GET /sse/assistant/chat", s.sseHandlers.HandleChat)
	s.mux.HandleFunc("POST /sse/assistant/ask", s.sseHandlers.HandleAsk)
	s.mux.HandleFunc("POST /sse/assistant/clear", s.sseHandlers.HandleClear)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
