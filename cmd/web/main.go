package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"retail-dashboard/internal/assistant"
	"retail-dashboard/internal/config"
	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/handlers"
	"retail-dashboard/internal/middleware"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/server"
	"retail-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	csvLoadTimeout = 30 * time.Second
	cacheMaxAge    = "private, max-age=60"
	dashboardTitle = "Retail Analytics Dashboard"
)

// dashboardHandler renders the page shell with the filter domains of the
// currently loaded table.
func dashboardHandler(data handlers.Dataset, assistantMode string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		table, err := data.Load(ctx)
		if err != nil {
			logger.Error("dashboard data unavailable", "error", err)
			http.Error(w, "transactions are not available", http.StatusServiceUnavailable)
			return
		}

		view := templates.DashboardView{
			Title:         dashboardTitle,
			Categories:    table.Categories(),
			Malls:         table.Malls(),
			Genders:       table.Genders(),
			Records:       table.Len(),
			AssistantMode: assistantMode,
		}
		if lo, hi, ok := table.DateBounds(); ok {
			view.MinDate, view.MaxDate = lo.Format(time.DateOnly), hi.Format(time.DateOnly)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(view).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"csv_file", cfg.Dataset.CSVFile,
		"assistant_mode", cfg.Assistant.Mode,
		"addr", cfg.Address(),
	)

	loader := dataset.NewLoader(cfg.Dataset.CSVFile,
		dataset.WithLogger(logger),
		dataset.WithCacheDir(cfg.Dataset.CacheDir),
	)

	ctx, cancel := context.WithTimeout(context.Background(), csvLoadTimeout)
	defer cancel()

	start := time.Now()
	table, err := loader.Load(ctx)
	if err != nil {
		var loadErr *dataset.LoadError
		if stderrors.As(err, &loadErr) {
			logger.Error("failed to load transactions", "path", loadErr.Path, "error", loadErr.Err)
		} else {
			logger.Error("failed to load transactions", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("transactions loaded",
		"records", table.Len(),
		"missing_dates", table.MissingDates(),
		"duration", time.Since(start),
	)

	responder := assistant.New(assistant.Options{
		Mode:        cfg.Assistant.Mode,
		APIKey:      cfg.Assistant.APIKey,
		BaseURL:     cfg.Assistant.BaseURL,
		Model:       cfg.Assistant.Model,
		Timeout:     cfg.Assistant.Timeout,
		Temperature: cfg.Assistant.Temperature,
		MaxTokens:   cfg.Assistant.MaxTokens,
	}, logger)
	history := assistant.NewHistory(cfg.Assistant.HistorySize)

	deps := handlers.Deps{
		Dataset:   loader,
		Responder: responder,
		History:   history,
		TableRows: cfg.Export.TableRows,
		Logger:    logger,
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(loader, cfg.Assistant.Mode, logger),
	}

	srv := server.NewServer(deps, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.Compression(logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook("chat-history", func(ctx context.Context) error {
		logger.Info("discarding chat history", "messages", history.Len())
		history.Clear()
		return nil
	})
	gracefulServer.RegisterShutdownHook("dataset", func(ctx context.Context) error {
		logger.Info("releasing transactions table", "loaded_at", loader.LoadedAt())
		loader.Invalidate()
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
