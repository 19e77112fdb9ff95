// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/awesomeview/internal/api"
	"github.com/starford/awesomeview/internal/library"
	"github.com/starford/awesomeview/internal/sse"
)

// Serve loads the library and runs the HTTP API until ctx is cancelled or a
// shutdown signal arrives. With watching enabled, source changes regenerate
// the collection and are announced over SSE.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts...)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Any("sources", cfg.Sources.Paths),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("staleness", cfg.Cache.Staleness),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	lib := app.library()
	report, err := lib.Open()
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	logReport(logger, report)

	// SSE broker.
	broker := sse.NewBroker(sse.Options{
		ReloadThrottle: cfg.App.HTTP.EventsThrottle.Std(),
		Heartbeat:      cfg.App.HTTP.EventsHeartbeat.Std(),
		Logger:         logger,
	})
	defer broker.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRouter(lib, broker, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start source watcher with SSE callback.
	if cfg.Watch.Enabled {
		g.Go(func() error {
			return lib.Watch(gCtx, cfg.Watch.Debounce.Std(), func(report *library.Report, err error) {
				if err != nil {
					broker.PublishReloadFailed(err)
					return
				}
				logReport(logger, report)
				broker.PublishReload(report)
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// newRouter builds the HTTP handler: health probes at the root and the API
// under /api.
func newRouter(lib *library.Library, broker *sse.Broker, cfg *Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if lib.LastReport() == nil {
			writeStatus(w, http.StatusServiceUnavailable, "loading")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	// Mount API routes under /api; SSE lives at /api/events.
	r.Mount("/api", api.NewRouter(lib, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// logReport logs one line per load plus any per-file failures and warnings.
func logReport(logger *slog.Logger, report *library.Report) {
	if report == nil {
		return
	}
	for _, f := range report.Files {
		if f.Err != nil {
			logger.Warn("source failed", slog.String("path", f.Path), slog.String("error", f.Err.Error()))
		}
		for _, w := range f.Warnings {
			logger.Warn("frontmatter ignored", slog.String("path", w.File), slog.String("message", w.Message))
		}
	}
	if report.CacheErr != nil {
		logger.Warn("cache not written", slog.String("error", report.CacheErr.Error()))
	}
	logger.Info("Library loaded",
		slog.String("summary", report.String()),
		slog.Int("items", report.Total),
		slog.Int("excluded", report.Excluded))
}
