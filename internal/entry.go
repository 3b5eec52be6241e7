// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mediashelf/internal/aggregate"
	"github.com/starford/mediashelf/internal/api"
	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/controller"
	"github.com/starford/mediashelf/internal/mcpserver"
	"github.com/starford/mediashelf/internal/source"
	"github.com/starford/mediashelf/internal/sse"
	"github.com/starford/mediashelf/internal/storage"
	"github.com/starford/mediashelf/internal/watch"
)

const sheetTimeout = 15 * time.Second

// runtime is everything both front ends share.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	reg     *catalog.Registry
	src     source.Fetcher
	store   storage.Provider // nil unless the file source is used
	builder *aggregate.Builder
	closers []io.Closer
}

func (rt *runtime) newController() *controller.Controller {
	return controller.New(rt.reg, rt.src,
		controller.WithLogger(rt.logger),
		controller.WithAggregate(rt.builder))
}

func (rt *runtime) Close() {
	for _, c := range rt.closers {
		if err := c.Close(); err != nil {
			rt.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func setup(opts []Option, defaultOutput io.Writer) (*runtime, error) {
	app := &application{logOutput: defaultOutput}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source", cfg.Source.Kind),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt := &runtime{
		cfg:    cfg,
		logger: logger,
		reg:    catalog.Default().WithLocators(cfg.Source.Locators),
	}

	switch cfg.Source.Kind {
	case source.KindSheet:
		client := app.httpClient
		if client == nil {
			client = &http.Client{Timeout: sheetTimeout}
		}
		rt.src = source.NewSheet(cfg.Source.SheetURL, cfg.Source.Home, client)
		logger.Info("Using sheet source", slog.String("url", cfg.Source.SheetURL))
	case source.KindSQLite:
		db, err := source.OpenSQLite(cfg.Source.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite source: %w", err)
		}
		rt.src = db
		rt.closers = append(rt.closers, db)
		logger.Info("Using sqlite source", slog.String("path", cfg.Source.SQLitePath))
	default:
		if err := os.MkdirAll(cfg.Source.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		store, err := storage.NewFS(cfg.Source.DataDir)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		rt.store = store
		rt.src = source.NewFile(store, cfg.Source.Home)
		logger.Info("Using file source", slog.String("data_dir", store.Root()))
	}

	rt.builder = aggregate.NewBuilder(rt.reg, rt.src)
	return rt, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger := rt.cfg, rt.logger

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.StatsThrottle)
	defer broker.Close()

	sessions := api.NewSessions(rt.newController, api.DefaultIdleTimeout)
	apiRouter := api.NewRouter(rt.reg, sessions, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the data directory and push change events to SSE clients.
	if cfg.Watch.Enabled && rt.store != nil {
		w := watch.New(rt.reg, rt.store, cfg.Source.Home, logger)
		g.Go(func() error {
			err := w.Run(gCtx, func(kind, key string) {
				if key == catalog.HomeKey {
					broker.PublishHomeChange()
					return
				}
				broker.PublishChange(kind, key)
			})
			if err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
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

		// Stop the watcher too.
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves a single catalog session over MCP stdio until stdin closes.
func RunMCP(_ context.Context, opts ...Option) error {
	rt, err := setup(opts, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("Starting MCP server on stdio")
	if err := mcpserver.New(rt.newController()).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
