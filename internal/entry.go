// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
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

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/cache"
	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/search"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("graph_mode", cfg.Graph.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	engine, caches, local, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	// Build API router.
	apiRouter := api.NewRouter(engine, caches, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the local graph for edits so caches stay fresh.
	if local != nil && cfg.Graph.Watch {
		g.Go(func() error {
			if err := graph.Watch(gCtx, local, caches, logger); err != nil {
				logger.Warn("graph watcher stopped", slog.String("error", err.Error()))
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP server on stdio. Logs go to stderr so the
// stdout transport stays clean.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	engine, caches, local, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	srv := mcpserver.New(engine, caches)

	if local != nil && cfg.Graph.Watch {
		go func() {
			if err := graph.Watch(ctx, local, caches, logger); err != nil {
				logger.Warn("graph watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("Starting MCP server on stdio", slog.String("graph_mode", cfg.Graph.Mode))
	return srv.ServeStdio()
}

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// buildEngine constructs the provider, cache service, and search engine
// from configuration. The returned Local is nil in remote mode.
func buildEngine(cfg *Config) (*search.Engine, *cache.Service, *graph.Local, error) {
	var (
		provider graph.Provider
		local    *graph.Local
	)
	switch cfg.Graph.Mode {
	case GraphModeRemote:
		provider = graph.NewClient(cfg.Graph.Endpoint, cfg.Graph.Token)
	default:
		l, err := graph.NewLocal(cfg.Graph.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init local graph: %w", err)
		}
		local = l
		provider = l
	}

	caches := cache.NewService(cache.TTLs{
		Pages:     cfg.Cache.PagesTTL,
		Blocks:    cfg.Cache.BlocksTTL,
		Results:   cfg.Cache.ResultsTTL,
		Templates: cfg.Cache.TemplatesTTL,
	})

	var engineOpts []search.Option
	if cfg.Search.MaxNesting > 0 {
		engineOpts = append(engineOpts, search.WithMaxNesting(cfg.Search.MaxNesting))
	}
	engine := search.New(provider, caches, engineOpts...)
	return engine, caches, local, nil
}
