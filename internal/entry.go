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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/recurrence"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/storage"
)

// graphThrottle bounds how often graph.updated is pushed to browsers.
const graphThrottle = 2 * time.Second

// runtime is the wired set of components every command needs.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	svc    *noteservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// open builds the logger, vault store, index and note service.
func open(app *application) (*runtime, error) {
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Any("reserved", cfg.Index.Reserved),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path, cfg.Index.Reserved...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	rec := recurrence.NewEngine(store, db, logger, recurrence.WithDailyDir(cfg.Index.DailyDir))
	return &runtime{
		cfg:    cfg,
		logger: logger,
		store:  store,
		db:     db,
		svc:    noteservice.NewService(store, db, rec, logger),
	}, nil
}

func (rt *runtime) close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close index", slog.String("error", err.Error()))
	}
}

func (rt *runtime) watchOptions() index.WatchOptions {
	return index.WatchOptions{
		Debounce: rt.cfg.Index.Debounce,
		Reserved: rt.cfg.Index.Reserved,
	}
}

// Run starts the HTTP server, the SSE broker and the vault watcher, and
// blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := open(app)
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	broker := sse.NewBroker(graphThrottle)
	defer broker.Close()
	rt.svc.OnChange(broker.NoteChanged)

	// Run initial sync.
	if stats, err := rt.svc.Sync(ctx, false); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		broker.Synced(stats)
	}

	apiRouter := api.NewRouter(rt.svc, api.RouterConfig{
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		SearchLimit: cfg.Index.SearchLimit,
		Events:      broker,
		Stream:      broker,
	})

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := rt.svc.Stats(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
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

	if cfg.Index.Watch {
		g.Go(func() error {
			err := index.Watch(gCtx, rt.db, rt.store, logger, rt.watchOptions(), broker.NoteChanged)
			if err != nil {
				return fmt.Errorf("watcher: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		// Open SSE streams hold requests; closing the broker ends them.
		broker.Close()
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

// Sync runs one sync pass, or a full rebuild when force is set, and returns
// its counts.
func Sync(ctx context.Context, force bool, opts ...Option) (*index.SyncStats, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	rt, err := open(app)
	if err != nil {
		return nil, err
	}
	defer rt.close()
	return rt.svc.Sync(ctx, force)
}

// ServeMCP syncs the index and serves MCP tools over stdio. When watching
// is enabled the index follows the vault while the session lasts.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := open(app)
	if err != nil {
		return err
	}
	defer rt.close()

	if _, err := rt.svc.Sync(ctx, false); err != nil {
		rt.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)
	if rt.cfg.Index.Watch {
		g.Go(func() error {
			return index.Watch(gCtx, rt.db, rt.store, rt.logger, rt.watchOptions(), nil)
		})
	}

	srv := mcpserver.New(rt.svc, app.version, rt.cfg.Index.SearchLimit)
	serveErr := srv.ServeStdio()
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		rt.logger.Warn("watcher stopped", slog.String("error", err.Error()))
	}
	return serveErr
}
