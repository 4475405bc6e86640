package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/xzeeeeen/HM/internal/catalog"
	"github.com/xzeeeeen/HM/internal/engine"
	"github.com/xzeeeeen/HM/internal/httpapi"
	"github.com/xzeeeeen/HM/internal/notify"
	"github.com/xzeeeeen/HM/internal/platform/cache"
	"github.com/xzeeeeen/HM/internal/platform/config"
	"github.com/xzeeeeen/HM/internal/platform/database"
	"github.com/xzeeeeen/HM/internal/progress"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	for _, p := range cat.Problems() {
		slog.Warn("skipped course file", "problem", p.String())
	}
	slog.Info("catalog loaded", "path", cfg.CatalogPath, "courses", len(cat.Courses()))

	checks := map[string]httpapi.HealthChecker{}
	var (
		store  progress.Store     = progress.NewMemoryStore()
		events engine.EventLogger = engine.NopEventLogger{}
	)

	if cfg.UsesPostgres() {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx, progress.Schema, engine.EventsSchema); err != nil {
			return err
		}

		pgStore, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			return err
		}
		store = pgStore
		events = engine.NewPostgresEventLogger(db.Pool)
		checks["database"] = db
	}

	hub := notify.NewHub()
	defer hub.Close()
	var notifier notify.Notifier = hub

	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return err
		}
		defer c.Close()
		checks["cache"] = c

		store = progress.NewCachedStore(store, c, cfg.Cache.ProgressTTL)

		// Publish through Redis so every instance delivers to its own
		// websocket subscribers, including this one.
		rn, err := notify.NewRedisNotifier(c.Client, cfg.Cache.NotifyChannel)
		if err != nil {
			return err
		}
		if _, err := rn.Forward(ctx, hub); err != nil {
			return err
		}
		notifier = rn
	}

	eng := engine.NewEngine(engine.EngineConfig{
		Catalog:  cat,
		Store:    store,
		Notifier: notifier,
		Events:   events,
	})
	api := httpapi.NewServer(httpapi.Config{
		Engine:  eng,
		Catalog: cat,
		Hub:     hub,
		Checks:  checks,
	})

	go reloadOnHangup(ctx, cat)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Backend, "cache", cfg.Cache.Enabled)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	// Websocket streams end when the hub closes; do it before Shutdown waits
	// on them.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// reloadOnHangup re-reads the catalog on SIGHUP.
func reloadOnHangup(ctx context.Context, cat *catalog.Catalog) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := cat.Reload(); err != nil {
				slog.Error("catalog reload failed", "error", err)
				continue
			}
			slog.Info("catalog reloaded", "courses", len(cat.Courses()), "problems", len(cat.Problems()))
		}
	}
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
