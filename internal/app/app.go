// Package app wires configuration, storage and services into runnable
// commands.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pricelens/backend/config"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/csvfeed"
	"github.com/pricelens/backend/internal/infrastructure/filewatcher"
	"github.com/pricelens/backend/internal/infrastructure/storage"
	"github.com/pricelens/backend/internal/usecase"
)

// ParseLevel maps a configured level name onto slog. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger installs a JSON logger on w as the process default
func InitLogger(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	logger := slog.New(slog.NewJSONHandler(w, opts))
	slog.SetDefault(logger)
	return logger
}

// OpenStore connects to the configured database and applies migrations when
// auto_migrate is set
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*storage.Store, error) {
	const op = "app.OpenStore"

	store, err := storage.Open(ctx, storage.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		ConnectAttempts: cfg.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.AutoMigrate {
		if err := storage.Migrate(store.DB(), store.Driver()); err != nil {
			store.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return store, nil
}

// App is the assembled API server
type App struct {
	cfg     *config.Config
	store   *storage.Store
	cache   *cache.MemoryCache
	ingest  *usecase.IngestService
	router  http.Handler
	server  *httpDelivery.Server
	watcher *filewatcher.FSNotifyWatcher
}

// New connects storage and builds every service and the HTTP server
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	reportCache := cache.NewMemoryCache(cfg.Cache.CleanupInterval)
	reportCfg := usecase.ReportConfig{CacheTTL: cfg.Cache.TTL}

	ingest := usecase.NewIngestService(store, csvfeed.Opener{}, reportCache, usecase.IngestServiceConfig{
		DefaultFile: cfg.Ingest.DefaultFile,
	})

	handler := httpDelivery.NewHandler(httpDelivery.Services{
		Overpriced: usecase.NewOverpricedService(store, reportCache, reportCfg),
		Patterns:   usecase.NewPatternService(store, reportCache, reportCfg),
		Catalog:    usecase.NewCatalogService(store),
		Ingest:     ingest,
		Health:     store,
	}, cfg.Analysis.DefaultThreshold)

	router := httpDelivery.SetupRouter(cfg, handler, logger)

	return &App{
		cfg:    cfg,
		store:  store,
		cache:  reportCache,
		ingest: ingest,
		router: router,
		server: httpDelivery.NewServer(":"+cfg.Server.Port, router),
	}, nil
}

// Handler exposes the routed API
func (a *App) Handler() http.Handler {
	return a.router
}

// Run starts the HTTP server in the background. stopFn is called when the
// server exits on its own.
func (a *App) Run(stopFn context.CancelFunc) {
	go a.server.Run(stopFn)

	slog.Info("application is running",
		"env", a.cfg.Server.Environment,
		"driver", a.store.Driver(),
	)
}

// WatchInbox ingests every feed dropped into the configured watch directory
// until ctx is done. It is a no-op when no directory is configured.
func (a *App) WatchInbox(ctx context.Context) error {
	const op = "App.WatchInbox"

	dir := a.cfg.Ingest.WatchDir
	if dir == "" {
		return nil
	}

	watcher, err := filewatcher.NewFSNotifyWatcher(nil, 0)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	paths, err := watcher.Watch(ctx, dir)
	if err != nil {
		_ = watcher.Stop()
		return fmt.Errorf("%s: %w", op, err)
	}
	a.watcher = watcher

	log := slog.With("op", op, "dir", dir)
	log.Info("watching inbox")

	go func() {
		for path := range paths {
			summary, err := a.ingest.Ingest(ctx, path)
			if err != nil {
				log.Error("inbox ingestion failed", "path", path, "err", err)
				continue
			}
			log.Info("inbox feed ingested",
				"path", path,
				"ingested", summary.IngestedRows,
				"skipped", summary.SkippedRows,
			)
		}
	}()

	return nil
}

// Close shuts the server down and releases storage
func (a *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	a.server.Close(ctx)
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			slog.Warn("failed to stop inbox watcher", "err", err)
		}
	}
	a.cache.Close()
	a.store.Close()

	slog.Info("application is closed")
}
