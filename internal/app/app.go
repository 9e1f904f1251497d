// Package app wires a configured engine for the command-line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"docindex/config"
	"docindex/internal/adapter/chunker"
	"docindex/internal/adapter/embedding"
	"docindex/internal/adapter/hasher"
	"docindex/internal/adapter/memstore"
	"docindex/internal/adapter/sqlstore"
	"docindex/internal/adapter/store"
	"docindex/internal/adapter/vector"
	"docindex/internal/logger"
	"docindex/internal/port"
	"docindex/internal/telemetry"
	"docindex/internal/usecase"
)

// App is one process's wiring: logger, tracer, embedder, store and the
// engine over them.
type App struct {
	Config    *config.Config
	Dir       string
	Logger    *slog.Logger
	Store     port.Store
	Embedder  port.Embedder
	Engine    *usecase.Engine
	StorePath string

	shutdown telemetry.ShutdownFunc
}

// Open builds the engine for the project rooted at dir and verifies that
// the index there was built by the configured embedder. Logs go to logOut.
func Open(ctx context.Context, cfg *config.Config, dir, version string, logOut io.Writer) (*App, error) {
	log, err := logger.New(cfg.Logging, logOut)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.New(cfg.Embedding, log)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	st, err := OpenStore(cfg, dir)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Dir:       dir,
		Logger:    log,
		Store:     st,
		Embedder:  embedder,
		Engine:    usecase.NewEngine(st, embedder, chunker.NewWordChunker(), hasher.New(), log),
		StorePath: cfg.StorePath(dir),
		shutdown:  shutdown,
	}
	if err := a.Engine.CheckIndex(ctx, cfg.Store.Distance); err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("index at %s cannot be used with this configuration: %w", a.StorePath, err)
	}

	log.Debug("index opened",
		"driver", cfg.Store.Driver,
		"path", a.StorePath,
		"model", embedder.ModelName(),
		"dimension", embedder.Dimension(),
	)
	return a, nil
}

func (a *App) Close(ctx context.Context) error {
	return errors.Join(a.Store.Close(), a.shutdown(ctx))
}

// OpenStore opens the configured backend under dir.
func OpenStore(cfg *config.Config, dir string) (port.Store, error) {
	distance, err := vector.Distance(cfg.Store.Distance)
	if err != nil {
		return nil, err
	}

	if cfg.Store.Driver == "memory" {
		return memstore.NewMemoryStore(distance), nil
	}

	if err := cfg.EnsureDataDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	path := cfg.StorePath(dir)

	switch cfg.Store.Driver {
	case "bolt":
		st, err := store.NewBoltStore(path, distance)
		if err != nil {
			return nil, fmt.Errorf("failed to open index store: %w", err)
		}
		return st, nil
	case "sqlite":
		st, err := sqlstore.Open(path, distance)
		if err != nil {
			return nil, fmt.Errorf("failed to open index store: %w", err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
